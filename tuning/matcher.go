package tuning

import (
	"math"

	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
)

// MatchString guesses which string of the preset is being played. Only used
// for display; scoring never relies on it.
func MatchString(f float64, preset model.TuningPreset, toleranceCents float64) (int, bool) {
	if f <= 0 || len(preset.Strings) == 0 {
		return -1, false
	}

	best := -1
	bestAbs := math.Inf(1)
	for i, s := range preset.Strings {
		d := math.Abs(note.Cents(f, s.FrequencyHz))
		if d < bestAbs {
			best = i
			bestAbs = d
		}
	}

	if bestAbs > toleranceCents {
		return -1, false
	}
	return best, true
}
