package tuning

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jsphweid/fretcoach/constants"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
)

var ErrUnknownPreset = errors.New("tuning: unknown preset")

type presetDef struct {
	description string
	// open string MIDI numbers, lowest string first
	open []int
}

var presetDefs = map[string]presetDef{
	"standard":         {"E A D G B E", []int{40, 45, 50, 55, 59, 64}},
	"drop-d":           {"D A D G B E", []int{38, 45, 50, 55, 59, 64}},
	"half-step-down":   {"Eb Ab Db Gb Bb Eb", []int{39, 44, 49, 54, 58, 63}},
	"full-step-down":   {"D G C F A D", []int{38, 43, 48, 53, 57, 62}},
	"drop-c":           {"C G C F A D", []int{36, 43, 48, 53, 57, 62}},
	"open-g":           {"D G D G B D", []int{38, 43, 50, 55, 59, 62}},
	"open-d":           {"D A D F# A D", []int{38, 45, 50, 54, 57, 62}},
	"open-e":           {"E B E G# B E", []int{40, 47, 52, 56, 59, 64}},
	"dadgad":           {"D A D G A D", []int{38, 45, 50, 55, 57, 62}},
	"seven-string":     {"B E A D G B E", []int{35, 40, 45, 50, 55, 59, 64}},
	"bass-standard":    {"E A D G (4 string bass)", []int{28, 33, 38, 43}},
	"bass-five-string": {"B E A D G (5 string bass)", []int{23, 28, 33, 38, 43}},
}

// Build assembles a preset from open string MIDI numbers, lowest string
// first. String numbers follow guitar convention: the highest string is 1.
func Build(name, description string, open []int, ref float64) model.TuningPreset {
	strs := make([]model.PresetString, len(open))
	for i, midi := range open {
		strs[i] = model.PresetString{
			Number:      len(open) - i,
			Note:        note.Name(midi),
			Midi:        midi,
			FrequencyHz: note.Frequency(midi, ref),
		}
	}
	return model.TuningPreset{Name: name, Description: description, Strings: strs}
}

func Preset(name string) (model.TuningPreset, error) {
	return PresetWithReference(name, constants.ReferenceHz)
}

func PresetWithReference(name string, ref float64) (model.TuningPreset, error) {
	def, ok := presetDefs[name]
	if !ok {
		return model.TuningPreset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return Build(name, def.description, def.open, ref), nil
}

func PresetNames() []string {
	names := make([]string, 0, len(presetDefs))
	for name := range presetDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Presets(ref float64) []model.TuningPreset {
	var res []model.TuningPreset
	for _, name := range PresetNames() {
		p, _ := PresetWithReference(name, ref)
		res = append(res, p)
	}
	return res
}

// Span is the lowest and highest open string frequency of a preset.
func Span(p model.TuningPreset) (lo, hi float64) {
	for i, s := range p.Strings {
		if i == 0 || s.FrequencyHz < lo {
			lo = s.FrequencyHz
		}
		if s.FrequencyHz > hi {
			hi = s.FrequencyHz
		}
	}
	return lo, hi
}
