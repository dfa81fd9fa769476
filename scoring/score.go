package scoring

import (
	"github.com/jsphweid/fretcoach/util"
	"github.com/montanaflynn/stats"
)

// Accuracy is 0 when nothing has been attempted.
func Accuracy(correct, incorrect int) float64 {
	attempts := correct + incorrect
	if attempts == 0 {
		return 0
	}
	return float64(correct) / float64(attempts) * 100
}

// AverageTimingError is 0 when there were no hits.
func AverageTimingError(errors []float64) float64 {
	avg, err := stats.Mean(errors)
	if err != nil {
		return 0
	}
	return avg
}

func TimingPenalty(avgErrorMs, thresholdMs, perMs float64) float64 {
	if avgErrorMs <= thresholdMs {
		return 0
	}
	return (avgErrorMs - thresholdMs) * perMs
}

func FinalScore(accuracy, penalty float64) float64 {
	return util.Max(0, accuracy-penalty)
}
