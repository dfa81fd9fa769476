// Package smoother turns a jittery stream of per-frame pitch estimates into a
// smoothed frequency plus a stability verdict.
//
// A Smoother is owned by a single goroutine; it does not lock.
package smoother

import (
	"github.com/jsphweid/fretcoach/circular"
	"github.com/jsphweid/fretcoach/constants"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/util"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

type Params struct {
	ConfidenceThreshold  float64
	MinFrequencyHz       float64
	MaxFrequencyHz       float64
	Size                 int
	StabilitySize        int
	StabilityThresholdHz float64
	MinStableSamples     int
}

func DefaultParams() Params {
	return Params{
		ConfidenceThreshold:  constants.ConfidenceThreshold,
		MinFrequencyHz:       constants.MinFrequencyHz,
		MaxFrequencyHz:       constants.MaxFrequencyHz,
		Size:                 constants.SmoothingSize,
		StabilitySize:        constants.StabilitySize,
		StabilityThresholdHz: constants.StabilityThresholdHz,
		MinStableSamples:     constants.MinStableSamples,
	}
}

// rangeMargin leaves room for a string tuned a major third off.
const rangeMargin = 1.26

// Covering widens the accepted frequency range so that every frequency in
// [lo, hi] is accepted with some margin either side. It never narrows it.
func (p Params) Covering(lo, hi float64) Params {
	p.MinFrequencyHz = util.Min(p.MinFrequencyHz, lo/rangeMargin)
	p.MaxFrequencyHz = util.Max(p.MaxFrequencyHz, hi*rangeMargin)
	return p
}

type Smoother struct {
	params   Params
	raw      *circular.Buffer[float64]
	smoothed *circular.Buffer[float64]
	scratch  []float64
}

func New(p Params) *Smoother {
	return &Smoother{
		params:   p,
		raw:      circular.CreateBuffer[float64](p.Size),
		smoothed: circular.CreateBuffer[float64](p.StabilitySize),
		scratch:  make([]float64, 0, util.Max(p.Size, p.StabilitySize)),
	}
}

// Accepts reports whether a sample counts as a detection at all. Rejected
// samples never touch the buffers.
func (s *Smoother) Accepts(sample model.PitchSample) bool {
	if !sample.Valid() {
		return false
	}
	if sample.Confidence < s.params.ConfidenceThreshold {
		return false
	}
	return sample.FrequencyHz >= s.params.MinFrequencyHz && sample.FrequencyHz <= s.params.MaxFrequencyHz
}

// Push feeds one frame through the smoother and the stability gate. The bool
// is false when the sample was rejected as "no detection".
func (s *Smoother) Push(sample model.PitchSample) (model.SmoothedFrequency, bool) {
	if !s.Accepts(sample) {
		return model.SmoothedFrequency{}, false
	}

	s.raw.Enqueue(sample.FrequencyHz)
	s.scratch = s.raw.Retrieve(s.scratch[:0])
	f := Smooth(s.scratch)

	s.smoothed.Enqueue(f)
	s.scratch = s.smoothed.Retrieve(s.scratch[:0])
	stable := len(s.scratch) >= s.params.MinStableSamples && IsStable(s.scratch, s.params.StabilityThresholdHz)

	return model.SmoothedFrequency{FrequencyHz: f, Stable: stable}, true
}

// Reset drops all history. Used when a session (re)starts or pitch is lost.
func (s *Smoother) Reset() {
	s.raw.Reset()
	s.smoothed.Reset()
}

// Smooth averages the median (robust to single-frame glitches) with a
// linearly weighted moving average (responsive to real pitch changes).
// values are ordered oldest first.
func Smooth(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	median, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return (median + WeightedAverage(values)) / 2
}

// WeightedAverage weights the i-th oldest value by i+1.
func WeightedAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	weights := make([]float64, len(values))
	for i := range weights {
		weights[i] = float64(i + 1)
	}
	return stat.Mean(values, weights)
}

// IsStable is the stability gate: population stddev strictly below threshold.
func IsStable(values []float64, thresholdHz float64) bool {
	if len(values) == 0 {
		return false
	}
	sd, err := stats.StandardDeviationPopulation(values)
	return err == nil && sd < thresholdHz
}
