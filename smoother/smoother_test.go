package smoother

import (
	"math/rand"
	"testing"

	"github.com/jsphweid/fretcoach/model"
	"github.com/stretchr/testify/assert"
)

func TestSmoothStaysWithinBufferRange(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 1 + r.Intn(8)
		values := make([]float64, n)
		lo, hi := 1e9, -1e9
		for j := range values {
			values[j] = 60 + r.Float64()*1140
			lo = min(lo, values[j])
			hi = max(hi, values[j])
		}

		got := Smooth(values)
		if got < lo-1e-9 || got > hi+1e-9 {
			t.Fatalf("Smooth(%v) = %v, outside [%v, %v]", values, got, lo, hi)
		}
	}
}

func TestSmoothRejectsSingleGlitch(t *testing.T) {
	values := []float64{110, 110, 110, 220, 110, 110, 110, 110}
	got := Smooth(values)

	assert.InDelta(t, 110, got, 7)
	assert.Less(t, got, WeightedAverage(values))
}

func TestWeightedAverageFavoursRecent(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(100+(2.0/3.0)*10, WeightedAverage([]float64{100, 110}), 1e-9)
	assert.Equal(0.0, WeightedAverage(nil))
}

func TestStabilityGate(t *testing.T) {
	assert := assert.New(t)

	same := []float64{110, 110, 110, 110, 110, 110, 110, 110, 110, 110}
	assert.True(IsStable(same, 5))

	alternating := []float64{100, 200, 100, 200, 100, 200, 100, 200, 100, 200}
	assert.False(IsStable(alternating, 5))

	assert.False(IsStable(nil, 5))
}

func TestPushRejectsWeakAndOutOfRangeSamples(t *testing.T) {
	s := New(DefaultParams())
	rejected := []model.PitchSample{
		{FrequencyHz: 110, Confidence: 0.5},
		{FrequencyHz: 110, Confidence: 1.5},
		{FrequencyHz: 0, Confidence: 1},
		{FrequencyHz: -3, Confidence: 1},
		{FrequencyHz: 30, Confidence: 1},
		{FrequencyHz: 4000, Confidence: 1},
	}

	for _, sample := range rejected {
		_, ok := s.Push(sample)
		assert.False(t, ok, "%+v", sample)
	}
	assert.Equal(t, 0, s.raw.Count())
}

func TestPushRequiresMinimumHistoryBeforeStable(t *testing.T) {
	assert := assert.New(t)
	s := New(DefaultParams())
	sample := model.PitchSample{FrequencyHz: 110, Confidence: 1}

	out, ok := s.Push(sample)
	assert.True(ok)
	assert.False(out.Stable)

	s.Push(sample)
	out, _ = s.Push(sample)
	assert.True(out.Stable)
	assert.InDelta(110, out.FrequencyHz, 1e-9)
}

func TestPushUnstableWhileSweeping(t *testing.T) {
	s := New(DefaultParams())
	var out model.SmoothedFrequency
	for i := 0; i < 10; i++ {
		f := 80.0
		if i%2 == 1 {
			f = 400
		}
		out, _ = s.Push(model.PitchSample{FrequencyHz: f, Confidence: 1})
	}
	assert.False(t, out.Stable)
}

func TestResetForgetsHistory(t *testing.T) {
	s := New(DefaultParams())
	for i := 0; i < 8; i++ {
		s.Push(model.PitchSample{FrequencyHz: 300, Confidence: 1})
	}
	s.Reset()

	out, _ := s.Push(model.PitchSample{FrequencyHz: 110, Confidence: 1})
	assert.Equal(t, 110.0, out.FrequencyHz)
	assert.False(t, out.Stable)
}

func TestCoveringOnlyWidens(t *testing.T) {
	assert := assert.New(t)
	p := DefaultParams()

	same := p.Covering(82.41, 329.63)
	assert.Equal(p, same)

	bass := p.Covering(30.87, 98)
	assert.Less(bass.MinFrequencyHz, 30.87)
	assert.Equal(p.MaxFrequencyHz, bass.MaxFrequencyHz)

	s := New(bass)
	assert.True(s.Accepts(model.PitchSample{FrequencyHz: 30.87, Confidence: 1}))
	assert.False(New(p).Accepts(model.PitchSample{FrequencyHz: 30.87, Confidence: 1}))
}
