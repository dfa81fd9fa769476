package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsphweid/fretcoach/scoring"
	"github.com/jsphweid/fretcoach/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaultIsAlreadyClamped(t *testing.T) {
	d := Default()
	c := d
	c.Clamp()
	assert.Equal(t, d, c)
}

func TestDefaults(t *testing.T) {
	assert := assert.New(t)
	c := Default()
	assert.Equal(0.80, c.ConfidenceThreshold)
	assert.Equal(500*time.Millisecond, c.Hold())
	assert.Equal(tuning.CompleteAllTuned, c.Completion())
	assert.InDelta(23.2, float64(c.Hop())/float64(time.Millisecond), 0.1)

	p := c.ScoringParams(1)
	assert.Equal(scoring.MatchPitchClass, p.Mode)
	assert.Equal(100.0, p.WindowMs)

	sp := c.SmootherParams()
	assert.Equal(8, sp.Size)
	assert.Equal(10, sp.StabilitySize)
}

func TestClampPullsValuesIntoRange(t *testing.T) {
	assert := assert.New(t)
	c := Default()
	c.ConfidenceThreshold = 3
	c.ToleranceCents = -1
	c.SmoothingSize = 0
	c.FrameOverlap = 99999
	c.ReferenceHz = math.NaN()
	c.MinFrequencyHz = 900
	c.MaxFrequencyHz = 100
	c.CompletionMode = "whenever"
	c.MatchMode = "fuzzy"
	c.Preset = "banjo"
	c.Grades = scoring.GradeTable{{MinAccuracy: 10, Letter: "Z"}}
	c.Clamp()

	assert.Equal(1.0, c.ConfidenceThreshold)
	assert.Equal(0.5, c.ToleranceCents)
	assert.Equal(1, c.SmoothingSize)
	assert.Equal(c.FrameSize-1, c.FrameOverlap)
	assert.Equal(440.0, c.ReferenceHz)
	assert.Equal(60.0, c.MinFrequencyHz)
	assert.Equal(1200.0, c.MaxFrequencyHz)
	assert.Equal("all_tuned", c.CompletionMode)
	assert.Equal("pitch_class", c.MatchMode)
	assert.Equal("standard", c.Preset)
	assert.Equal(scoring.DefaultGrades, c.Grades)
}

func TestApplyEnv(t *testing.T) {
	assert := assert.New(t)
	c := Default()
	err := c.ApplyEnv(env(map[string]string{
		"FRETCOACH_HOLD_MS":         "750",
		"FRETCOACH_REFERENCE_HZ":    " 442 ",
		"FRETCOACH_COMPLETION_MODE": "last_in_tune",
	}))
	require.NoError(t, err)
	assert.Equal(750, c.HoldMs)
	assert.Equal(442.0, c.ReferenceHz)
	assert.Equal(tuning.CompleteLastInTune, c.Completion())
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	c := Default()
	err := c.ApplyEnv(env(map[string]string{"FRETCOACH_HOLD_MS": "soon"}))
	assert.ErrorContains(t, err, "FRETCOACH_HOLD_MS")
}

func TestLoadYaml(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "fretcoach.yaml")
	yml := "tolerance_cents: 3\nmatch_mode: exact\nhold_ms: 20000\npreset: drop-d\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(3.0, c.ToleranceCents)
	assert.Equal("exact", c.MatchMode)
	assert.Equal(10000, c.HoldMs)
	assert.Equal("drop-d", c.Preset)
	assert.Equal(8, c.SmoothingSize)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTripsThroughLoad(t *testing.T) {
	c := Default()
	c.MatchWindowMs = 80
	data, err := c.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.MatchWindowMs)
	assert.Equal(t, c.Grades, got.Grades)
}
