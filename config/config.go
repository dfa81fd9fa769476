// Package config holds every tunable of the tuner and practice pipelines.
//
// Values come from, in increasing priority: Default(), a YAML file, a .env
// file, FRETCOACH_* environment variables. Command line flags are applied
// by the caller. Clamp is always run last; out of range values are pulled
// back into range rather than rejected.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/jsphweid/fretcoach/constants"
	"github.com/jsphweid/fretcoach/scoring"
	"github.com/jsphweid/fretcoach/smoother"
	"github.com/jsphweid/fretcoach/tuning"
	"github.com/jsphweid/fretcoach/util"
)

const EnvPrefix = "FRETCOACH_"

type Config struct {
	SampleRate   int `yaml:"sample_rate"`
	FrameSize    int `yaml:"frame_size"`
	FrameOverlap int `yaml:"frame_overlap"`

	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	MinFrequencyHz      float64 `yaml:"min_frequency_hz"`
	MaxFrequencyHz      float64 `yaml:"max_frequency_hz"`
	ReferenceHz         float64 `yaml:"reference_hz"`

	ToleranceCents       float64 `yaml:"tolerance_cents"`
	HoldMs               int     `yaml:"hold_ms"`
	SmoothingSize        int     `yaml:"smoothing_size"`
	StabilitySize        int     `yaml:"stability_size"`
	StabilityThresholdHz float64 `yaml:"stability_threshold_hz"`
	MinStableSamples     int     `yaml:"min_stable_samples"`
	StringToleranceCents float64 `yaml:"string_tolerance_cents"`
	CompletionMode       string  `yaml:"completion_mode"`
	Preset               string  `yaml:"preset"`

	MatchWindowMs            float64            `yaml:"match_window_ms"`
	TimingPenaltyThresholdMs float64            `yaml:"timing_penalty_threshold_ms"`
	TimingPenaltyPerMs       float64            `yaml:"timing_penalty_per_ms"`
	MatchMode                string             `yaml:"match_mode"`
	Grades                   scoring.GradeTable `yaml:"grades,omitempty"`

	SilenceFrames    int `yaml:"silence_frames"`
	StopTimeoutMs    int `yaml:"stop_timeout_ms"`
	TickMs           int `yaml:"tick_ms"`
	StatusDebounceMs int `yaml:"status_debounce_ms"`
	FeedSize         int `yaml:"feed_size"`

	ReportDir      string `yaml:"report_dir"`
	DynamoTable    string `yaml:"dynamo_table,omitempty"`
	DynamoRegion   string `yaml:"dynamo_region"`
	DynamoEndpoint string `yaml:"dynamo_endpoint,omitempty"`
}

func Default() Config {
	return Config{
		SampleRate:   constants.SampleRate,
		FrameSize:    constants.FrameSize,
		FrameOverlap: constants.FrameOverlap,

		ConfidenceThreshold: constants.ConfidenceThreshold,
		MinFrequencyHz:      constants.MinFrequencyHz,
		MaxFrequencyHz:      constants.MaxFrequencyHz,
		ReferenceHz:         constants.ReferenceHz,

		ToleranceCents:       constants.ToleranceCents,
		HoldMs:               constants.HoldMs,
		SmoothingSize:        constants.SmoothingSize,
		StabilitySize:        constants.StabilitySize,
		StabilityThresholdHz: constants.StabilityThresholdHz,
		MinStableSamples:     constants.MinStableSamples,
		StringToleranceCents: constants.StringToleranceCents,
		CompletionMode:       string(tuning.CompleteAllTuned),
		Preset:               "standard",

		MatchWindowMs:            constants.MatchWindowMs,
		TimingPenaltyThresholdMs: constants.TimingPenaltyThresholdMs,
		TimingPenaltyPerMs:       constants.TimingPenaltyPerMs,
		MatchMode:                string(scoring.MatchPitchClass),
		Grades:                   scoring.DefaultGrades,

		SilenceFrames:    constants.SilenceFrames,
		StopTimeoutMs:    constants.StopTimeoutMs,
		TickMs:           constants.TickMs,
		StatusDebounceMs: constants.StatusDebounceMs,
		FeedSize:         constants.FeedSize,

		ReportDir:    constants.GetReportDir(),
		DynamoRegion: "us-east-1",
	}
}

// Load builds a Config from the YAML file at path (skipped when path is
// empty), then .env, then the environment. A missing .env is not an error.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("config: .env: %w", err)
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return c, err
	}

	c.Clamp()
	return c, nil
}

// ApplyEnv overrides fields from FRETCOACH_<YAML_KEY> variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for key, target := range c.fields() {
		raw, ok := lookup(EnvPrefix + strings.ToUpper(key))
		if !ok {
			continue
		}
		var err error
		switch p := target.(type) {
		case *int:
			*p, err = strconv.Atoi(strings.TrimSpace(raw))
		case *float64:
			*p, err = strconv.ParseFloat(strings.TrimSpace(raw), 64)
		case *string:
			*p = strings.TrimSpace(raw)
		}
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
	}
	return nil
}

func (c *Config) fields() map[string]any {
	return map[string]any{
		"sample_rate":                 &c.SampleRate,
		"frame_size":                  &c.FrameSize,
		"frame_overlap":               &c.FrameOverlap,
		"confidence_threshold":        &c.ConfidenceThreshold,
		"min_frequency_hz":            &c.MinFrequencyHz,
		"max_frequency_hz":            &c.MaxFrequencyHz,
		"reference_hz":                &c.ReferenceHz,
		"tolerance_cents":             &c.ToleranceCents,
		"hold_ms":                     &c.HoldMs,
		"smoothing_size":              &c.SmoothingSize,
		"stability_size":              &c.StabilitySize,
		"stability_threshold_hz":      &c.StabilityThresholdHz,
		"min_stable_samples":          &c.MinStableSamples,
		"string_tolerance_cents":      &c.StringToleranceCents,
		"completion_mode":             &c.CompletionMode,
		"preset":                      &c.Preset,
		"match_window_ms":             &c.MatchWindowMs,
		"timing_penalty_threshold_ms": &c.TimingPenaltyThresholdMs,
		"timing_penalty_per_ms":       &c.TimingPenaltyPerMs,
		"match_mode":                  &c.MatchMode,
		"silence_frames":              &c.SilenceFrames,
		"stop_timeout_ms":             &c.StopTimeoutMs,
		"tick_ms":                     &c.TickMs,
		"status_debounce_ms":          &c.StatusDebounceMs,
		"feed_size":                   &c.FeedSize,
		"report_dir":                  &c.ReportDir,
		"dynamo_table":                &c.DynamoTable,
		"dynamo_region":               &c.DynamoRegion,
		"dynamo_endpoint":             &c.DynamoEndpoint,
	}
}

// Clamp pulls every value back into a usable range.
func (c *Config) Clamp() {
	d := Default()

	c.SampleRate = util.Clamp(c.SampleRate, 8000, 192000)
	c.FrameSize = util.Clamp(c.FrameSize, 256, 16384)
	c.FrameOverlap = util.Clamp(c.FrameOverlap, 0, c.FrameSize-1)

	c.ConfidenceThreshold = clampFloat(c.ConfidenceThreshold, 0, 1, d.ConfidenceThreshold)
	c.MinFrequencyHz = clampFloat(c.MinFrequencyHz, 20, 2000, d.MinFrequencyHz)
	c.MaxFrequencyHz = clampFloat(c.MaxFrequencyHz, 20, 5000, d.MaxFrequencyHz)
	if c.MaxFrequencyHz <= c.MinFrequencyHz {
		c.MinFrequencyHz, c.MaxFrequencyHz = d.MinFrequencyHz, d.MaxFrequencyHz
	}
	c.ReferenceHz = clampFloat(c.ReferenceHz, 400, 480, d.ReferenceHz)

	c.ToleranceCents = clampFloat(c.ToleranceCents, 0.5, 50, d.ToleranceCents)
	c.HoldMs = util.Clamp(c.HoldMs, 0, 10000)
	c.SmoothingSize = util.Clamp(c.SmoothingSize, 1, 64)
	c.StabilitySize = util.Clamp(c.StabilitySize, 1, 64)
	c.StabilityThresholdHz = clampFloat(c.StabilityThresholdHz, 0.01, 100, d.StabilityThresholdHz)
	c.MinStableSamples = util.Clamp(c.MinStableSamples, 1, c.StabilitySize)
	c.StringToleranceCents = clampFloat(c.StringToleranceCents, 0.5, 50, d.StringToleranceCents)
	if _, err := tuning.ParseCompletionMode(c.CompletionMode); err != nil {
		c.CompletionMode = d.CompletionMode
	}
	if _, err := tuning.Preset(c.Preset); err != nil {
		c.Preset = d.Preset
	}

	c.MatchWindowMs = clampFloat(c.MatchWindowMs, 1, 1000, d.MatchWindowMs)
	c.TimingPenaltyThresholdMs = clampFloat(c.TimingPenaltyThresholdMs, 0, 1000, d.TimingPenaltyThresholdMs)
	c.TimingPenaltyPerMs = clampFloat(c.TimingPenaltyPerMs, 0, 10, d.TimingPenaltyPerMs)
	if _, err := scoring.ParseMatchMode(c.MatchMode); err != nil {
		c.MatchMode = d.MatchMode
	}
	if c.Grades.Validate() != nil {
		c.Grades = d.Grades
	}

	c.SilenceFrames = util.Clamp(c.SilenceFrames, 1, 1000)
	c.StopTimeoutMs = util.Clamp(c.StopTimeoutMs, 10, 60000)
	c.TickMs = util.Clamp(c.TickMs, 1, 1000)
	c.StatusDebounceMs = util.Clamp(c.StatusDebounceMs, 0, 5000)
	c.FeedSize = util.Clamp(c.FeedSize, 1, 1024)

	if c.ReportDir == "" {
		c.ReportDir = d.ReportDir
	}
	if c.DynamoRegion == "" {
		c.DynamoRegion = d.DynamoRegion
	}
}

// NaN is replaced by fallback
func clampFloat(v, lo, hi, fallback float64) float64 {
	if v != v {
		return fallback
	}
	return util.Clamp(v, lo, hi)
}

func (c Config) SmootherParams() smoother.Params {
	return smoother.Params{
		ConfidenceThreshold:  c.ConfidenceThreshold,
		MinFrequencyHz:       c.MinFrequencyHz,
		MaxFrequencyHz:       c.MaxFrequencyHz,
		Size:                 c.SmoothingSize,
		StabilitySize:        c.StabilitySize,
		StabilityThresholdHz: c.StabilityThresholdHz,
		MinStableSamples:     c.MinStableSamples,
	}
}

func (c Config) ScoringParams(speed float64) scoring.Params {
	mode, _ := scoring.ParseMatchMode(c.MatchMode)
	return scoring.Params{
		WindowMs:           c.MatchWindowMs,
		Speed:              speed,
		Mode:               mode,
		PenaltyThresholdMs: c.TimingPenaltyThresholdMs,
		PenaltyPerMs:       c.TimingPenaltyPerMs,
		Grades:             c.Grades,
	}
}

func (c Config) Completion() tuning.CompletionMode {
	mode, err := tuning.ParseCompletionMode(c.CompletionMode)
	if err != nil {
		return tuning.CompleteAllTuned
	}
	return mode
}

func (c Config) Hold() time.Duration {
	return time.Duration(c.HoldMs) * time.Millisecond
}

// Hop is the time between consecutive analysis frames.
func (c Config) Hop() time.Duration {
	hop := c.FrameSize - c.FrameOverlap
	return time.Duration(float64(hop) / float64(c.SampleRate) * float64(time.Second))
}

func (c Config) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutMs) * time.Millisecond
}

func (c Config) Tick() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

func (c Config) StatusDebounce() time.Duration {
	return time.Duration(c.StatusDebounceMs) * time.Millisecond
}

// Marshal renders the effective settings as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
