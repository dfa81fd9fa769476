package model

import (
	"math"
	"strconv"
)

// PitchSample is one frame of output from the external frequency estimator.
type PitchSample struct {
	FrequencyHz float64 `json:"frequency_hz"`
	Confidence  float64 `json:"confidence"`
}

// Valid reports whether the sample carries a usable pitch at all. A zero or
// negative frequency is how the estimator signals "no pitch".
func (s PitchSample) Valid() bool {
	if math.IsNaN(s.FrequencyHz) || math.IsInf(s.FrequencyHz, 0) || s.FrequencyHz <= 0 {
		return false
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return false
	}
	return true
}

type SmoothedFrequency struct {
	FrequencyHz float64 `json:"frequency_hz"`
	Stable      bool    `json:"stable"`
}

type NoteIdentity struct {
	Name   string `json:"name"`
	Octave int    `json:"octave"`
}

func (n NoteIdentity) String() string {
	if n.Name == "" {
		return "-"
	}
	return n.Name + strconv.Itoa(n.Octave)
}
