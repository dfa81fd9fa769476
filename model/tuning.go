package model

import (
	"fmt"
	"time"
)

type PresetString struct {
	Number      int     `json:"number"`
	Note        string  `json:"note"`
	Midi        int     `json:"midi"`
	FrequencyHz float64 `json:"frequency_hz"`
}

// TuningPreset is immutable once built. Strings are ordered in the order a
// tuning session walks them.
type TuningPreset struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Strings     []PresetString `json:"strings"`
}

type TuningString struct {
	PresetString
	Tuned bool `json:"tuned"`
}

type TuningStatus int

const (
	StatusWaiting TuningStatus = iota
	StatusFlat
	StatusSharp
	StatusAlmost
	StatusInTune
)

func (s TuningStatus) String() string {
	switch s {
	case StatusWaiting:
		return "WAITING"
	case StatusFlat:
		return "FLAT"
	case StatusSharp:
		return "SHARP"
	case StatusAlmost:
		return "ALMOST"
	case StatusInTune:
		return "IN_TUNE"
	}
	return fmt.Sprintf("TuningStatus(%d)", int(s))
}

func (s TuningStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TuningStatus) UnmarshalText(b []byte) error {
	for _, c := range []TuningStatus{StatusWaiting, StatusFlat, StatusSharp, StatusAlmost, StatusInTune} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown tuning status %q", string(b))
}

// TuningUpdate is pushed to the UI on every accepted tuning frame.
type TuningUpdate struct {
	TargetString        TuningString `json:"target_string"`
	DetectedFrequencyHz float64      `json:"detected_frequency_hz"`
	CentsDeviation      float64      `json:"cents_deviation"`
	Status              TuningStatus `json:"status"`
	CurrentStringIndex  int          `json:"current_string_index"`
	TotalStrings        int          `json:"total_strings"`

	Note           NoteIdentity `json:"note"`
	NoteCents      float64      `json:"note_cents"`
	DetectedString int          `json:"detected_string"`
	Completed      bool         `json:"completed"`
	At             time.Time    `json:"at"`
}
