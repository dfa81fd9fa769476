package model

import "time"

type ExpectedNote struct {
	TimeMs       float64 `json:"time_ms"`
	DurationMs   float64 `json:"duration_ms"`
	Midi         int     `json:"midi"`
	String       int     `json:"string"`
	Fret         int     `json:"fret"`
	MeasureIndex int     `json:"measure_index"`
	BeatIndex    int     `json:"beat_index"`
	NoteName     string  `json:"note_name"`
}

// Timeline notes are ordered by TimeMs.
type Timeline struct {
	Notes      []ExpectedNote `json:"notes"`
	DurationMs float64        `json:"duration_ms"`
}

type DetectedNoteEvent struct {
	Note        NoteIdentity `json:"note"`
	TimestampMs float64      `json:"timestamp_ms"`
}

type ScoreState struct {
	TotalNotes    int
	Correct       int
	Incorrect     int
	Missed        int
	Stray         int
	TimingErrors  []float64
	CurrentStreak int
	MaxStreak     int
}

type ScoreSnapshot struct {
	AccuracyPercent float64 `json:"accuracy_percent"`
	Correct         int     `json:"correct"`
	Incorrect       int     `json:"incorrect"`
	Missed          int     `json:"missed"`
	CurrentStreak   int     `json:"current_streak"`
	MaxStreak       int     `json:"max_streak"`
	TotalNotes      int     `json:"total_notes"`
}

type ScoreReport struct {
	SessionID            string    `json:"session_id"`
	Title                string    `json:"title"`
	AccuracyPercent      float64   `json:"accuracy_percent"`
	Correct              int       `json:"correct"`
	Incorrect            int       `json:"incorrect"`
	Missed               int       `json:"missed"`
	Stray                int       `json:"stray"`
	TotalNotes           int       `json:"total_notes"`
	MaxStreak            int       `json:"max_streak"`
	AverageTimingErrorMs float64   `json:"average_timing_error_ms"`
	TimingPenalty        float64   `json:"timing_penalty"`
	FinalScore           float64   `json:"final_score"`
	Grade                string    `json:"grade"`
	SpeedFactor          float64   `json:"speed_factor"`
	StartedAt            time.Time `json:"started_at"`
	DurationMs           float64   `json:"duration_ms"`
}
