package model

type StartTuningRequest struct {
	Preset string `json:"preset"`
}

type StartPracticeRequest struct {
	Title    string   `json:"title"`
	Timeline Timeline `json:"timeline"`
	Speed    float64  `json:"speed"`
}

type SamplesRequest struct {
	Samples []PitchSample `json:"samples"`
}

// PlayedNote is a detected note as posted by a client. A missing timestamp
// means "now" on the session clock.
type PlayedNote struct {
	Note        string   `json:"note"`
	TimestampMs *float64 `json:"timestamp_ms,omitempty"`
}

type NotesRequest struct {
	Notes []PlayedNote `json:"notes"`
}

type AcceptedResponse struct {
	Accepted int `json:"accepted"`
	Dropped  int `json:"dropped"`
}

type TuningStateResponse struct {
	Running   bool           `json:"running"`
	Preset    string         `json:"preset"`
	Update    *TuningUpdate  `json:"update,omitempty"`
	Strings   []TuningString `json:"strings"`
	Current   int            `json:"current_string_index"`
	Completed bool           `json:"completed"`
}

type PracticeStateResponse struct {
	Running    bool          `json:"running"`
	SessionID  string        `json:"session_id"`
	Title      string        `json:"title"`
	PlaybackMs float64       `json:"playback_ms"`
	Snapshot   ScoreSnapshot `json:"snapshot"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
