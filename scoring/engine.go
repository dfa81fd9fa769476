// Package scoring matches detected notes against an expected timeline and
// keeps the running score.
//
// An Engine is owned by one goroutine. Other goroutines read Snapshot
// values that the owner publishes.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jsphweid/fretcoach/constants"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
	"github.com/jsphweid/fretcoach/util"
)

type MatchMode string

const (
	MatchPitchClass MatchMode = "pitch_class"
	MatchExact      MatchMode = "exact"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(s) {
	case MatchPitchClass, MatchExact:
		return MatchMode(s), nil
	}
	return "", fmt.Errorf("scoring: unknown match mode %q", s)
}

const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// ClampSpeed keeps the playback speed factor within [MinSpeed, MaxSpeed].
// Non-positive and NaN factors become MinSpeed.
func ClampSpeed(speed float64) float64 {
	if math.IsNaN(speed) || speed <= 0 {
		return MinSpeed
	}
	return util.Clamp(speed, MinSpeed, MaxSpeed)
}

type Params struct {
	WindowMs           float64
	Speed              float64
	Mode               MatchMode
	PenaltyThresholdMs float64
	PenaltyPerMs       float64
	Grades             GradeTable
}

func DefaultParams() Params {
	return Params{
		WindowMs:           constants.MatchWindowMs,
		Speed:              1,
		Mode:               MatchPitchClass,
		PenaltyThresholdMs: constants.TimingPenaltyThresholdMs,
		PenaltyPerMs:       constants.TimingPenaltyPerMs,
		Grades:             DefaultGrades,
	}
}

type Outcome int

const (
	// no open window contained the event
	OutcomeStray Outcome = iota
	OutcomeHit
	OutcomeWrongNote
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeWrongNote:
		return "wrong"
	}
	return "stray"
}

type Result struct {
	Outcome       Outcome
	Index         int
	TimingErrorMs float64
	// notes that expired while handling this event
	Missed int
}

type Engine struct {
	params     Params
	notes      []model.ExpectedNote
	identities []model.NoteIdentity
	durationMs float64

	cursor int
	state  model.ScoreState
}

func NewEngine(timeline model.Timeline, p Params) *Engine {
	p.Speed = ClampSpeed(p.Speed)
	if p.Mode == "" {
		p.Mode = MatchPitchClass
	}
	if p.Grades.Validate() != nil {
		p.Grades = DefaultGrades
	}

	notes := make([]model.ExpectedNote, len(timeline.Notes))
	copy(notes, timeline.Notes)
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].TimeMs < notes[j].TimeMs
	})

	ids := make([]model.NoteIdentity, len(notes))
	for i, n := range notes {
		ids[i] = expectedIdentity(n)
	}

	return &Engine{
		params:     p,
		notes:      notes,
		identities: ids,
		durationMs: timeline.DurationMs,
		state:      model.ScoreState{TotalNotes: len(notes)},
	}
}

func expectedIdentity(n model.ExpectedNote) model.NoteIdentity {
	if n.NoteName != "" {
		if id, err := note.Parse(n.NoteName); err == nil {
			return id
		}
	}
	return note.Identity(n.Midi)
}

func (e *Engine) Params() Params {
	return e.params
}

// ScaledTimeMs is when note i should sound on the wall clock, given the
// playback speed.
func (e *Engine) ScaledTimeMs(i int) float64 {
	return e.notes[i].TimeMs / e.params.Speed
}

// ScaledDurationMs is the wall clock length of the whole timeline.
func (e *Engine) ScaledDurationMs() float64 {
	d := e.durationMs
	if n := len(e.notes); n > 0 {
		last := e.notes[n-1]
		d = util.Max(d, last.TimeMs+last.DurationMs)
	}
	return d / e.params.Speed
}

// Advance records as missed every note whose window closed before
// playbackMs. It returns how many notes expired.
func (e *Engine) Advance(playbackMs float64) int {
	missed := 0
	for e.cursor < len(e.notes) && e.ScaledTimeMs(e.cursor)+e.params.WindowMs < playbackMs {
		e.cursor++
		e.state.Missed++
		e.state.CurrentStreak = 0
		missed++
	}
	return missed
}

// OnDetectedNote matches one detected event. The cursor only moves forward,
// so an expected note is consumed at most once, whatever order events come in.
func (e *Engine) OnDetectedNote(ev model.DetectedNoteEvent, playbackMs float64) Result {
	res := Result{Outcome: OutcomeStray, Index: -1}
	res.Missed = e.Advance(ev.TimestampMs)

	if e.cursor < len(e.notes) {
		expected := e.ScaledTimeMs(e.cursor)
		diff := math.Abs(ev.TimestampMs - expected)
		if diff <= e.params.WindowMs {
			res.Index = e.cursor
			res.TimingErrorMs = diff
			if e.agrees(ev.Note, e.identities[e.cursor]) {
				res.Outcome = OutcomeHit
				e.state.Correct++
				e.state.TimingErrors = append(e.state.TimingErrors, diff)
				e.state.CurrentStreak++
				e.state.MaxStreak = util.Max(e.state.MaxStreak, e.state.CurrentStreak)
			} else {
				res.Outcome = OutcomeWrongNote
				e.state.Incorrect++
				e.state.CurrentStreak = 0
			}
			e.cursor++
		}
	}

	if res.Outcome == OutcomeStray {
		e.state.Stray++
	}

	res.Missed += e.Advance(playbackMs)
	return res
}

func (e *Engine) agrees(got, want model.NoteIdentity) bool {
	if e.params.Mode == MatchExact {
		return got == want
	}
	return got.Name == want.Name
}

// Done reports whether every expected note has been consumed.
func (e *Engine) Done() bool {
	return e.cursor >= len(e.notes)
}

func (e *Engine) Cursor() int {
	return e.cursor
}

// State returns a copy safe to hand to another goroutine.
func (e *Engine) State() model.ScoreState {
	s := e.state
	s.TimingErrors = append([]float64(nil), e.state.TimingErrors...)
	return s
}

func (e *Engine) Snapshot() model.ScoreSnapshot {
	return model.ScoreSnapshot{
		AccuracyPercent: Accuracy(e.state.Correct, e.state.Incorrect),
		Correct:         e.state.Correct,
		Incorrect:       e.state.Incorrect,
		Missed:          e.state.Missed,
		CurrentStreak:   e.state.CurrentStreak,
		MaxStreak:       e.state.MaxStreak,
		TotalNotes:      e.state.TotalNotes,
	}
}

func (e *Engine) Report(sessionID, title string, startedAt time.Time, durationMs float64) model.ScoreReport {
	acc := Accuracy(e.state.Correct, e.state.Incorrect)
	avg := AverageTimingError(e.state.TimingErrors)
	penalty := TimingPenalty(avg, e.params.PenaltyThresholdMs, e.params.PenaltyPerMs)
	return model.ScoreReport{
		SessionID:            sessionID,
		Title:                title,
		AccuracyPercent:      acc,
		Correct:              e.state.Correct,
		Incorrect:            e.state.Incorrect,
		Missed:               e.state.Missed,
		Stray:                e.state.Stray,
		TotalNotes:           e.state.TotalNotes,
		MaxStreak:            e.state.MaxStreak,
		AverageTimingErrorMs: avg,
		TimingPenalty:        penalty,
		FinalScore:           FinalScore(acc, penalty),
		Grade:                e.params.Grades.Grade(acc),
		SpeedFactor:          e.params.Speed,
		StartedAt:            startedAt,
		DurationMs:           durationMs,
	}
}

// Replay scores a complete recorded take in one pass. Events are taken in
// timestamp order.
func Replay(timeline model.Timeline, events []model.DetectedNoteEvent, p Params) *Engine {
	sorted := make([]model.DetectedNoteEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	e := NewEngine(timeline, p)
	for _, ev := range sorted {
		e.OnDetectedNote(ev, ev.TimestampMs)
	}
	e.Advance(math.Inf(1))
	return e
}
