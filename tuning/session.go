package tuning

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jsphweid/fretcoach/model"
)

type CompletionMode string

const (
	// every string has been marked tuned, by the user or by reaching IN_TUNE
	CompleteAllTuned CompletionMode = "all_tuned"
	// the final string has reached IN_TUNE
	CompleteLastInTune CompletionMode = "last_in_tune"
)

func ParseCompletionMode(s string) (CompletionMode, error) {
	switch CompletionMode(s) {
	case CompleteAllTuned, CompleteLastInTune:
		return CompletionMode(s), nil
	}
	return "", fmt.Errorf("tuning: unknown completion mode %q", s)
}

// Session walks the strings of a preset.
//
// Index changes come from the UI goroutine and are serialised by mu. The
// audio goroutine reads the index and generation lock-free every frame, so
// it never observes an index outside [0, len(strings)).
type Session struct {
	preset model.TuningPreset
	mode   CompletionMode

	mu      sync.Mutex
	strings []model.TuningString

	index      atomic.Int32
	generation atomic.Uint64
	completed  atomic.Bool
}

func NewSession(preset model.TuningPreset, mode CompletionMode) (*Session, error) {
	if len(preset.Strings) == 0 {
		return nil, fmt.Errorf("tuning: preset %q has no strings", preset.Name)
	}
	if mode == "" {
		mode = CompleteAllTuned
	}

	strs := make([]model.TuningString, len(preset.Strings))
	for i, p := range preset.Strings {
		strs[i] = model.TuningString{PresetString: p}
	}
	return &Session{preset: preset, mode: mode, strings: strs}, nil
}

func (s *Session) Preset() model.TuningPreset {
	return s.preset
}

func (s *Session) Len() int {
	return len(s.preset.Strings)
}

func (s *Session) CurrentIndex() int {
	return int(s.index.Load())
}

// Generation changes every time the current string changes. The audio side
// compares it frame to frame to know when to restart its hold timer.
func (s *Session) Generation() uint64 {
	return s.generation.Load()
}

// TargetFrequency reads only immutable preset data, no lock.
func (s *Session) TargetFrequency() float64 {
	return s.preset.Strings[s.CurrentIndex()].FrequencyHz
}

func (s *Session) CurrentTarget() model.TuningString {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strings[s.CurrentIndex()]
}

func (s *Session) Strings() []model.TuningString {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TuningString, len(s.strings))
	copy(out, s.strings)
	return out
}

func (s *Session) Completed() bool {
	return s.completed.Load()
}

// Advance moves to the next string. Returns false if already on the last.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(1)
}

// Retreat moves to the previous string, clamped at the first.
func (s *Session) Retreat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveLocked(-1)
}

// ConfirmCurrentAndAdvance marks the current string tuned, then advances.
func (s *Session) ConfirmCurrentAndAdvance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[s.CurrentIndex()].Tuned = true
	s.checkCompletedLocked(false)
	return s.moveLocked(1)
}

// MarkInTune records that the string at index reached IN_TUNE. A stale index
// (the UI moved on meanwhile) is ignored.
func (s *Session) MarkInTune(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index != s.CurrentIndex() {
		return
	}
	s.strings[index].Tuned = true
	s.checkCompletedLocked(index == len(s.strings)-1)
}

func (s *Session) moveLocked(delta int) bool {
	cur := s.CurrentIndex()
	next := cur + delta
	if next < 0 || next >= len(s.strings) {
		return false
	}
	s.index.Store(int32(next))
	s.generation.Add(1)
	return true
}

func (s *Session) checkCompletedLocked(lastInTune bool) {
	switch s.mode {
	case CompleteLastInTune:
		if lastInTune {
			s.completed.Store(true)
		}
	default:
		for _, str := range s.strings {
			if !str.Tuned {
				return
			}
		}
		s.completed.Store(true)
	}
}
