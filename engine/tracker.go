package engine

import (
	"context"
	"errors"
	"io"

	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
	"github.com/jsphweid/fretcoach/sample"
	"github.com/jsphweid/fretcoach/smoother"
	"github.com/jsphweid/fretcoach/util"
)

// NoteTracker turns a monophonic pitch stream into note onsets. A note is
// reported once its identity has held for confirmFrames stable frames in a
// row, provided it differs from the last reported note or the pitch was lost
// for silenceFrames in between. The confirmation keeps a slide from
// reporting every note it passes.
type NoteTracker struct {
	smoother      *smoother.Smoother
	referenceHz   float64
	silenceFrames int
	confirmFrames int

	current model.NoteIdentity
	active  bool
	silent  int

	pending      model.NoteIdentity
	pendingCount int
}

func NewNoteTracker(p smoother.Params, referenceHz float64, silenceFrames int) *NoteTracker {
	return &NoteTracker{
		smoother:      smoother.New(p),
		referenceHz:   referenceHz,
		silenceFrames: silenceFrames,
		confirmFrames: util.Max(p.MinStableSamples, 1),
	}
}

// Push returns an event stamped atMs on an onset.
func (n *NoteTracker) Push(s model.PitchSample, atMs float64) (model.DetectedNoteEvent, bool) {
	sm, ok := n.smoother.Push(s)
	if !ok {
		n.silent++
		n.pendingCount = 0
		if n.silent >= n.silenceFrames {
			n.active = false
			n.smoother.Reset()
		}
		return model.DetectedNoteEvent{}, false
	}
	n.silent = 0
	if !sm.Stable {
		n.pendingCount = 0
		return model.DetectedNoteEvent{}, false
	}

	id, _, _ := note.Map(sm.FrequencyHz, n.referenceHz)
	if n.pendingCount > 0 && id == n.pending {
		n.pendingCount++
	} else {
		n.pending, n.pendingCount = id, 1
	}
	if n.pendingCount < n.confirmFrames {
		return model.DetectedNoteEvent{}, false
	}
	if n.active && id == n.current {
		return model.DetectedNoteEvent{}, false
	}
	n.current, n.active = id, true
	return model.DetectedNoteEvent{Note: id, TimestampMs: atMs}, true
}

func (n *NoteTracker) Reset() {
	n.smoother.Reset()
	n.active = false
	n.silent = 0
	n.pendingCount = 0
}

// DetectNotes runs a whole pitch source through the tracker. Frame i is
// stamped i*hopMs.
func DetectNotes(ctx context.Context, src sample.Source, tracker *NoteTracker, hopMs float64) ([]model.DetectedNoteEvent, error) {
	var res []model.DetectedNoteEvent
	for i := 0; ; i++ {
		s, err := src.NextSample(ctx)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if ev, ok := tracker.Push(s, float64(i)*hopMs); ok {
			res = append(res, ev)
		}
	}
}
