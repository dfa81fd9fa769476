package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jsphweid/fretcoach/config"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/note"
	"github.com/jsphweid/fretcoach/sample"
	"github.com/jsphweid/fretcoach/smoother"
	"github.com/jsphweid/fretcoach/tuning"
)

// Tuner runs pipeline A for one tuning session: samples in, TuningUpdates
// out. Process and everything it touches belong to the goroutine started by
// Start (or to the caller, when driven by hand in tests).
type Tuner struct {
	cfg     config.Config
	session *tuning.Session
	clock   Clock
	logger  *slog.Logger
	status  *StatusLog

	smoother   *smoother.Smoother
	machine    *tuning.StateMachine
	generation uint64
	silent     int
	// last stable reading, shown while the pitch settles
	reading reading

	latest  Cell[model.TuningUpdate]
	updates *Feed[model.TuningUpdate]
	runner  Runner
}

type reading struct {
	frequencyHz float64
	note        model.NoteIdentity
	noteCents   float64
	str         int
}

var noReading = reading{str: -1}

func NewTuner(session *tuning.Session, cfg config.Config, opts ...Option) *Tuner {
	o := buildOptions(opts)
	logger := o.logger.With("component", "tuner", "preset", session.Preset().Name)
	// bass presets sit below the default guitar range
	params := cfg.SmootherParams().Covering(tuning.Span(session.Preset()))
	return &Tuner{
		cfg:        cfg,
		session:    session,
		clock:      o.clock,
		logger:     logger,
		status:     NewStatusLog(logger, cfg.StatusDebounce()),
		smoother:   smoother.New(params),
		machine:    tuning.NewStateMachine(cfg.ToleranceCents, cfg.Hold()),
		generation: session.Generation(),
		reading:    noReading,
		updates:    NewFeed[model.TuningUpdate](cfg.FeedSize),
	}
}

func (t *Tuner) Session() *tuning.Session {
	return t.session
}

func (t *Tuner) Updates() *Feed[model.TuningUpdate] {
	return t.updates
}

// Snapshot is the latest published update. Safe from any goroutine.
func (t *Tuner) Snapshot() (model.TuningUpdate, bool) {
	return t.latest.Load()
}

// Reset drops smoothing history, the hold timer and published state.
func (t *Tuner) Reset() {
	t.smoother.Reset()
	t.machine.Reset()
	t.generation = t.session.Generation()
	t.silent = 0
	t.reading = noReading
	t.status.Forget()
	t.latest.Clear()
	t.updates.Drain()
}

// Process handles one frame. The bool is false when nothing was published,
// which is the case for a rejected sample before the pitch counts as lost.
func (t *Tuner) Process(s model.PitchSample) (model.TuningUpdate, bool) {
	at := t.clock()

	if gen := t.session.Generation(); gen != t.generation {
		t.generation = gen
		t.machine.Reset()
	}
	idx := t.session.CurrentIndex()
	target := t.session.Preset().Strings[idx]

	sm, ok := t.smoother.Push(s)
	if !ok {
		t.silent++
		if t.silent != t.cfg.SilenceFrames {
			return model.TuningUpdate{}, false
		}
		t.smoother.Reset()
		t.machine.Reset()
		t.reading = noReading
		t.logger.Debug("tuner: pitch lost", "frames", t.silent)
		u := t.update(idx, target, model.StatusWaiting, at)
		t.publish(u)
		return u, true
	}
	t.silent = 0

	u := t.update(idx, target, model.StatusWaiting, at)
	if sm.Stable {
		r := reading{frequencyHz: sm.FrequencyHz, str: -1}
		r.note, r.noteCents, _ = note.Map(sm.FrequencyHz, t.cfg.ReferenceHz)
		if i, ok := tuning.MatchString(sm.FrequencyHz, t.session.Preset(), t.cfg.StringToleranceCents); ok {
			r.str = i
		}
		t.reading = r
		u.CentsDeviation = note.Cents(sm.FrequencyHz, target.FrequencyHz)
	}
	u.DetectedFrequencyHz = t.reading.frequencyHz
	u.Note = t.reading.note
	u.NoteCents = t.reading.noteCents
	u.DetectedString = t.reading.str
	u.Status = t.machine.Evaluate(u.CentsDeviation, sm.Stable, at)

	if u.Status == model.StatusInTune {
		t.session.MarkInTune(idx)
		u.TargetString.Tuned = t.session.Strings()[idx].Tuned
		u.Completed = t.session.Completed()
	}

	t.publish(u)
	return u, true
}

func (t *Tuner) update(idx int, target model.PresetString, status model.TuningStatus, at time.Time) model.TuningUpdate {
	strs := t.session.Strings()
	return model.TuningUpdate{
		TargetString:       model.TuningString{PresetString: target, Tuned: strs[idx].Tuned},
		Status:             status,
		CurrentStringIndex: idx,
		TotalStrings:       len(strs),
		DetectedString:     -1,
		Completed:          t.session.Completed(),
		At:                 at,
	}
}

func (t *Tuner) publish(u model.TuningUpdate) {
	t.latest.Store(u)
	t.updates.Publish(u)
	t.status.Set(statusText(u), "string", u.TargetString.Note, "cents", fmt.Sprintf("%+.1f", u.CentsDeviation))
}

func statusText(u model.TuningUpdate) string {
	switch u.Status {
	case model.StatusFlat:
		return "tuner: tune up"
	case model.StatusSharp:
		return "tuner: tune down"
	case model.StatusAlmost:
		return "tuner: almost there"
	case model.StatusInTune:
		return "tuner: in tune"
	}
	return "tuner: play the string"
}

// Run processes samples until the source ends or ctx is cancelled. A stop
// takes effect at the next frame boundary.
func (t *Tuner) Run(ctx context.Context, src sample.Source) error {
	for {
		s, err := src.NextSample(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		t.Process(s)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Start resets all per-run state and runs src on a background goroutine.
func (t *Tuner) Start(ctx context.Context, src sample.Source) error {
	if t.runner.Running() {
		return ErrRunning
	}
	t.Reset()
	t.logger.Info("tuner: started", "strings", t.session.Len())
	return t.runner.Start(ctx, func(ctx context.Context) error {
		return t.Run(ctx, src)
	})
}

func (t *Tuner) Stop() error {
	err := t.runner.Stop(t.cfg.StopTimeout())
	if err != nil {
		t.logger.Warn("tuner: stop", "err", err)
		return err
	}
	t.logger.Info("tuner: stopped")
	return nil
}

func (t *Tuner) Running() bool {
	return t.runner.Running()
}

// Done is closed when the background run ends.
func (t *Tuner) Done() <-chan struct{} {
	return t.runner.Done()
}
