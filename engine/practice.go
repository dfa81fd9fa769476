package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jsphweid/fretcoach/config"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/scoring"
)

// Practice runs pipeline B for one play-along. Detected notes and raw pitch
// samples are queued by any goroutine; the scoring engine itself is only
// touched by the run goroutine until it has exited.
type Practice struct {
	id     string
	title  string
	cfg    config.Config
	clock  Clock
	logger *slog.Logger

	engine  *scoring.Engine
	tracker *NoteTracker
	events  chan model.DetectedNoteEvent
	samples chan model.PitchSample

	latest  Cell[model.ScoreSnapshot]
	updates *Feed[model.ScoreSnapshot]
	runner  Runner

	stopMu    sync.Mutex
	mu        sync.Mutex
	startedAt time.Time
	report    *model.ScoreReport
}

func NewPractice(title string, timeline model.Timeline, speed float64, cfg config.Config, opts ...Option) *Practice {
	o := buildOptions(opts)
	id := uuid.NewString()
	p := &Practice{
		id:      id,
		title:   title,
		cfg:     cfg,
		clock:   o.clock,
		logger:  o.logger.With("component", "practice", "session", id),
		engine:  scoring.NewEngine(timeline, cfg.ScoringParams(speed)),
		tracker: NewNoteTracker(cfg.SmootherParams(), cfg.ReferenceHz, cfg.SilenceFrames),
		events:  make(chan model.DetectedNoteEvent, cfg.FeedSize*4),
		samples: make(chan model.PitchSample, cfg.FeedSize*4),
		updates: NewFeed[model.ScoreSnapshot](cfg.FeedSize),
	}
	p.latest.Store(p.engine.Snapshot())
	return p
}

func (p *Practice) ID() string {
	return p.id
}

func (p *Practice) Title() string {
	return p.title
}

func (p *Practice) Updates() *Feed[model.ScoreSnapshot] {
	return p.updates
}

func (p *Practice) Snapshot() model.ScoreSnapshot {
	s, _ := p.latest.Load()
	return s
}

// PlaybackMs is the time since Start on the session clock.
func (p *Practice) PlaybackMs() float64 {
	p.mu.Lock()
	started := p.startedAt
	p.mu.Unlock()
	if started.IsZero() {
		return 0
	}
	return float64(p.clock().Sub(started)) / float64(time.Millisecond)
}

// Submit queues a detected note. It reports false if the queue is full and
// the note was dropped.
func (p *Practice) Submit(ev model.DetectedNoteEvent) bool {
	select {
	case p.events <- ev:
		return true
	default:
		return false
	}
}

// SubmitSample queues a raw pitch sample for the note tracker.
func (p *Practice) SubmitSample(s model.PitchSample) bool {
	select {
	case p.samples <- s:
		return true
	default:
		return false
	}
}

// Start begins the playback clock. A Practice runs once.
func (p *Practice) Start(ctx context.Context) error {
	p.mu.Lock()
	if !p.startedAt.IsZero() {
		p.mu.Unlock()
		return ErrStarted
	}
	p.startedAt = p.clock()
	p.mu.Unlock()
	p.logger.Info("practice: started", "title", p.title, "notes", p.engine.Snapshot().TotalNotes,
		"speed", p.engine.Params().Speed)
	return p.runner.Start(ctx, p.run)
}

func (p *Practice) run(ctx context.Context) error {
	tick := time.NewTicker(p.cfg.Tick())
	defer tick.Stop()
	end := p.engine.ScaledDurationMs() + p.engine.Params().WindowMs

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			p.handle(ev)
		case s := <-p.samples:
			if ev, ok := p.tracker.Push(s, p.PlaybackMs()); ok {
				p.handle(ev)
			}
		case <-tick.C:
			p.drain()
			now := p.PlaybackMs()
			if p.engine.Advance(now) > 0 {
				p.publish()
			}
			if p.engine.Done() && now > end {
				p.logger.Info("practice: timeline finished")
				return nil
			}
		}
	}
}

// drain scores every queued note before the clock is allowed to expire
// anything, so a backlog is judged by its own timestamps.
func (p *Practice) drain() {
	for {
		select {
		case ev := <-p.events:
			p.handle(ev)
		default:
			return
		}
	}
}

func (p *Practice) handle(ev model.DetectedNoteEvent) {
	res := p.engine.OnDetectedNote(ev, ev.TimestampMs)
	p.logger.Debug("practice: note", "note", ev.Note.String(), "at", ev.TimestampMs,
		"outcome", res.Outcome.String(), "index", res.Index, "error_ms", res.TimingErrorMs)
	p.publish()
}

func (p *Practice) publish() {
	s := p.engine.Snapshot()
	p.latest.Store(s)
	p.updates.Publish(s)
}

func (p *Practice) Running() bool {
	return p.runner.Running()
}

func (p *Practice) Done() <-chan struct{} {
	return p.runner.Done()
}

// flush scores everything still queued, then expires the windows that have
// closed by now. Only called once the run goroutine has exited.
func (p *Practice) flush(now float64) {
	for {
		select {
		case ev := <-p.events:
			p.handle(ev)
		case s := <-p.samples:
			if ev, ok := p.tracker.Push(s, now); ok {
				p.handle(ev)
			}
		default:
			p.engine.Advance(now)
			p.publish()
			return
		}
	}
}

// Stop ends the session and returns the final report. Notes accepted by
// Submit before the call are scored. Repeated calls return the same report.
func (p *Practice) Stop() (model.ScoreReport, error) {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	if err := p.runner.Stop(p.cfg.StopTimeout()); err != nil {
		p.logger.Warn("practice: stop", "err", err)
		return model.ScoreReport{}, err
	}
	if r, ok := p.Report(); ok {
		return r, nil
	}

	now := p.PlaybackMs()
	p.flush(now)

	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.engine.Report(p.id, p.title, p.startedAt, now)
	p.report = &r
	p.logger.Info("practice: finished", "accuracy", r.AccuracyPercent, "score", r.FinalScore, "grade", r.Grade)
	return r, nil
}

// Report is the final report, once Stop has produced one.
func (p *Practice) Report() (model.ScoreReport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.report == nil {
		return model.ScoreReport{}, false
	}
	return *p.report, true
}
