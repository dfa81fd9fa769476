// Package sample is the pitch source boundary. A Source hands out one pitch
// estimate per analysis frame; where the estimates come from (microphone,
// recording, test fixture) is not this package's business.
package sample

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jsphweid/fretcoach/model"
)

var ErrAudioUnavailable = errors.New("sample: audio stream unavailable")

// Source yields pitch samples until io.EOF. NextSample blocks until a
// sample is available or ctx is done.
type Source interface {
	NextSample(ctx context.Context) (model.PitchSample, error)
}

type sliceSource struct {
	samples []model.PitchSample
	pos     int
}

func FromSlice(samples []model.PitchSample) Source {
	return &sliceSource{samples: samples}
}

func (s *sliceSource) NextSample(ctx context.Context) (model.PitchSample, error) {
	if err := ctx.Err(); err != nil {
		return model.PitchSample{}, err
	}
	if s.pos >= len(s.samples) {
		return model.PitchSample{}, io.EOF
	}
	res := s.samples[s.pos]
	s.pos++
	return res, nil
}

// Chan is a push-style source for callers that receive frames from an audio
// callback. Push never blocks: when the buffer is full the oldest frame is
// dropped.
type Chan struct {
	ch     chan model.PitchSample
	closed chan struct{}
}

func NewChan(size int) *Chan {
	if size < 1 {
		size = 1
	}
	return &Chan{ch: make(chan model.PitchSample, size), closed: make(chan struct{})}
}

// Push reports false if a queued sample had to be dropped to make room.
func (c *Chan) Push(s model.PitchSample) bool {
	dropped := false
	for {
		select {
		case c.ch <- s:
			return !dropped
		default:
		}
		select {
		case <-c.ch:
			dropped = true
		default:
		}
	}
}

// Reset drops everything queued.
func (c *Chan) Reset() {
	for {
		select {
		case <-c.ch:
		default:
			return
		}
	}
}

// Close ends the stream once the queued samples are consumed.
func (c *Chan) Close() {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
}

func (c *Chan) NextSample(ctx context.Context) (model.PitchSample, error) {
	select {
	case s := <-c.ch:
		return s, nil
	default:
	}
	select {
	case s := <-c.ch:
		return s, nil
	case <-c.closed:
		select {
		case s := <-c.ch:
			return s, nil
		default:
			return model.PitchSample{}, io.EOF
		}
	case <-ctx.Done():
		return model.PitchSample{}, ctx.Err()
	}
}

// Replay reads "frequencyHz confidence" lines. Blank lines and lines
// starting with # are skipped, as are lines that do not parse. A line with
// only a frequency gets confidence 1.
type Replay struct {
	scanner *bufio.Scanner
	closer  io.Closer
	pace    time.Duration
	next    time.Time
	line    int
	skipped int
}

// NewReplay paces output at one sample per pace when pace > 0.
func NewReplay(r io.Reader, pace time.Duration) *Replay {
	rp := &Replay{scanner: bufio.NewScanner(r), pace: pace}
	if c, ok := r.(io.Closer); ok {
		rp.closer = c
	}
	return rp
}

// Open replays a recorded pitch track from disk.
func Open(path string, pace time.Duration) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
	}
	return NewReplay(f, pace), nil
}

func (r *Replay) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Skipped counts lines that did not parse.
func (r *Replay) Skipped() int {
	return r.skipped
}

func (r *Replay) NextSample(ctx context.Context) (model.PitchSample, error) {
	for r.scanner.Scan() {
		r.line++
		s, ok, err := ParseLine(r.scanner.Text())
		if err != nil {
			r.skipped++
			continue
		}
		if !ok {
			continue
		}
		if err := r.wait(ctx); err != nil {
			return model.PitchSample{}, err
		}
		return s, nil
	}
	if err := r.scanner.Err(); err != nil {
		return model.PitchSample{}, fmt.Errorf("sample: line %d: %w", r.line, err)
	}
	return model.PitchSample{}, io.EOF
}

func (r *Replay) wait(ctx context.Context) error {
	if r.pace <= 0 {
		return ctx.Err()
	}
	now := time.Now()
	if r.next.IsZero() {
		r.next = now
	}
	if d := r.next.Sub(now); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.next = r.next.Add(r.pace)
	return nil
}

// ParseLine returns ok=false for blank and comment lines.
func ParseLine(line string) (model.PitchSample, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return model.PitchSample{}, false, nil
	}
	fields := strings.Fields(line)
	if len(fields) > 2 {
		return model.PitchSample{}, false, fmt.Errorf("sample: want 1 or 2 fields, got %d", len(fields))
	}
	f, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return model.PitchSample{}, false, fmt.Errorf("sample: frequency: %w", err)
	}
	conf := 1.0
	if len(fields) == 2 {
		conf, err = strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return model.PitchSample{}, false, fmt.Errorf("sample: confidence: %w", err)
		}
	}
	return model.PitchSample{FrequencyHz: f, Confidence: conf}, true, nil
}

// ReadAll drains a Source, for tests and offline analysis.
func ReadAll(ctx context.Context, src Source) ([]model.PitchSample, error) {
	var res []model.PitchSample
	for {
		s, err := src.NextSample(ctx)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res = append(res, s)
	}
}
