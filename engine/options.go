package engine

import (
	"log/slog"
	"time"
)

type options struct {
	clock  Clock
	logger *slog.Logger
}

type Option func(*options)

// WithClock replaces time.Now, e.g. with a FrameClock for replays.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
