package engine

import (
	"log/slog"
	"time"

	"github.com/bep/debounce"
)

// StatusLog writes human readable status lines at a slower cadence than the
// frame rate. Only changes are logged, and a burst of changes collapses into
// the last one.
type StatusLog struct {
	logger    *slog.Logger
	debounced func(f func())
	last      string
}

// NewStatusLog logs every change immediately when after is 0.
func NewStatusLog(logger *slog.Logger, after time.Duration) *StatusLog {
	s := &StatusLog{logger: logger}
	if after > 0 {
		s.debounced = debounce.New(after)
	}
	return s
}

// Set is called from the audio goroutine only.
func (s *StatusLog) Set(text string, args ...any) {
	if text == s.last {
		return
	}
	s.last = text
	write := func() { s.logger.Info(text, args...) }
	if s.debounced == nil {
		write()
		return
	}
	s.debounced(write)
}

// Forget makes the next Set log even if the text repeats.
func (s *StatusLog) Forget() {
	s.last = ""
}
