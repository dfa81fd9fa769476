package engine

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrRunning     = errors.New("engine: already running")
	ErrStopTimeout = errors.New("engine: task did not stop in time")
	ErrStarted     = errors.New("engine: session already started")
)

// Runner owns one background task. Stop cancels it and waits a bounded time;
// a task that ignores cancellation is abandoned, not killed.
type Runner struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start runs loop on a new goroutine with a context that Stop cancels.
func (r *Runner) Start(ctx context.Context, loop func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		select {
		case <-r.done:
		default:
			return ErrRunning
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel, r.done, r.err = cancel, done, nil

	go func() {
		defer close(done)
		err := loop(ctx)
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}()
	return nil
}

// Running is false once the task has returned, whether or not Stop was
// called.
func (r *Runner) Running() bool {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Done is closed when the current task returns. Nil if never started.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Stop is safe to call when nothing is running. It returns the task's own
// error (context.Canceled is swallowed) or ErrStopTimeout.
func (r *Runner) Stop(timeout time.Duration) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
	case <-t.C:
		return ErrStopTimeout
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if errors.Is(r.err, context.Canceled) {
		return nil
	}
	return r.err
}
