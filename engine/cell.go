// Package engine runs the tuning and practice pipelines on their own
// goroutines and publishes their results to whoever is watching.
//
// The audio goroutine owns every buffer and timer. It never takes a lock
// that the UI side could hold across a frame; results cross over through a
// Cell (latest value) and a Feed (stream of values).
package engine

import "sync/atomic"

// Cell holds the most recent snapshot. Stored values must not be mutated
// after Store.
type Cell[T any] struct {
	p atomic.Pointer[T]
}

func (c *Cell[T]) Store(v T) {
	c.p.Store(&v)
}

// Load returns the zero value and false before the first Store.
func (c *Cell[T]) Load() (T, bool) {
	p := c.p.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

func (c *Cell[T]) Clear() {
	c.p.Store(nil)
}

// Feed is a bounded stream to the UI. Publish never blocks; when the reader
// falls behind the oldest value is discarded.
type Feed[T any] struct {
	ch      chan T
	dropped atomic.Uint64
}

func NewFeed[T any](size int) *Feed[T] {
	if size < 1 {
		size = 1
	}
	return &Feed[T]{ch: make(chan T, size)}
}

func (f *Feed[T]) Publish(v T) {
	for {
		select {
		case f.ch <- v:
			return
		default:
		}
		select {
		case <-f.ch:
			f.dropped.Add(1)
		default:
		}
	}
}

// C is read by the UI goroutine. It is never closed.
func (f *Feed[T]) C() <-chan T {
	return f.ch
}

func (f *Feed[T]) Dropped() uint64 {
	return f.dropped.Load()
}

// Drain discards anything queued.
func (f *Feed[T]) Drain() {
	for {
		select {
		case <-f.ch:
		default:
			return
		}
	}
}
