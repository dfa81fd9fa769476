package engine

import (
	"sync"
	"time"
)

// Clock stamps frames. Tests and replays use a FrameClock so hold timing
// does not depend on how fast samples are read.
type Clock func() time.Time

// FrameClock advances by a fixed hop each time it is read.
type FrameClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewFrameClock(start time.Time, step time.Duration) *FrameClock {
	return &FrameClock{now: start, step: step}
}

func (c *FrameClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}
