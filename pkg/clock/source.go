package clock

import (
	"sync"
	"time"
)

// TimeSource provides wall-clock now to the scheduler
type TimeSource interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns Time
type FixedClock struct {
	Time time.Time
}

func (c FixedClock) Now() time.Time {
	return c.Time
}

// ManualClock only moves when told to. Used by tests and replays.
type ManualClock struct {
	mu   sync.Mutex
	time time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{time: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = t
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = c.time.Add(d)
	return c.time
}
