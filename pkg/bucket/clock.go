package bucket

import (
	"sync"
	"time"
)

// Clock supplies monotonic ticks measured from an arbitrary fixed origin.
// Only differences between two readings are meaningful.
type Clock interface {
	Now() time.Duration
}

// SystemClock reads Go's monotonic clock, so wall-clock adjustments never
// skew refill.
type SystemClock struct {
	origin time.Time
}

// NewSystemClock returns a clock whose origin is the moment of the call.
func NewSystemClock() *SystemClock {
	return &SystemClock{origin: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.origin)
}

// ManualClock is a controllable clock for deterministic tests and simulations.
// Thread-safe for concurrent use.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Duration
}

// NewManualClock creates a ManualClock reading start.
func NewManualClock(start time.Duration) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Advance moves the clock forward by d.
// Panics if d is negative.
func (c *ManualClock) Advance(d time.Duration) {
	if d < 0 {
		panic("bucket: cannot advance clock by negative duration")
	}
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Set moves the clock to an exact reading.
// Panics if t is before the current reading.
func (c *ManualClock) Set(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t < c.now {
		panic("bucket: cannot move clock backwards")
	}
	c.now = t
}
