package bucket

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// State is the token accounting of one bucket: a float64 level that refills
// continuously at fillRate tokens per second and never exceeds capacity.
//
// All methods are safe for concurrent use; every read-modify-write of the
// level and the last update tick happens under a single mutex.
type State struct {
	mu         sync.Mutex
	capacity   float64
	fillRate   float64
	tokens     float64
	lastUpdate time.Duration
}

// Snapshot is a point-in-time copy of a State.
type Snapshot struct {
	Capacity   float64
	FillRate   float64
	Tokens     float64
	LastUpdate time.Duration
}

// New creates a full bucket whose last update is now.
func New(capacity, fillRate float64, now time.Duration) (*State, error) {
	if err := Validate(capacity, fillRate); err != nil {
		return nil, err
	}
	return &State{
		capacity:   capacity,
		fillRate:   fillRate,
		tokens:     capacity,
		lastUpdate: now,
	}, nil
}

// Restore rebuilds a bucket from a snapshot under possibly different limits.
// The carried level is clamped into [0, capacity].
func Restore(capacity, fillRate float64, snap Snapshot) (*State, error) {
	if err := Validate(capacity, fillRate); err != nil {
		return nil, err
	}
	tokens := snap.Tokens
	if math.IsNaN(tokens) || tokens < 0 {
		tokens = 0
	}
	return &State{
		capacity:   capacity,
		fillRate:   fillRate,
		tokens:     min(tokens, capacity),
		lastUpdate: snap.LastUpdate,
	}, nil
}

// TryDraw attempts to take size tokens at tick now.
//
// It returns ErrSizeExceedsCapacity when size is larger than the bucket
// regardless of the current level, ErrInvalidSize for non-positive sizes and
// ErrInsufficientTokens when the refilled level cannot cover size. A failed
// draw leaves the bucket untouched.
func (s *State) TryDraw(size float64, now time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked(size, now)
}

// Draw is TryDraw with the tick read from clock while the lock is held, so
// concurrent callers always commit ticks in order.
func (s *State) Draw(size float64, clock Clock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drawLocked(size, clock.Now())
}

// Level returns the projected token count at now without drawing.
func (s *State) Level(now time.Duration) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectLocked(now)
}

// RetryAfter returns how long until size tokens are projected to be
// available. Returns 0 if a draw of size would succeed at now.
func (s *State) RetryAfter(size float64, now time.Duration) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSizeLocked(size); err != nil {
		return 0, err
	}
	deficit := size - s.projectLocked(now)
	if deficit <= 0 {
		return 0, nil
	}
	return time.Duration(math.Ceil(deficit / s.fillRate * float64(time.Second))), nil
}

// Snapshot returns a copy of the stored fields. Tokens is the level as of
// the last successful draw, not projected to any later tick.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Capacity:   s.capacity,
		FillRate:   s.fillRate,
		Tokens:     s.tokens,
		LastUpdate: s.lastUpdate,
	}
}

func (s *State) Capacity() float64 { return s.capacity }

func (s *State) FillRate() float64 { return s.fillRate }

func (s *State) drawLocked(size float64, now time.Duration) error {
	if err := s.checkSizeLocked(size); err != nil {
		return err
	}

	remaining := s.projectLocked(now) - size
	if remaining < 0 {
		return ErrInsufficientTokens
	}

	s.tokens = remaining
	// A tick older than the last commit adds no refill; keep the newer one.
	s.lastUpdate = max(s.lastUpdate, now)
	return nil
}

func (s *State) checkSizeLocked(size float64) error {
	if size > s.capacity {
		return fmt.Errorf("%w: size %g, capacity %g", ErrSizeExceedsCapacity, size, s.capacity)
	}
	if !(size > 0) {
		return fmt.Errorf("%w: got %g", ErrInvalidSize, size)
	}
	return nil
}

// projectLocked computes min(tokens + elapsed*fillRate, capacity).
// The clamp must be min: refill never carries a bucket past capacity.
func (s *State) projectLocked(now time.Duration) float64 {
	elapsed := max(now-s.lastUpdate, 0)
	refill := elapsed.Seconds() * s.fillRate
	return min(s.tokens+refill, s.capacity)
}

// Validate reports whether capacity and fillRate are positive finite numbers.
func Validate(capacity, fillRate float64) error {
	if !(capacity > 0) || math.IsInf(capacity, 0) {
		return fmt.Errorf("%w: capacity must be positive, got %g", ErrInvalidConfig, capacity)
	}
	if !(fillRate > 0) || math.IsInf(fillRate, 0) {
		return fmt.Errorf("%w: fill rate must be positive, got %g", ErrInvalidConfig, fillRate)
	}
	return nil
}
