package gate

import (
	"sync"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/bucket"
)

type entry struct {
	limits Limits
	state  *bucket.State
}

// registry maps keys to buckets. Lookup and draw happen under one lock so a
// bucket can never be replaced or swept between being found and being drawn
// from. Sweeping is lazy: it piggybacks on draws, so no goroutine outlives a call.
type registry struct {
	mu            sync.Mutex
	clock         bucket.Clock
	entries       map[string]*entry
	sweepInterval time.Duration
	lastSweep     time.Duration
}

func newRegistry(clock bucket.Clock, sweepInterval time.Duration) *registry {
	return &registry{
		clock:         clock,
		entries:       make(map[string]*entry),
		sweepInterval: sweepInterval,
		lastSweep:     clock.Now(),
	}
}

type drawResult struct {
	retryAfter time.Duration
}

// draw takes size tokens from the bucket for key, creating it full on first
// use. When limits differ from the ones the bucket was built with, the bucket
// is rebuilt carrying over its level, clamped to the new capacity.
func (r *registry) draw(key string, limits Limits, size float64) (drawResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.sweepLocked(now)

	e, err := r.entryLocked(key, limits, now)
	if err != nil {
		return drawResult{}, err
	}

	if err := e.state.TryDraw(size, now); err != nil {
		var res drawResult
		if !bucket.IsConfigError(err) {
			res.retryAfter, _ = e.state.RetryAfter(size, now)
		}
		return res, err
	}
	return drawResult{}, nil
}

func (r *registry) entryLocked(key string, limits Limits, now time.Duration) (*entry, error) {
	e, ok := r.entries[key]
	if ok && e.limits == limits {
		return e, nil
	}

	var (
		state *bucket.State
		err   error
	)
	if ok {
		state, err = bucket.Restore(limits.Capacity, limits.FillRate, e.state.Snapshot())
	} else {
		state, err = bucket.New(limits.Capacity, limits.FillRate, now)
	}
	if err != nil {
		return nil, err
	}

	e = &entry{limits: limits, state: state}
	r.entries[key] = e
	return e, nil
}

// sweepLocked drops buckets that have refilled to capacity. A full bucket is
// indistinguishable from a freshly created one, so dropping it changes no
// admission decision.
func (r *registry) sweepLocked(now time.Duration) {
	if r.sweepInterval <= 0 || now-r.lastSweep < r.sweepInterval {
		return
	}
	r.lastSweep = now

	for key, e := range r.entries {
		if e.state.Level(now) >= e.limits.Capacity {
			delete(r.entries, key)
		}
	}
}

func (r *registry) snapshot(key string) (bucket.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return bucket.Snapshot{}, false
	}
	return e.state.Snapshot(), true
}
