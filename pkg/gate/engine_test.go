package gate_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/pkg/async"
	"github.com/dmitrymomot/gatekeeper/pkg/bucket"
	"github.com/dmitrymomot/gatekeeper/pkg/gate"
)

type hookRecorder struct {
	mu     sync.Mutex
	events []gate.RejectionEvent
}

func (h *hookRecorder) record(_ context.Context, ev gate.RejectionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
}

func (h *hookRecorder) all() []gate.RejectionEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]gate.RejectionEvent(nil), h.events...)
}

func newPolicy(t *testing.T, cfg gate.Config, opts ...gate.Option) *gate.Policy {
	t.Helper()
	p, err := gate.New(cfg, opts...)
	require.NoError(t, err)
	return p
}

func ok(_ context.Context, s gate.Scope) (string, error) {
	return "ok:" + s.Key, nil
}

func TestExecuteAdmitsAndRuns(t *testing.T) {
	t.Parallel()

	clock := bucket.NewManualClock(0)
	p := newPolicy(t, gate.Config{Capacity: 3, FillRate: 1}, gate.WithClock(clock))

	res, err := gate.Execute(context.Background(), p, gate.Scope{Key: "a"}, ok)
	require.NoError(t, err)
	assert.Equal(t, "ok:a", res)

	snap, found := p.Snapshot("a")
	require.True(t, found)
	assert.Equal(t, 2.0, snap.Tokens)
}

func TestExecuteRejectsWhenBucketIsEmpty(t *testing.T) {
	t.Parallel()

	clock := bucket.NewManualClock(0)
	hooks := &hookRecorder{}
	p := newPolicy(t, gate.Config{Capacity: 1, FillRate: 0.5},
		gate.WithClock(clock),
		gate.WithOnRejected(hooks.record),
	)

	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, ok)
	require.NoError(t, err)

	var ran atomic.Bool
	_, err = gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) (string, error) {
		ran.Store(true)
		return "", nil
	})
	require.Error(t, err)
	assert.False(t, ran.Load(), "rejected action must not run")
	assert.ErrorIs(t, err, gate.ErrRejected)
	assert.ErrorIs(t, err, gate.ErrInsufficientTokens)
	assert.ErrorIs(t, err, bucket.ErrInsufficientTokens)

	var rej *gate.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, gate.ReasonInsufficientTokens, rej.Reason)
	assert.Equal(t, "k", rej.Key)
	assert.NotEmpty(t, rej.ExecutionID)
	assert.Equal(t, 2*time.Second, rej.RetryAfter)

	events := hooks.all()
	require.Len(t, events, 1)
	assert.Equal(t, rej.ExecutionID, events[0].ExecutionID)
	assert.Equal(t, gate.ReasonInsufficientTokens, events[0].Reason)
	assert.Nil(t, events[0].Abandoned)

	// Refill restores admission.
	clock.Advance(2 * time.Second)
	_, err = gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, ok)
	assert.NoError(t, err)
}

func TestExecuteKeysAreIndependent(t *testing.T) {
	t.Parallel()

	p := newPolicy(t, gate.Config{Capacity: 1, FillRate: 0.001}, gate.WithClock(bucket.NewManualClock(0)))

	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "a"}, ok)
	require.NoError(t, err)
	_, err = gate.Execute(context.Background(), p, gate.Scope{Key: "b"}, ok)
	require.NoError(t, err)
	_, err = gate.Execute(context.Background(), p, gate.Scope{Key: "a"}, ok)
	assert.ErrorIs(t, err, gate.ErrInsufficientTokens)
}

func TestExecuteSizeAboveCapacityIsConfigurationError(t *testing.T) {
	t.Parallel()

	hooks := &hookRecorder{}
	p := newPolicy(t, gate.Config{Capacity: 1000, FillRate: 2000},
		gate.WithClock(bucket.NewManualClock(0)),
		gate.WithOnRejected(hooks.record),
	)

	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k", Size: 2000}, ok)
	assert.ErrorIs(t, err, gate.ErrConfiguration)
	assert.ErrorIs(t, err, bucket.ErrSizeExceedsCapacity)

	reason, found := gate.ReasonOf(err)
	require.True(t, found)
	assert.Equal(t, gate.ReasonConfiguration, reason)
	require.Len(t, hooks.all(), 1)

	snap, found := p.Snapshot("k")
	require.True(t, found)
	assert.Equal(t, 1000.0, snap.Tokens)
}

func TestExecuteProviderFailureIsConfigurationError(t *testing.T) {
	t.Parallel()

	boom := errors.New("limits backend down")
	p := newPolicy(t, gate.Config{Capacity: 10, FillRate: 1},
		gate.WithProvider(gate.ProviderFunc(func(context.Context, gate.Scope) (gate.Limits, error) {
			return gate.Limits{}, boom
		})),
	)

	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, ok)
	assert.ErrorIs(t, err, gate.ErrConfiguration)
	assert.ErrorIs(t, err, boom)
}

func TestExecuteAlreadyCancelled(t *testing.T) {
	t.Parallel()

	for _, strategy := range []gate.Strategy{gate.Optimistic, gate.Pessimistic} {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()

			hooks := &hookRecorder{}
			p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Strategy: strategy},
				gate.WithClock(bucket.NewManualClock(0)),
				gate.WithOnRejected(hooks.record),
			)
			_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, ok)
			require.NoError(t, err)
			before, _ := p.Snapshot("k")

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			var ran atomic.Bool
			_, err = gate.Execute(ctx, p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) (string, error) {
				ran.Store(true)
				return "", nil
			})
			assert.ErrorIs(t, err, context.Canceled)
			assert.NotErrorIs(t, err, gate.ErrRejected)
			assert.False(t, ran.Load())
			assert.Empty(t, hooks.all())

			after, _ := p.Snapshot("k")
			assert.Equal(t, before, after)
		})
	}
}

func TestExecuteActionErrorPropagatesUnchanged(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	for _, strategy := range []gate.Strategy{gate.Optimistic, gate.Pessimistic} {
		t.Run(strategy.String(), func(t *testing.T) {
			t.Parallel()

			p := newPolicy(t, gate.Config{Capacity: 1, FillRate: 0.001, Strategy: strategy, Timeout: time.Minute},
				gate.WithClock(bucket.NewManualClock(0)))

			_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) (int, error) {
				return 0, boom
			})
			assert.Same(t, boom, err)

			// Tokens are not refunded after a failure.
			snap, _ := p.Snapshot("k")
			assert.Equal(t, 0.0, snap.Tokens)
		})
	}
}

func TestOptimisticTimeout(t *testing.T) {
	t.Parallel()

	hooks := &hookRecorder{}
	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Strategy: gate.Optimistic, Timeout: 20 * time.Millisecond},
		gate.WithOnRejected(hooks.record))

	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, func(ctx context.Context, _ gate.Scope) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, gate.ErrTimedOut)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	events := hooks.all()
	require.Len(t, events, 1)
	assert.Equal(t, gate.ReasonTimedOut, events[0].Reason)
	assert.Nil(t, events[0].Abandoned)
}

func TestOptimisticSuccessAfterBoundIsCompleted(t *testing.T) {
	t.Parallel()

	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Timeout: time.Millisecond})

	res, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, func(ctx context.Context, _ gate.Scope) (int, error) {
		<-ctx.Done()
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res)
}

func TestPessimisticTimeoutAbandonsAction(t *testing.T) {
	t.Parallel()

	hooks := &hookRecorder{}
	timeout := 30 * time.Millisecond
	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Strategy: gate.Pessimistic, Timeout: timeout},
		gate.WithOnRejected(hooks.record))

	release := make(chan struct{})
	start := time.Now()
	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) (int, error) {
		<-release // ignores cancellation
		return 1, nil
	})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, gate.ErrTimedOut)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, 5*time.Second)

	events := hooks.all()
	require.Len(t, events, 1)
	require.NotNil(t, events[0].Abandoned)
	assert.False(t, events[0].Abandoned.IsComplete())

	close(release)
	select {
	case <-events[0].Abandoned.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("abandoned action never finished")
	}
}

func TestPessimisticCallerCancellation(t *testing.T) {
	t.Parallel()

	hooks := &hookRecorder{}
	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Strategy: gate.Pessimistic, Timeout: time.Minute},
		gate.WithOnRejected(hooks.record))

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := gate.Execute(ctx, p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, gate.ErrTimedOut)
	assert.Empty(t, hooks.all())
}

func TestOptimisticCallerCancellation(t *testing.T) {
	t.Parallel()

	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	_, err := gate.Execute(ctx, p, gate.Scope{Key: "k"}, func(ctx context.Context, _ gate.Scope) (int, error) {
		cancel()
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, gate.ErrRejected)
}

func TestPessimisticRecoversPanic(t *testing.T) {
	t.Parallel()

	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Strategy: gate.Pessimistic})

	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) (int, error) {
		panic("kaboom")
	})
	assert.ErrorIs(t, err, async.ErrPanic)
}

func TestScopeValuesReachAction(t *testing.T) {
	t.Parallel()

	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1})
	scope := gate.Scope{Key: "k", Values: map[string]any{"user": 42}}

	got, err := gate.Execute(context.Background(), p, scope, func(_ context.Context, s gate.Scope) (any, error) {
		v, _ := s.Value("user")
		return v, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestExecuteAsync(t *testing.T) {
	t.Parallel()

	t.Run("completes with the action result", func(t *testing.T) {
		t.Parallel()

		p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1})
		fut := gate.ExecuteAsync(context.Background(), p, gate.Scope{Key: "k"}, func(ctx context.Context, _ gate.Scope) *async.Future[int] {
			return async.Go(ctx, func(context.Context) (int, error) { return 9, nil })
		})
		res, err := fut.Await()
		require.NoError(t, err)
		assert.Equal(t, 9, res)
	})

	t.Run("rejects when bucket is empty", func(t *testing.T) {
		t.Parallel()

		p := newPolicy(t, gate.Config{Capacity: 1, FillRate: 0.001}, gate.WithClock(bucket.NewManualClock(0)))
		start := func(context.Context, gate.Scope) *async.Future[int] { return async.Resolved(1) }

		_, err := gate.ExecuteAsync(context.Background(), p, gate.Scope{Key: "k"}, start).Await()
		require.NoError(t, err)
		_, err = gate.ExecuteAsync(context.Background(), p, gate.Scope{Key: "k"}, start).Await()
		assert.ErrorIs(t, err, gate.ErrInsufficientTokens)
	})

	t.Run("nil future is an error", func(t *testing.T) {
		t.Parallel()

		p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1})
		_, err := gate.ExecuteAsync(context.Background(), p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) *async.Future[int] {
			return nil
		}).Await()
		assert.ErrorIs(t, err, gate.ErrNilFuture)
	})

	t.Run("pessimistic timeout", func(t *testing.T) {
		t.Parallel()

		hooks := &hookRecorder{}
		p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Strategy: gate.Pessimistic, Timeout: 20 * time.Millisecond},
			gate.WithOnRejected(hooks.record))

		release := make(chan struct{})
		defer close(release)
		_, err := gate.ExecuteAsync(context.Background(), p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) *async.Future[int] {
			return async.Go(context.Background(), func(context.Context) (int, error) {
				<-release
				return 1, nil
			})
		}).Await()
		assert.ErrorIs(t, err, gate.ErrTimedOut)

		events := hooks.all()
		require.Len(t, events, 1)
		assert.NotNil(t, events[0].Abandoned)
	})

	t.Run("already cancelled", func(t *testing.T) {
		t.Parallel()

		p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := gate.ExecuteAsync(ctx, p, gate.Scope{Key: "k"}, func(context.Context, gate.Scope) *async.Future[int] {
			return async.Resolved(1)
		}).Await()
		assert.ErrorIs(t, err, context.Canceled)

		_, found := p.Snapshot("k")
		assert.False(t, found)
	})
}

func TestExecuteConcurrentAdmissionsNeverOverdraw(t *testing.T) {
	t.Parallel()

	p := newPolicy(t, gate.Config{Capacity: 50, FillRate: 1}, gate.WithClock(bucket.NewManualClock(0)))

	var (
		wg       sync.WaitGroup
		admitted atomic.Int64
	)
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gate.Execute(context.Background(), p, gate.Scope{Key: "shared"}, ok); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), admitted.Load())
}

func TestExecutionIDInActionContext(t *testing.T) {
	t.Parallel()

	hooks := &hookRecorder{}
	p := newPolicy(t, gate.Config{Capacity: 5, FillRate: 1, Timeout: time.Millisecond},
		gate.WithOnRejected(hooks.record))

	var seen string
	_, err := gate.Execute(context.Background(), p, gate.Scope{Key: "k"}, func(ctx context.Context, _ gate.Scope) (int, error) {
		seen = gate.ExecutionID(ctx)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, gate.ErrTimedOut)
	require.NotEmpty(t, seen)

	events := hooks.all()
	require.Len(t, events, 1)
	assert.Equal(t, seen, events[0].ExecutionID)

	attr, found := gate.LogAttr(context.Background())
	assert.False(t, found)
	assert.Empty(t, attr.Key)
}
