package async

import (
	"context"
	"fmt"
	"time"
)

// Handle is a read-only view of an activity that may still be running.
// It lets observers wait for or poll an activity without access to its result.
type Handle interface {
	Done() <-chan struct{}
	IsComplete() bool
}

// Future represents the result of an asynchronous computation.
// A Future is completed exactly once; its result never changes afterwards.
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

var _ Handle = (*Future[struct{}])(nil)

// Await waits for the asynchronous function to complete and returns its result and error.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitContext waits for completion or for ctx to be done, whichever comes first.
// When ctx wins, the zero value and ctx.Err() are returned and the computation
// keeps running; the Future can still be awaited later.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AwaitWithTimeout waits for the asynchronous function to complete with a timeout.
// If the timeout occurs before completion, returns ErrTimeout.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.result, f.err
	case <-timer.C:
		var zero T
		return zero, ErrTimeout
	}
}

// Done returns a channel closed once the Future is complete.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsComplete checks if the asynchronous function is complete without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Go runs fn on its own goroutine and returns a Future for its result.
//
// If ctx is already done, fn is never started and the Future completes with
// ctx.Err(). Otherwise fn owns ctx: Go itself never waits on it, so an fn
// that ignores cancellation runs to completion. A panic inside fn completes
// the Future with an error wrapping ErrPanic.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	if err := ctx.Err(); err != nil {
		return Failed[T](err)
	}

	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.result, f.err = zero, fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}()
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Resolved returns an already completed Future holding v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{result: v, done: make(chan struct{})}
	close(f.done)
	return f
}

// Failed returns an already completed Future holding err.
func Failed[T any](err error) *Future[T] {
	f := &Future[T]{err: err, done: make(chan struct{})}
	close(f.done)
	return f
}
