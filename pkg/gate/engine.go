package gate

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/async"
	"github.com/dmitrymomot/gatekeeper/pkg/logger"
)

// Action is a unit of work run synchronously by Execute.
type Action[T any] func(ctx context.Context, scope Scope) (T, error)

// AsyncAction starts a unit of work and returns its already running Future.
type AsyncAction[T any] func(ctx context.Context, scope Scope) *async.Future[T]

// invoker abstracts how an admitted action is run: inline on the caller's
// goroutine or detached on its own. The engine algorithm is the same for both.
type invoker[T any] struct {
	inline   func(ctx context.Context, scope Scope) (T, error)
	detached func(ctx context.Context, scope Scope) *async.Future[T]
}

func syncInvoker[T any](action Action[T]) invoker[T] {
	return invoker[T]{
		inline: action,
		detached: func(ctx context.Context, scope Scope) *async.Future[T] {
			return async.Go(ctx, func(ctx context.Context) (T, error) {
				return action(ctx, scope)
			})
		},
	}
}

func asyncInvoker[T any](action AsyncAction[T]) invoker[T] {
	start := func(ctx context.Context, scope Scope) *async.Future[T] {
		if f := action(ctx, scope); f != nil {
			return f
		}
		return async.Failed[T](ErrNilFuture)
	}
	return invoker[T]{
		inline: func(ctx context.Context, scope Scope) (T, error) {
			return start(ctx, scope).Await()
		},
		detached: start,
	}
}

// Execute admits scope through p and, when admitted, runs action under the
// policy's timeout strategy.
//
// A rejection is returned as a *RejectedError and action is not run. Tokens
// drawn for an admitted execution are never refunded, whatever its outcome.
// If ctx is already done, ctx.Err() is returned without drawing. Errors from
// action other than an elapsed bound are returned unchanged.
func Execute[T any](ctx context.Context, p *Policy, scope Scope, action Action[T]) (T, error) {
	return run(ctx, p, scope, syncInvoker(action))
}

// ExecuteAsync is the asynchronous form of Execute. Admission and the wait
// happen on a new goroutine; the returned Future completes with the same
// result Execute would return.
func ExecuteAsync[T any](ctx context.Context, p *Policy, scope Scope, action AsyncAction[T]) *async.Future[T] {
	return async.Go(ctx, func(ctx context.Context) (T, error) {
		return run(ctx, p, scope, asyncInvoker(action))
	})
}

func run[T any](ctx context.Context, p *Policy, scope Scope, inv invoker[T]) (T, error) {
	var zero T

	ex := newExecution(scope, p.cfg.RequestSize)
	if err := p.admit(ctx, ex); err != nil {
		return zero, err
	}

	runCtx, cancel := p.boundContext(ctx)
	defer cancel()
	runCtx = withExecutionID(runCtx, ex.id)
	ex.fire(eventStart)

	if p.cfg.Strategy == Optimistic {
		res, err := inv.inline(runCtx, ex.scope)
		return finish(ctx, runCtx, p, ex, res, err)
	}

	fut := inv.detached(runCtx, ex.scope)
	select {
	case <-fut.Done():
		res, err := fut.Await()
		return finish(ctx, runCtx, p, ex, res, err)
	case <-runCtx.Done():
		if err := ctx.Err(); err != nil {
			ex.fire(eventCancel)
			p.logFinished(ctx, ex)
			return zero, err
		}
		ex.fire(eventTimeout)
		return zero, p.reject(ctx, ex, ReasonTimedOut, context.DeadlineExceeded, 0, fut)
	}
}

// finish classifies the result of an action that returned.
func finish[T any](ctx, runCtx context.Context, p *Policy, ex *execution, res T, err error) (T, error) {
	var zero T

	switch {
	case err == nil:
		ex.fire(eventComplete)
		p.logFinished(ctx, ex)
		return res, nil
	case ctx.Err() != nil && isContextError(err):
		ex.fire(eventCancel)
		p.logFinished(ctx, ex)
		return zero, ctx.Err()
	case ctx.Err() == nil && errors.Is(context.Cause(runCtx), ErrTimedOut):
		ex.fire(eventTimeout)
		return zero, p.reject(ctx, ex, ReasonTimedOut, err, 0, nil)
	default:
		ex.fire(eventFault)
		p.logFinished(ctx, ex)
		return res, err
	}
}

func (p *Policy) logFinished(ctx context.Context, ex *execution) {
	p.logger.DebugContext(ctx, "execution finished",
		logger.ExecutionID(ex.id),
		logger.Key(ex.scope.Key),
		logger.Outcome(ex.outcome()),
		logger.Duration(time.Since(ex.started)),
	)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
