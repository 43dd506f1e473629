package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatekeeper/pkg/async"
	"github.com/dmitrymomot/gatekeeper/pkg/bucket"
	"github.com/dmitrymomot/gatekeeper/pkg/logger"
)

// RejectionEvent describes one rejection to the hooks registered with
// WithOnRejected.
type RejectionEvent struct {
	ExecutionID string
	Scope       Scope
	Reason      Reason
	Cause       error
	// Abandoned is the still-running activity a pessimistic timeout walked
	// away from. It is nil for every other rejection.
	Abandoned async.Handle
}

// RejectedFunc is called synchronously for each rejection, on the goroutine
// of the rejected call. It must not block for long.
type RejectedFunc func(ctx context.Context, ev RejectionEvent)

// Policy is a configured admission gate. It is safe for concurrent use.
type Policy struct {
	cfg        Config
	provider   Provider
	onRejected []RejectedFunc
	logger     *slog.Logger
	clock      bucket.Clock
	buckets    *registry
}

// New validates cfg and returns a Policy. Invalid configuration yields an
// error matching ErrConfiguration.
func New(cfg Config, opts ...Option) (*Policy, error) {
	if cfg.RequestSize == 0 {
		cfg.RequestSize = 1
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	p := &Policy{
		cfg:      cfg,
		provider: StaticProvider(Limits{Capacity: cfg.Capacity, FillRate: cfg.FillRate}),
		logger:   logger.Discard(),
		clock:    bucket.NewSystemClock(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("gate"), logger.Strategy(cfg.Strategy))
	p.buckets = newRegistry(p.clock, cfg.SweepInterval)

	return p, nil
}

// Config returns the normalized configuration the policy runs with.
func (p *Policy) Config() Config {
	return p.cfg
}

// Admit runs the admission check alone: it draws from the scope's bucket and
// reports a *RejectedError when the draw fails. Nothing is executed, so the
// timeout bound does not apply.
func (p *Policy) Admit(ctx context.Context, scope Scope) error {
	ex := newExecution(scope, p.cfg.RequestSize)
	return p.admit(ctx, ex)
}

// Snapshot reports the current state of the bucket for key, if one exists.
// Buckets are created on first admission and may be swept once full.
func (p *Policy) Snapshot(key string) (bucket.Snapshot, bool) {
	return p.buckets.snapshot(key)
}

func (p *Policy) admit(ctx context.Context, ex *execution) error {
	if err := ctx.Err(); err != nil {
		ex.fire(eventCancel)
		return err
	}

	limits, err := p.provider.Limits(ctx, ex.scope)
	if err != nil {
		if !errors.Is(err, ErrConfiguration) {
			err = fmt.Errorf("%w: resolve limits: %w", ErrConfiguration, err)
		}
		return p.rejectAtGate(ctx, ex, ReasonConfiguration, err, 0)
	}
	if err := limits.Validate(); err != nil {
		return p.rejectAtGate(ctx, ex, ReasonConfiguration, err, 0)
	}

	res, err := p.buckets.draw(ex.scope.Key, limits, ex.size)
	if err != nil {
		if bucket.IsConfigError(err) {
			return p.rejectAtGate(ctx, ex, ReasonConfiguration, err, 0)
		}
		return p.rejectAtGate(ctx, ex, ReasonInsufficientTokens, err, res.retryAfter)
	}

	ex.fire(eventAdmit)
	p.logger.DebugContext(ctx, "execution admitted",
		logger.ExecutionID(ex.id),
		logger.Key(ex.scope.Key),
		logger.Tokens(ex.size),
	)
	return nil
}

// boundContext derives the context an admitted action runs under.
func (p *Policy) boundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout > 0 {
		return context.WithTimeoutCause(ctx, p.cfg.Timeout, ErrTimedOut)
	}
	return context.WithCancel(ctx)
}

func (p *Policy) rejectAtGate(ctx context.Context, ex *execution, reason Reason, cause error, retryAfter time.Duration) error {
	ex.fire(eventReject)
	return p.reject(ctx, ex, reason, cause, retryAfter, nil)
}

func (p *Policy) reject(ctx context.Context, ex *execution, reason Reason, cause error, retryAfter time.Duration, abandoned async.Handle) error {
	rej := &RejectedError{
		Reason:      reason,
		Key:         ex.scope.Key,
		ExecutionID: ex.id,
		RetryAfter:  retryAfter,
		Cause:       cause,
	}

	ev := RejectionEvent{
		ExecutionID: ex.id,
		Scope:       ex.scope,
		Reason:      reason,
		Cause:       cause,
		Abandoned:   abandoned,
	}
	for _, fn := range p.onRejected {
		fn(ctx, ev)
	}

	p.logger.WarnContext(ctx, "execution rejected",
		logger.ExecutionID(ex.id),
		logger.Key(ex.scope.Key),
		logger.Reason(reason.String()),
		logger.Outcome(ex.outcome()),
		logger.Error(cause),
	)
	return rej
}
