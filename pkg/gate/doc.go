// Package gate is a token-bucket admission gate for units of work.
//
// A Policy decides, per execution, whether to run it now or reject it, by
// drawing the execution's size in tokens from the bucket selected by its
// Scope key. Buckets are created full on first use, refill continuously at
// the configured rate and never exceed capacity. A failed draw changes
// nothing; tokens drawn for an admitted execution are never refunded.
//
// # Executing work
//
//	p, err := gate.New(gate.Config{
//		Capacity: 100,
//		FillRate: 10,
//		Strategy: gate.Pessimistic,
//		Timeout:  2 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	res, err := gate.Execute(ctx, p, gate.Scope{Key: tenantID}, func(ctx context.Context, s gate.Scope) (Report, error) {
//		return buildReport(ctx, s.Key)
//	})
//	switch {
//	case errors.Is(err, gate.ErrInsufficientTokens):
//		// back off
//	case errors.Is(err, gate.ErrTimedOut):
//		// admitted but overran the bound
//	}
//
// ExecuteAsync does the same for actions that return an *async.Future, and
// Admit runs the admission check alone.
//
// # Strategies
//
// Admitted actions run under a context bounded by Config.Timeout (zero
// means unbounded). With Optimistic the action runs on the caller's
// goroutine and must observe that context; an error returned after the bound
// elapsed is reported as a timeout. With Pessimistic the action runs on its
// own goroutine and the caller stops waiting at the bound, even when the
// action ignores cancellation. The abandoned goroutine is not killed; it is
// handed to the rejection hooks as RejectionEvent.Abandoned.
//
// Cancelling the caller's context is never reported as a rejection: the
// caller gets ctx.Err().
//
// # Errors
//
// Rejections are *RejectedError values. They match ErrRejected and one of
// ErrInsufficientTokens, ErrTimedOut or ErrConfiguration. Configuration
// errors (invalid limits, a size above capacity, a failing Provider) are
// never retried.
//
// # Limits
//
// A Provider resolves limits per execution. StaticProvider is the default;
// KeyedProvider maps keys to limits and loads from YAML with
// LoadKeyedProvider. When a key's limits change the bucket keeps its level,
// clamped to the new capacity.
//
// # HTTP
//
// Middleware admits requests with a KeyFunc such as ClientIP, Header or a
// Composite of them, answering 429 with Retry-After when the bucket is dry.
package gate
