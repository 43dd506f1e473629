// Package async provides a small generic Future for running a computation on
// its own goroutine and waiting for its completion.
//
// A Future is obtained from Go, which starts the supplied function and returns
// immediately. The caller can block with Await, bound the wait with
// AwaitContext or AwaitWithTimeout, or poll with IsComplete. Resolved and
// Failed build Futures that are complete from the start, which is handy for
// adapting synchronous code to an API that expects a Future.
//
// # Usage
//
//	future := async.Go(ctx, func(ctx context.Context) (string, error) {
//	    return fetch(ctx)
//	})
//
//	// do other work …
//	res, err := future.AwaitContext(ctx)
//	if err != nil {
//	    return err
//	}
//
// # Abandoning Work
//
// Waiting and running are decoupled: giving up on a Future (AwaitContext
// returning early) does not stop the goroutine behind it. Functions that should
// stop early must observe the context passed to them. A Future can be handed to
// observers as a Handle, which exposes only Done and IsComplete.
//
// # Error Handling
//
// Functions return the error produced by the callback, ctx.Err() when the
// context was done before the callback started, ErrTimeout from
// AwaitWithTimeout, or an error wrapping ErrPanic when the callback panicked.
package async
