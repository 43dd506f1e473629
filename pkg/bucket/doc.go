// Package bucket implements the token accounting behind the admission gate.
//
// A State holds a float64 level that refills continuously at a fixed rate
// (tokens per second) and is capped at the bucket capacity. Time is expressed
// as monotonic ticks (time.Duration since an arbitrary origin) supplied by a
// Clock, so wall-clock adjustments never affect refill.
//
// # Drawing
//
//	state, err := bucket.New(100, 10, clock.Now())
//	if err != nil {
//		return err // capacity or fill rate not positive
//	}
//
//	switch err := state.TryDraw(5, clock.Now()); {
//	case err == nil:
//		// admitted, 5 tokens charged
//	case errors.Is(err, bucket.ErrInsufficientTokens):
//		// expected under load, caller may retry later
//	case bucket.IsConfigError(err):
//		// size larger than the bucket: a programming bug
//	}
//
// A draw first refills the level by elapsed*fillRate, clamps it to capacity,
// then subtracts the requested size. If the result would be negative the
// draw fails and neither the level nor the last update tick changes.
//
// # Thread Safety
//
// Every State carries its own mutex. TryDraw never blocks beyond that lock.
package bucket
