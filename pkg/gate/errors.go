package gate

import (
	"errors"
	"fmt"
	"time"
)

// Package-level error definitions for gate operations.
var (
	// ErrRejected matches every *RejectedError regardless of its reason.
	ErrRejected = errors.New("gate: execution rejected")

	// ErrInsufficientTokens matches rejections caused by an exhausted bucket.
	ErrInsufficientTokens = errors.New("gate: insufficient tokens")

	// ErrTimedOut matches rejections of admitted executions that overran the timeout bound.
	ErrTimedOut = errors.New("gate: execution timed out")

	// ErrConfiguration matches invalid limits, sizes or provider failures.
	// These are caller bugs and are never retried internally.
	ErrConfiguration = errors.New("gate: configuration error")

	// ErrNilFuture indicates an asynchronous action that returned no future.
	ErrNilFuture = errors.New("gate: async action returned a nil future")
)

// Reason tells why an execution was rejected.
type Reason uint8

const (
	ReasonInsufficientTokens Reason = iota + 1
	ReasonTimedOut
	ReasonConfiguration
)

func (r Reason) String() string {
	switch r {
	case ReasonInsufficientTokens:
		return "insufficient_tokens"
	case ReasonTimedOut:
		return "timed_out"
	case ReasonConfiguration:
		return "configuration"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonInsufficientTokens:
		return ErrInsufficientTokens
	case ReasonTimedOut:
		return ErrTimedOut
	case ReasonConfiguration:
		return ErrConfiguration
	default:
		return nil
	}
}

// RejectedError is returned when the gate declines to admit an execution or
// to wait for it any longer. It matches ErrRejected and the sentinel of its
// Reason via errors.Is, and unwraps to the error that caused it.
type RejectedError struct {
	Reason      Reason
	Key         string
	ExecutionID string
	// RetryAfter is the projected wait until the bucket could cover the
	// request. Set only for ReasonInsufficientTokens.
	RetryAfter time.Duration
	Cause      error
}

func (e *RejectedError) Error() string {
	msg := "gate: execution rejected: " + e.Reason.String()
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RejectedError) Unwrap() error {
	return e.Cause
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected || (target != nil && target == e.Reason.sentinel())
}

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return 0, false
}
