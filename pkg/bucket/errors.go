package bucket

import "errors"

// Package-level error definitions for token accounting.
var (
	// ErrInvalidConfig indicates that capacity or fill rate is not a positive finite number.
	ErrInvalidConfig = errors.New("bucket: invalid configuration")

	// ErrSizeExceedsCapacity indicates a single draw larger than the whole bucket.
	// No amount of waiting can satisfy such a request.
	ErrSizeExceedsCapacity = errors.New("bucket: requested size is greater than the bucket capacity")

	// ErrInvalidSize indicates a draw size that is zero, negative or not a number.
	ErrInvalidSize = errors.New("bucket: requested size must be positive")

	// ErrInsufficientTokens indicates the bucket does not hold enough tokens right now.
	ErrInsufficientTokens = errors.New("bucket: not enough tokens for the request")
)

// IsConfigError reports whether err is a caller configuration error rather than
// an admission outcome.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrSizeExceedsCapacity) ||
		errors.Is(err, ErrInvalidSize)
}
