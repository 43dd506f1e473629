package gate

import (
	"fmt"

	"github.com/dmitrymomot/gatekeeper/pkg/bucket"
)

// Scope is the per-execution context handed to the provider and the action.
type Scope struct {
	// Key selects the bucket. Executions sharing a key share one budget.
	Key string
	// Size is the token cost of the execution. Zero means the policy default.
	Size float64
	// Values is passed through to the provider and the action untouched.
	Values map[string]any
}

// Value returns Values[key], tolerating a nil map.
func (s Scope) Value(key string) (any, bool) {
	v, ok := s.Values[key]
	return v, ok
}

// Limits are the bucket parameters for one key.
type Limits struct {
	Capacity float64 `yaml:"capacity"`
	FillRate float64 `yaml:"fill_rate"`
}

// Validate reports whether both values are positive and finite.
func (l Limits) Validate() error {
	if err := bucket.Validate(l.Capacity, l.FillRate); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
