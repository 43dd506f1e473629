package gate

import (
	"fmt"
	"strings"
)

// Strategy selects how the timeout bound is enforced on admitted executions.
type Strategy uint8

const (
	// Optimistic runs the action on the caller's goroutine with a bounded
	// context and relies on the action to observe it. An action that ignores
	// cancellation is not interrupted.
	Optimistic Strategy = iota

	// Pessimistic runs the action on its own goroutine and stops waiting when
	// the bound elapses. The abandoned goroutine is never killed: it keeps
	// running, and holding whatever it holds, until it returns on its own.
	Pessimistic
)

func (s Strategy) String() string {
	switch s {
	case Optimistic:
		return "optimistic"
	case Pessimistic:
		return "pessimistic"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy converts a case-insensitive strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "optimistic":
		return Optimistic, nil
	case "pessimistic":
		return Pessimistic, nil
	default:
		return 0, fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, s)
	}
}

func (s Strategy) MarshalText() ([]byte, error) {
	if s != Optimistic && s != Pessimistic {
		return nil, fmt.Errorf("%w: unknown strategy %d", ErrConfiguration, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
