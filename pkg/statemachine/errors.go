package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition   = errors.New("invalid transition: from, to, or event cannot be nil")
	ErrInvalidEvent        = errors.New("invalid event: event cannot be nil")
	ErrDuplicateTransition = errors.New("duplicate transition")
)

// ErrNoTransitionAvailable indicates no valid transition exists for the given state/event combination.
type ErrNoTransitionAvailable struct {
	StateName string
	EventName string
}

func (e *ErrNoTransitionAvailable) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.StateName, e.EventName)
}

func NewErrNoTransitionAvailable(stateName, eventName string) *ErrNoTransitionAvailable {
	return &ErrNoTransitionAvailable{
		StateName: stateName,
		EventName: eventName,
	}
}

// ErrStateReentered indicates a transition that would enter an already visited state.
type ErrStateReentered struct {
	StateName string
	EventName string
}

func (e *ErrStateReentered) Error() string {
	return fmt.Sprintf("event '%s' would re-enter state '%s'", e.EventName, e.StateName)
}

func NewErrStateReentered(stateName, eventName string) *ErrStateReentered {
	return &ErrStateReentered{
		StateName: stateName,
		EventName: eventName,
	}
}

func IsNoTransitionAvailableError(err error) bool {
	var e *ErrNoTransitionAvailable
	return errors.As(err, &e)
}

func IsStateReenteredError(err error) bool {
	var e *ErrStateReentered
	return errors.As(err, &e)
}
