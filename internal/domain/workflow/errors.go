package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a trigger is not permitted in the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guard for a permitted trigger fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// TransitionError describes a rejected trigger. It unwraps to ErrInvalidTransition
// or ErrGuardFailed.
type TransitionError struct {
	From    State
	Trigger Trigger
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: trigger %s from state %s", e.Err, e.Trigger, e.From)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
