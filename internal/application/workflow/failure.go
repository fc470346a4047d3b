package workflow

import (
	"errors"
	"fmt"
)

// FailureKind classifies how a failed step is reported and what happens to the session
type FailureKind int

const (
	// UserCorrectable failures re-prompt and leave the session unchanged
	UserCorrectable FailureKind = iota
	// Precondition failures abort the order and clear the session
	Precondition
	// Collaborator failures report a retry hint and leave the session unchanged
	Collaborator
	// Routing failures are logged and absorbed
	Routing
)

func (k FailureKind) String() string {
	switch k {
	case UserCorrectable:
		return "user_correctable"
	case Precondition:
		return "precondition"
	case Collaborator:
		return "collaborator"
	case Routing:
		return "routing"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Failure is a classified error with the text shown to the initiating user
type Failure struct {
	Kind        FailureKind
	UserMessage string
	Err         error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Kind, f.UserMessage)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

var (
	// ErrOutdatedControl is returned for a button that belongs to an earlier session
	ErrOutdatedControl = errors.New("control belongs to another session")

	// ErrNoProvider is returned when a document arrives before a provider was chosen
	ErrNoProvider = errors.New("no provider selected")

	// ErrOrderMismatch is returned when a provider reply does not match the live order
	ErrOrderMismatch = errors.New("reply does not match an active order")
)

func userError(msg string, err error) *Failure {
	return &Failure{Kind: UserCorrectable, UserMessage: msg, Err: err}
}

func preconditionError(msg string, err error) *Failure {
	return &Failure{Kind: Precondition, UserMessage: msg, Err: err}
}

func collaboratorError(msg string, err error) *Failure {
	return &Failure{Kind: Collaborator, UserMessage: msg, Err: err}
}

func routingError(err error) *Failure {
	return &Failure{Kind: Routing, Err: err}
}

// AsFailure extracts a Failure from an error chain
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
