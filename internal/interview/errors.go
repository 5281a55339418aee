package interview

import (
	"errors"
	"fmt"
)

// ErrResetRequired is returned for every action except a new interview once
// the session has faulted.
var ErrResetRequired = errors.New("session must be reset")

// Kind classifies a failure by how the session may recover from it.
type Kind int

const (
	// KindValidation is malformed user input rejected before any external call.
	KindValidation Kind = iota + 1
	// KindCollaborator is a failed external call; the state did not advance.
	KindCollaborator
	// KindFault is a state-machine integrity violation; only a reset is offered.
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCollaborator:
		return "collaborator"
	case KindFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Failure is the error type returned by Orchestrator.Handle.
type Failure struct {
	Kind Kind
	// Op names the step that failed, for logs.
	Op string
	// Message is safe to show to the user.
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the failure kind of err. Errors that are not a Failure are
// treated as faults.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindFault
}

// IsFatal reports whether err leaves the session usable only through a reset.
func IsFatal(err error) bool {
	return KindOf(err) == KindFault
}

// UserMessage returns the text to show for err.
func UserMessage(err error) string {
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	if err == nil {
		return ""
	}
	return "Something went wrong. Please start a new interview."
}

func validationFailure(op, message string) *Failure {
	return &Failure{Kind: KindValidation, Op: op, Message: message}
}

func collaboratorFailure(op, message string, err error) *Failure {
	return &Failure{Kind: KindCollaborator, Op: op, Message: message, Err: err}
}
