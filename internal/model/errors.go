package model

import "fmt"

// The four error kinds surfaced to callers. All are recoverable input
// conditions reported back through the command layer; none are fatal.

// ValidationError reports malformed input: an empty title, an
// unparsable date, a percentage outside [0,100].
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// AuthorizationError reports that the acting identity lacks the role
// or membership required for the attempted operation. It is returned
// before any state inspection so that callers cannot probe legal
// states by trial.
type AuthorizationError struct {
	Actor  string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: %s (actor %q)", e.Reason, e.Actor)
}

// NotFoundError reports a reference to an event or task index that
// does not exist.
type NotFoundError struct {
	Kind  string // "event" or "task"
	Index int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %d", e.Kind, e.Index)
}

// InvalidStateError reports a transition that is not legal from the
// task's current lifecycle state.
type InvalidStateError struct {
	State      TaskState
	Transition string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s from %s", e.Transition, e.State)
}
