package reactor

import (
	"errors"
)

// Standard errors.
var (
	// ErrBaseFreed is returned by operations on a base that has been freed.
	ErrBaseFreed = errors.New("reactor: base has been freed")

	// ErrBadDescriptor is returned when a descriptor cannot be used for the
	// requested readiness, e.g. the -1 timer sentinel combined with EvRead.
	ErrBadDescriptor = errors.New("reactor: bad file descriptor")

	// ErrNoDescriptor is the cause of the [TypeError] returned by
	// [Base.AddEvent] when the target cannot provide a file descriptor.
	ErrNoDescriptor = errors.New("reactor: target does not provide a file descriptor")

	// ErrEdgeTriggerConflict is returned when edge-triggered and
	// level-triggered events are mixed on the same descriptor.
	ErrEdgeTriggerConflict = errors.New("reactor: cannot mix edge-triggered and level-triggered events on one descriptor")

	// ErrNilCallback is returned when an event is created without a callback.
	ErrNilCallback = errors.New("reactor: nil callback")
)

// TypeError indicates that a value did not provide a required capability.
type TypeError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	if e.Message == "" {
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return "type error"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *TypeError) Unwrap() error {
	return e.Cause
}

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "reactor: callback panicked: " + err.Error()
	}
	return "reactor: callback panicked"
}

// Unwrap returns the panic value, if it is an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
