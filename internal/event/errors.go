package event

import (
	"errors"
	"fmt"
)

// ErrListenerPanic matches every *PanicError via errors.Is.
var ErrListenerPanic = errors.New("listener panicked")

// PanicError wraps a listener panic recovered by TryFirePendingEvents.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("listener panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error, so a Diagnostic
// raised by an AssertReporter inside a listener can be matched with
// errors.As.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is allows errors.Is to match PanicError with ErrListenerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrListenerPanic
}
