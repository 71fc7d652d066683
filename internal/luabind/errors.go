package luabind

import (
	"errors"
	"fmt"

	"github.com/dshills/blockevents/internal/event"
)

// ErrLoad is returned when a listener's source fails to compile or run.
var ErrLoad = errors.New("load lua listener")

// HandlerError reports a Lua handler that raised an error.
type HandlerError struct {
	// Listener is the listener name.
	Listener string

	// Kind and BlockID identify the record being delivered.
	Kind    event.Kind
	BlockID string

	// Err is the underlying Lua error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("lua listener %s: handler for %s %s: %v", e.Listener, e.Kind, e.BlockID, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
