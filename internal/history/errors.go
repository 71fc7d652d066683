package history

import (
	"errors"
	"fmt"

	"github.com/dshills/blockevents/internal/event"
)

var (
	// ErrReplayFailed matches every *ReplayError via errors.Is.
	ErrReplayFailed = errors.New("replay failed")

	// ErrReplayInProgress is returned when Undo or Redo is called from
	// inside another replay.
	ErrReplayInProgress = errors.New("replay already in progress")
)

// Direction names which way a group is being replayed.
type Direction string

const (
	DirectionUndo Direction = "undo"
	DirectionRedo Direction = "redo"
)

// ReplayError reports the record that failed during undo or redo. The group
// it belonged to has been dropped from both stacks.
type ReplayError struct {
	Direction Direction
	GroupID   string
	Index     int // position of the failing record within the group
	Kind      event.Kind
	BlockID   string
	Err       error
}

// Error implements the error interface.
func (e *ReplayError) Error() string {
	return fmt.Sprintf("%s group %q: record %d (%s %s): %v",
		e.Direction, e.GroupID, e.Index, e.Kind, e.BlockID, e.Err)
}

// Unwrap returns the applier error.
func (e *ReplayError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ReplayError with ErrReplayFailed.
func (e *ReplayError) Is(target error) bool {
	return target == ErrReplayFailed
}
