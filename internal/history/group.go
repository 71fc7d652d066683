package history

import (
	"time"

	"github.com/dshills/blockevents/internal/event"
)

// Group is one undoable action: the records that share a group id, in firing
// order.
type Group struct {
	// ID is the shared group id, or "" for a single ungrouped record.
	ID string

	// Events holds the records in the order they fired.
	Events []event.Record

	// Committed is when the group was last pushed onto the undo stack.
	Committed time.Time
}

// Len returns the number of records in the group.
func (g *Group) Len() int {
	return len(g.Events)
}

// Kinds returns the record kinds in firing order.
func (g *Group) Kinds() []event.Kind {
	kinds := make([]event.Kind, len(g.Events))
	for i, r := range g.Events {
		kinds[i] = r.Kind()
	}
	return kinds
}

// Info returns a read-only summary of the group.
func (g *Group) Info() GroupInfo {
	return GroupInfo{
		ID:        g.ID,
		Size:      len(g.Events),
		Kinds:     g.Kinds(),
		Committed: g.Committed,
	}
}

// GroupInfo provides read-only info about a group.
// Used for displaying undo/redo history to users.
type GroupInfo struct {
	ID        string
	Size      int
	Kinds     []event.Kind
	Committed time.Time
}
