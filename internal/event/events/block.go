package events

import (
	"maps"

	"github.com/dshills/blockevents/internal/event"
)

// Position is a workspace coordinate of a top-level block.
type Position struct {
	X int
	Y int
}

// BlockState is a self-contained description of one block, enough to
// recreate it after deletion.
type BlockState struct {
	// ID is the block identifier.
	ID string

	// Type is the block definition name (e.g. "controls_if").
	Type string

	// ParentID is the enclosing block, or "" for a top-level block.
	ParentID string

	// InputName is the parent input the block is attached to.
	InputName string

	// Position is meaningful only for top-level blocks.
	Position Position

	// Fields holds field values by field name.
	Fields map[string]string

	// Mutation is the opaque mutation document, if the block has one.
	Mutation string

	Comment   string
	Collapsed bool
	Disabled  bool
}

// Clone returns a deep copy of s.
func (s BlockState) Clone() BlockState {
	s.Fields = maps.Clone(s.Fields)
	return s
}

// Change element names.
const (
	ElementField     = "field"
	ElementCollapsed = "collapsed"
	ElementDisabled  = "disabled"
	ElementComment   = "comment"
)

// Create records that a block was added to a workspace.
type Create struct {
	event.Base

	// State is the created block.
	State BlockState
}

// NewCreate returns an ungrouped create record.
func NewCreate(workspaceID string, state BlockState) *Create {
	return &Create{
		Base:  event.NewBase(event.KindCreate, workspaceID, state.ID),
		State: state.Clone(),
	}
}

// Delete records that a block was removed from a workspace.
type Delete struct {
	event.Base

	// OldState is the block as it was just before removal.
	OldState BlockState
}

// NewDelete returns an ungrouped delete record.
func NewDelete(workspaceID string, oldState BlockState) *Delete {
	return &Delete{
		Base:     event.NewBase(event.KindDelete, workspaceID, oldState.ID),
		OldState: oldState.Clone(),
	}
}

// Move records that a block was reattached or repositioned.
type Move struct {
	event.Base

	OldParentID  string
	OldInputName string
	OldPosition  Position

	NewParentID  string
	NewInputName string
	NewPosition  Position
}

// NewMove returns an ungrouped move record.
func NewMove(workspaceID, blockID string) *Move {
	return &Move{
		Base: event.NewBase(event.KindMove, workspaceID, blockID),
	}
}

// IsNoop reports whether the move changed nothing.
func (m *Move) IsNoop() bool {
	return m.OldParentID == m.NewParentID &&
		m.OldInputName == m.NewInputName &&
		m.OldPosition == m.NewPosition
}

// Change records a change to one property of a block.
type Change struct {
	event.Base

	// Element is one of the Element* constants.
	Element string

	// Name is the field name when Element is ElementField.
	Name string

	OldValue string
	NewValue string
}

// NewChange returns an ungrouped change record.
func NewChange(workspaceID, blockID, element, name, oldValue, newValue string) *Change {
	return &Change{
		Base:     event.NewBase(event.KindChange, workspaceID, blockID),
		Element:  element,
		Name:     name,
		OldValue: oldValue,
		NewValue: newValue,
	}
}

// Mutate records a change to a block's mutation document.
type Mutate struct {
	event.Base

	OldMutation string
	NewMutation string
}

// NewMutate returns an ungrouped mutate record.
func NewMutate(workspaceID, blockID, oldMutation, newMutation string) *Mutate {
	return &Mutate{
		Base:        event.NewBase(event.KindMutate, workspaceID, blockID),
		OldMutation: oldMutation,
		NewMutation: newMutation,
	}
}

// Custom is a record kind defined outside this package. The payload is
// opaque to the coordinator and the history.
type Custom struct {
	event.Base

	Payload map[string]string
}

// NewCustom returns an ungrouped record of the given kind.
func NewCustom(kind event.Kind, workspaceID, blockID string, payload map[string]string) *Custom {
	return &Custom{
		Base:    event.NewBase(kind, workspaceID, blockID),
		Payload: maps.Clone(payload),
	}
}
