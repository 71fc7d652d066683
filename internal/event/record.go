package event

import "time"

// Kind identifies the variant of an event record.
type Kind string

// Built-in record kinds emitted by the block workspace.
const (
	KindCreate Kind = "create"
	KindDelete Kind = "delete"
	KindMove   Kind = "move"
	KindChange Kind = "change"
	KindMutate Kind = "mutate"
)

// IsBuiltin reports whether k is one of the built-in block kinds.
func (k Kind) IsBuiltin() bool {
	switch k {
	case KindCreate, KindDelete, KindMove, KindChange, KindMutate:
		return true
	default:
		return false
	}
}

// String returns the kind tag.
func (k Kind) String() string {
	return string(k)
}

// Record is a single captured change to the editor model.
//
// Records are immutable once constructed except for the group tag, which the
// Coordinator assigns at most once when the record is first enqueued. Concrete
// variants satisfy Record by embedding Base.
type Record interface {
	// Kind returns the variant tag.
	Kind() Kind

	// WorkspaceID returns the workspace that produced the record.
	WorkspaceID() string

	// BlockID returns the primary affected block, or "" if none.
	BlockID() string

	// GroupID returns the assigned group, or "" for the none group.
	GroupID() string

	// GroupAssigned reports whether the group tag has been fixed.
	GroupAssigned() bool

	// Timestamp returns when the record was constructed.
	Timestamp() time.Time

	base() *Base
}

// Base carries the fields the coordinator reads from every record.
type Base struct {
	kind        Kind
	workspaceID string
	blockID     string
	groupID     string
	grouped     bool
	timestamp   time.Time
}

// NewBase returns a Base with its group tag unset.
func NewBase(kind Kind, workspaceID, blockID string) Base {
	return Base{
		kind:        kind,
		workspaceID: workspaceID,
		blockID:     blockID,
		timestamp:   time.Now(),
	}
}

// RestoreBase rebuilds a Base from serialized fields. If grouped is true the
// group tag is already fixed and enqueueing will not change it.
func RestoreBase(kind Kind, workspaceID, blockID, groupID string, grouped bool, ts time.Time) Base {
	if !grouped {
		groupID = ""
	}
	if ts.IsZero() {
		ts = time.Now()
	}
	return Base{
		kind:        kind,
		workspaceID: workspaceID,
		blockID:     blockID,
		groupID:     groupID,
		grouped:     grouped,
		timestamp:   ts,
	}
}

// Kind returns the variant tag.
func (b *Base) Kind() Kind { return b.kind }

// WorkspaceID returns the producing workspace.
func (b *Base) WorkspaceID() string { return b.workspaceID }

// BlockID returns the primary affected block.
func (b *Base) BlockID() string { return b.blockID }

// GroupID returns the assigned group id.
func (b *Base) GroupID() string { return b.groupID }

// GroupAssigned reports whether the group tag has been fixed.
func (b *Base) GroupAssigned() bool { return b.grouped }

// Timestamp returns the construction time.
func (b *Base) Timestamp() time.Time { return b.timestamp }

func (b *Base) base() *Base { return b }

// assignGroup fixes the group tag. It returns false if the tag was already set.
func (b *Base) assignGroup(id string) bool {
	if b.grouped {
		return false
	}
	b.groupID = id
	b.grouped = true
	return true
}
