// Package workspace is a minimal in-memory block model. Every mutation is
// applied immediately and reported to the event coordinator as a record, and
// Applier replays those records for the history.
package workspace

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/events"
)

var (
	ErrBlockNotFound     = errors.New("block not found")
	ErrBlockExists       = errors.New("block already exists")
	ErrHasChildren       = errors.New("block has children")
	ErrCycle             = errors.New("block cannot be its own ancestor")
	ErrUnknownElement    = errors.New("unknown change element")
	ErrUnsupportedKind   = errors.New("unsupported record kind")
	ErrWrongWorkspace    = errors.New("record belongs to another workspace")
	ErrInvalidBlockState = errors.New("invalid block state")
)

// Workspace holds blocks by id.
type Workspace struct {
	id     string
	coord  *event.Coordinator
	blocks map[string]*events.BlockState
}

// New creates an empty workspace that reports mutations to c.
func New(id string, c *event.Coordinator) *Workspace {
	return &Workspace{
		id:     id,
		coord:  c,
		blocks: make(map[string]*events.BlockState),
	}
}

// ID returns the workspace id.
func (w *Workspace) ID() string {
	return w.id
}

// Len returns the number of blocks.
func (w *Workspace) Len() int {
	return len(w.blocks)
}

// Block returns a copy of the block with the given id.
func (w *Workspace) Block(id string) (events.BlockState, bool) {
	b, ok := w.blocks[id]
	if !ok {
		return events.BlockState{}, false
	}
	return normalize(*b), true
}

// BlockIDs returns all block ids in sorted order.
func (w *Workspace) BlockIDs() []string {
	return slices.Sorted(maps.Keys(w.blocks))
}

// Snapshot returns a deep copy of every block, keyed by id.
func (w *Workspace) Snapshot() map[string]events.BlockState {
	out := make(map[string]events.BlockState, len(w.blocks))
	for id, b := range w.blocks {
		out[id] = normalize(*b)
	}
	return out
}

// Children returns the ids of the blocks attached to id, sorted.
func (w *Workspace) Children(id string) []string {
	var out []string
	for cid, b := range w.blocks {
		if b.ParentID == id {
			out = append(out, cid)
		}
	}
	slices.Sort(out)
	return out
}

// CreateBlock adds a block described by state.
func (w *Workspace) CreateBlock(state events.BlockState) error {
	if state.ID == "" || state.Type == "" {
		return fmt.Errorf("create block: %w: id and type are required", ErrInvalidBlockState)
	}
	if _, ok := w.blocks[state.ID]; ok {
		return fmt.Errorf("create block %s: %w", state.ID, ErrBlockExists)
	}
	if state.ParentID != "" {
		if _, ok := w.blocks[state.ParentID]; !ok {
			return fmt.Errorf("create block %s: parent %s: %w", state.ID, state.ParentID, ErrBlockNotFound)
		}
	}

	stored := normalize(state)
	if stored.ParentID != "" {
		stored.Position = events.Position{}
	} else {
		stored.InputName = ""
	}
	w.blocks[state.ID] = &stored
	w.coord.AddPendingEvent(events.NewCreate(w.id, stored))
	return nil
}

// DeleteBlock removes id and all of its descendants. Descendants are removed
// first, so one delete record is emitted per block, leaves first.
func (w *Workspace) DeleteBlock(id string) error {
	if _, ok := w.blocks[id]; !ok {
		return fmt.Errorf("delete block %s: %w", id, ErrBlockNotFound)
	}
	for _, child := range w.Children(id) {
		if err := w.DeleteBlock(child); err != nil {
			return err
		}
	}
	return w.deleteOne(id)
}

func (w *Workspace) deleteOne(id string) error {
	b, ok := w.blocks[id]
	if !ok {
		return fmt.Errorf("delete block %s: %w", id, ErrBlockNotFound)
	}
	if len(w.Children(id)) > 0 {
		return fmt.Errorf("delete block %s: %w", id, ErrHasChildren)
	}
	old := normalize(*b)
	delete(w.blocks, id)
	w.coord.AddPendingEvent(events.NewDelete(w.id, old))
	return nil
}

// MoveBlock attaches id to parentID's input, or positions it at pos when
// parentID is empty. A move that changes nothing emits no record.
func (w *Workspace) MoveBlock(id, parentID, inputName string, pos events.Position) error {
	b, ok := w.blocks[id]
	if !ok {
		return fmt.Errorf("move block %s: %w", id, ErrBlockNotFound)
	}
	if parentID != "" {
		if _, ok := w.blocks[parentID]; !ok {
			return fmt.Errorf("move block %s: parent %s: %w", id, parentID, ErrBlockNotFound)
		}
		if w.isAncestor(id, parentID) {
			return fmt.Errorf("move block %s under %s: %w", id, parentID, ErrCycle)
		}
		pos = events.Position{}
	} else {
		inputName = ""
	}

	m := events.NewMove(w.id, id)
	m.OldParentID, m.OldInputName, m.OldPosition = b.ParentID, b.InputName, b.Position
	m.NewParentID, m.NewInputName, m.NewPosition = parentID, inputName, pos
	if m.IsNoop() {
		return nil
	}

	b.ParentID, b.InputName, b.Position = parentID, inputName, pos
	w.coord.AddPendingEvent(m)
	return nil
}

// isAncestor reports whether ancestor is id itself or one of the blocks
// above candidate.
func (w *Workspace) isAncestor(ancestor, candidate string) bool {
	for cur := candidate; cur != ""; {
		if cur == ancestor {
			return true
		}
		b, ok := w.blocks[cur]
		if !ok {
			return false
		}
		cur = b.ParentID
	}
	return false
}

// SetField sets a field value. An empty value removes the field.
func (w *Workspace) SetField(id, name, value string) error {
	return w.setElement(id, events.ElementField, name, value)
}

// SetComment sets the block comment.
func (w *Workspace) SetComment(id, text string) error {
	return w.setElement(id, events.ElementComment, "", text)
}

// SetCollapsed collapses or expands a block.
func (w *Workspace) SetCollapsed(id string, collapsed bool) error {
	return w.setElement(id, events.ElementCollapsed, "", strconv.FormatBool(collapsed))
}

// SetDisabled enables or disables a block.
func (w *Workspace) SetDisabled(id string, disabled bool) error {
	return w.setElement(id, events.ElementDisabled, "", strconv.FormatBool(disabled))
}

func (w *Workspace) setElement(id, element, name, value string) error {
	b, ok := w.blocks[id]
	if !ok {
		return fmt.Errorf("set %s on block %s: %w", element, id, ErrBlockNotFound)
	}

	var old string
	switch element {
	case events.ElementField:
		old = b.Fields[name]
		if value == "" {
			delete(b.Fields, name)
		} else {
			if b.Fields == nil {
				b.Fields = make(map[string]string)
			}
			b.Fields[name] = value
		}
	case events.ElementComment:
		old = b.Comment
		b.Comment = value
	case events.ElementCollapsed, events.ElementDisabled:
		flag, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("set %s on block %s: %w", element, id, err)
		}
		if element == events.ElementCollapsed {
			old = strconv.FormatBool(b.Collapsed)
			b.Collapsed = flag
		} else {
			old = strconv.FormatBool(b.Disabled)
			b.Disabled = flag
		}
	default:
		return fmt.Errorf("set %s on block %s: %w", element, id, ErrUnknownElement)
	}

	if old == value {
		return nil
	}
	w.coord.AddPendingEvent(events.NewChange(w.id, id, element, name, old, value))
	return nil
}

// SetMutation replaces the block's mutation document.
func (w *Workspace) SetMutation(id, mutation string) error {
	b, ok := w.blocks[id]
	if !ok {
		return fmt.Errorf("set mutation on block %s: %w", id, ErrBlockNotFound)
	}
	old := b.Mutation
	if old == mutation {
		return nil
	}
	b.Mutation = mutation
	w.coord.AddPendingEvent(events.NewMutate(w.id, id, old, mutation))
	return nil
}

// normalize returns a deep copy with an empty field map represented as nil.
func normalize(s events.BlockState) events.BlockState {
	s = s.Clone()
	if len(s.Fields) == 0 {
		s.Fields = nil
	}
	return s
}
