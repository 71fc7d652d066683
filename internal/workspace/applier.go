package workspace

import (
	"fmt"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/events"
)

// Applier replays records against a workspace. Replays go through the
// regular mutators, so they emit records of their own; the history
// suppresses those while it is replaying.
type Applier struct {
	w *Workspace
}

// Applier returns the replay applier for w.
func (w *Workspace) Applier() *Applier {
	return &Applier{w: w}
}

// ApplyInverse reverts r.
func (a *Applier) ApplyInverse(r event.Record) error {
	if err := a.check(r); err != nil {
		return err
	}
	w := a.w

	switch rec := r.(type) {
	case *events.Create:
		return w.deleteOne(rec.State.ID)
	case *events.Delete:
		return w.CreateBlock(rec.OldState)
	case *events.Move:
		return w.MoveBlock(rec.BlockID(), rec.OldParentID, rec.OldInputName, rec.OldPosition)
	case *events.Change:
		return w.setElement(rec.BlockID(), rec.Element, rec.Name, rec.OldValue)
	case *events.Mutate:
		return w.SetMutation(rec.BlockID(), rec.OldMutation)
	default:
		return fmt.Errorf("inverse of %s: %w", r.Kind(), ErrUnsupportedKind)
	}
}

// ApplyForward reapplies r.
func (a *Applier) ApplyForward(r event.Record) error {
	if err := a.check(r); err != nil {
		return err
	}
	w := a.w

	switch rec := r.(type) {
	case *events.Create:
		return w.CreateBlock(rec.State)
	case *events.Delete:
		return w.deleteOne(rec.OldState.ID)
	case *events.Move:
		return w.MoveBlock(rec.BlockID(), rec.NewParentID, rec.NewInputName, rec.NewPosition)
	case *events.Change:
		return w.setElement(rec.BlockID(), rec.Element, rec.Name, rec.NewValue)
	case *events.Mutate:
		return w.SetMutation(rec.BlockID(), rec.NewMutation)
	default:
		return fmt.Errorf("forward of %s: %w", r.Kind(), ErrUnsupportedKind)
	}
}

func (a *Applier) check(r event.Record) error {
	if r.WorkspaceID() != a.w.id {
		return fmt.Errorf("%s %s in %s: %w", r.Kind(), r.BlockID(), r.WorkspaceID(), ErrWrongWorkspace)
	}
	return nil
}
