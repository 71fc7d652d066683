// Package events defines the concrete event records emitted by the block
// workspace.
//
// Every record embeds event.Base, which carries the kind, workspace, primary
// block, and the one-time group tag. The payload fields are opaque to the
// coordinator and to the history; only the workspace applier reads them.
//
//	Create  - a block was added; carries its full BlockState
//	Delete  - a block was removed; carries the state it had
//	Move    - a block changed parent, input, or position
//	Change  - a field, comment, collapsed, or disabled property changed
//	Mutate  - the block's mutation document changed
//	Custom  - any other kind, with a string payload
//
// # Usage
//
//	rec := events.NewChange(ws, "b1", events.ElementField, "NUM", "1", "2")
//	coord.AddPendingEvent(rec)
//	coord.FirePendingEvents()
package events
