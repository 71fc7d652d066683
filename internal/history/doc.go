// Package history records fired event records as undoable groups and replays
// them through an Applier.
//
// A Stack is an event.Listener. Records that share a group id become one
// Group; records in the none group each become their own Group. A Group is
// committed to the undo stack when a record from another group arrives or
// when the outermost fire cycle ends, and OnCommit callbacks observe every
// commit. A later fire cycle carrying the same group id extends the group
// most recently committed, provided nothing was undone or redone since.
//
// Undo pops a group and applies each record's inverse, newest first. Redo
// applies forward operations oldest first. Records fired while replaying are
// forwarded to OnReplayEvent callbacks and never recorded.
package history
