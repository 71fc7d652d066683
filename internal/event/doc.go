// Package event provides the event coordinator for block workspaces.
//
// Every model mutation produces a Record. The coordinator decides when
// records are delivered and stamps each one with the group that was open
// when it was enqueued, so that the history can undo a whole user action
// at once.
//
// # Architecture
//
//	┌──────────┐  AddPendingEvent  ┌──────────────────────────────┐
//	│ Mutators │ ────────────────▶ │         Coordinator          │
//	└──────────┘                   │  - pending queue (FIFO)      │
//	                               │  - group stack               │
//	┌────────────┐ Push/PopGroup   │  - listeners                 │
//	│ Controller │ ──────────────▶ │  - reentrant fire            │
//	└────────────┘                 └──────────────────────────────┘
//	                                              │ Notify
//	                          ┌───────────────────┼──────────────────┐
//	                          ▼                   ▼                  ▼
//	                  ┌───────────────┐  ┌────────────────┐  ┌──────────────┐
//	                  │ history.Stack │  │  UI listeners  │  │ trace/debug  │
//	                  └───────────────┘  └────────────────┘  └──────────────┘
//
// # Groups
//
// A record takes the id on top of the group stack at the moment
// AddPendingEvent is called, and keeps it forever. Records enqueued with an
// empty stack are ungrouped. Each logical action should push exactly one
// group:
//
//	id := c.PushNewGroup()
//	defer c.PopGroup()
//	// ... mutate the workspace ...
//
// Pushing the group that is already open is fine and nests; pushing a
// different one while a group is open is a protocol violation. Violations
// are reported as Diagnostic values to a Reporter: AssertReporter panics
// (development), LogReporter logs a warning and carries on (production).
//
// # Firing
//
// FirePendingEvents delivers the queue in FIFO order to every listener, in
// registration order. Listeners may enqueue records and fire again from
// inside Notify; the nested call drains what was queued since, depth-first,
// before the outer call resumes. When the outermost call returns, listeners
// implementing CycleListener are told that the fire cycle ended.
//
// # Thread Safety
//
// A Coordinator is not safe for concurrent use: all
// calls come from the goroutine that owns the workspace. Only
// RecordingReporter is safe for concurrent use.
package event
