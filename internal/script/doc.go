// Package script runs declarative editing sessions against a coordinator,
// an undo/redo stack and a workspace, and records what fired.
//
// A script is a YAML document:
//
//	name: create-then-undo
//	workspace: ws1
//	steps:
//	  - {op: push_group, id: g1}
//	  - {op: create, block: A, type: controls_if}
//	  - {op: pop_group}
//	  - {op: fire}
//	  - {op: undo}
//	  - {op: expect, undo: 0, redo: 1, absent: [A]}
//
// Every step appends a StepResult to the Trace, including the records
// delivered during the step (replayed records are marked) and any
// coordinator diagnostics. A failed expect step ends the run with
// ErrExpectation.
//
// Scripts may also attach Lua listeners, which run after the undo/redo
// stack for every fired record (see package luabind):
//
//	listeners:
//	  - name: default-text
//	    lua: |
//	      session.on("create", function(ev) ... end)
package script
