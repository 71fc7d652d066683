// Package luabind runs Lua code as coordinator listeners.
//
// A Listener owns one sandboxed Lua state (base, table, string and math
// libraries only) and exposes a global "session" module bound to a
// coordinator and workspace:
//
//	session.on(kind, fn)          -- subscribe; "*" matches every kind
//	session.push_group(id)
//	session.push_new_group()      -- returns the new id
//	session.pop_group()           -- returns the popped id, or nil
//	session.current_group()
//	session.fire()
//	session.add_event(kind, block, payload?)
//	session.create(block, type, parent?, input?)
//	session.delete(block)
//	session.set_field(block, name, value)
//	session.set_mutation(block, mutation)
//	session.move(block, parent?, input?)
//
// Handlers receive the record as a table with kind, workspace, block, group
// and grouped keys, plus kind-specific keys (type for create, element/name/
// old/new for change, and so on).
//
// A chaining listener joins the group of the record that triggered it:
//
//	session.on("create", function(ev)
//	  session.push_group(ev.group)
//	  session.set_field(ev.block, "TEXT", "hello")
//	  session.pop_group()
//	  session.fire()
//	end)
//
// Records made with add_event are events.Custom records, which the
// workspace applier cannot replay; keep them out of undoable groups.
//
// Lua errors never unwind the coordinator. The first one is kept and
// returned by TakeErr.
package luabind
