package luabind

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/events"
)

// module builds the global session table.
func (l *Listener) module() *lua.LTable {
	L := l.state
	mod := L.NewTable()
	for name, fn := range map[string]lua.LGFunction{
		"on":             l.on,
		"push_group":     l.pushGroup,
		"push_new_group": l.pushNewGroup,
		"pop_group":      l.popGroup,
		"current_group":  l.currentGroup,
		"fire":           l.fire,
		"add_event":      l.addEvent,
		"create":         l.create,
		"delete":         l.delete,
		"set_field":      l.setField,
		"set_mutation":   l.setMutation,
		"move":           l.move,
	} {
		L.SetField(mod, name, L.NewFunction(fn))
	}
	return mod
}

// on(kind, fn)
func (l *Listener) on(L *lua.LState) int {
	kind := L.CheckString(1)
	fn := L.CheckFunction(2)
	if kind == "" {
		L.ArgError(1, "kind cannot be empty")
		return 0
	}

	list, ok := l.handlers.RawGetString(kind).(*lua.LTable)
	if !ok {
		list = L.NewTable()
		l.handlers.RawSetString(kind, list)
	}
	list.Append(fn)
	return 0
}

// push_group(id)
func (l *Listener) pushGroup(L *lua.LState) int {
	l.coord.PushGroup(L.CheckString(1))
	return 0
}

// push_new_group() -> id
func (l *Listener) pushNewGroup(L *lua.LState) int {
	L.Push(lua.LString(l.coord.PushNewGroup()))
	return 1
}

// pop_group() -> id | nil
func (l *Listener) popGroup(L *lua.LState) int {
	id, ok := l.coord.PopGroup()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(id))
	return 1
}

// current_group() -> id
func (l *Listener) currentGroup(L *lua.LState) int {
	L.Push(lua.LString(l.coord.CurrentGroupID()))
	return 1
}

// fire()
func (l *Listener) fire(L *lua.LState) int {
	l.coord.FirePendingEvents()
	return 0
}

// add_event(kind, block, payload?)
func (l *Listener) addEvent(L *lua.LState) int {
	kind := L.CheckString(1)
	block := L.CheckString(2)
	if kind == "" {
		L.ArgError(1, "kind cannot be empty")
		return 0
	}
	if event.Kind(kind).IsBuiltin() {
		L.ArgError(1, "built-in kinds are emitted by the workspace mutators")
		return 0
	}

	var payload map[string]string
	if t := L.OptTable(3, nil); t != nil {
		payload = make(map[string]string)
		t.ForEach(func(k, v lua.LValue) {
			payload[k.String()] = v.String()
		})
	}
	l.coord.AddPendingEvent(events.NewCustom(event.Kind(kind), l.ws.ID(), block, payload))
	return 0
}

// create(block, type, parent?, input?)
func (l *Listener) create(L *lua.LState) int {
	state := events.BlockState{
		ID:        L.CheckString(1),
		Type:      L.CheckString(2),
		ParentID:  L.OptString(3, ""),
		InputName: L.OptString(4, ""),
	}
	l.check(L, l.ws.CreateBlock(state))
	return 0
}

// delete(block)
func (l *Listener) delete(L *lua.LState) int {
	l.check(L, l.ws.DeleteBlock(L.CheckString(1)))
	return 0
}

// set_field(block, name, value)
func (l *Listener) setField(L *lua.LState) int {
	l.check(L, l.ws.SetField(L.CheckString(1), L.CheckString(2), L.CheckString(3)))
	return 0
}

// set_mutation(block, mutation)
func (l *Listener) setMutation(L *lua.LState) int {
	l.check(L, l.ws.SetMutation(L.CheckString(1), L.CheckString(2)))
	return 0
}

// move(block, parent?, input?)
func (l *Listener) move(L *lua.LState) int {
	err := l.ws.MoveBlock(L.CheckString(1), L.OptString(2, ""), L.OptString(3, ""), events.Position{})
	l.check(L, err)
	return 0
}

// check raises err as a Lua error.
func (l *Listener) check(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}
