package luabind

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/events"
	"github.com/dshills/blockevents/internal/log"
	"github.com/dshills/blockevents/internal/workspace"
)

// AnyKind subscribes a handler to every record.
const AnyKind = "*"

// Option configures a Listener.
type Option func(*Listener)

// WithSkip sets a predicate checked before each delivery; while it returns
// true the handlers are not called. Pass history.Stack.IsReplaying to keep
// chaining listeners quiet during undo and redo.
func WithSkip(fn func() bool) Option {
	return func(l *Listener) {
		l.skip = fn
	}
}

// WithLogger sets the listener's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Listener) {
		l.logger = logger
	}
}

// Listener is an event.Listener backed by Lua handlers. Like the
// coordinator, it must only be used from one goroutine.
type Listener struct {
	name  string
	state *lua.LState
	coord *event.Coordinator
	ws    *workspace.Workspace

	// handlers maps a kind to a Lua array of functions. It is also set as
	// the _session_handlers global.
	handlers *lua.LTable

	skip   func() bool
	logger zerolog.Logger
	err    error
}

// New compiles and runs source in a fresh Lua state. The source registers
// its handlers with session.on. The listener is not added to c; the caller
// decides where it goes in the listener order.
func New(name, source string, c *event.Coordinator, ws *workspace.Workspace, opts ...Option) (*Listener, error) {
	l := &Listener{
		name:   name,
		coord:  c,
		ws:     ws,
		logger: log.WithComponent("luabind"),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With().Str("listener", name).Logger()

	l.state = lua.NewState(lua.Options{SkipOpenLibs: true})
	l.openSafeLibraries()

	l.handlers = l.state.NewTable()
	l.state.SetGlobal("_session_handlers", l.handlers)
	l.state.SetGlobal("session", l.module())

	if err := l.state.DoString(source); err != nil {
		l.state.Close()
		return nil, fmt.Errorf("%w %s: %v", ErrLoad, name, err)
	}
	return l, nil
}

// hostGlobals are base library functions that load code from outside the
// listener source.
var hostGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// openSafeLibraries opens the libraries that cannot reach the host and
// sends print to the logger.
func (l *Listener) openSafeLibraries() {
	L := l.state
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range hostGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(l.print))
}

func (l *Listener) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.ToStringMeta(L.Get(i + 1)).String()
	}
	l.logger.Info().Msg(strings.Join(parts, "\t"))
	return 0
}

// Name returns the listener name.
func (l *Listener) Name() string { return l.name }

// Close releases the Lua state.
func (l *Listener) Close() {
	if l.state != nil {
		l.state.Close()
		l.state = nil
	}
}

// TakeErr returns the first handler error since the last call and clears it.
func (l *Listener) TakeErr() error {
	err := l.err
	l.err = nil
	return err
}

// Notify implements event.Listener.
func (l *Listener) Notify(_ *event.Coordinator, r event.Record) {
	if l.state == nil || (l.skip != nil && l.skip()) {
		return
	}

	var fns []lua.LValue
	for _, key := range []string{string(r.Kind()), AnyKind} {
		if list, ok := l.handlers.RawGetString(key).(*lua.LTable); ok {
			list.ForEach(func(_, fn lua.LValue) {
				fns = append(fns, fn)
			})
		}
	}
	if len(fns) == 0 {
		return
	}

	ev := recordTable(l.state, r)
	for _, fn := range fns {
		l.state.Push(fn)
		l.state.Push(ev)
		if err := l.state.PCall(1, 0, nil); err != nil {
			l.logger.Warn().
				Err(err).
				Str(log.FieldEventKind, r.Kind().String()).
				Str(log.FieldBlockID, r.BlockID()).
				Msg("lua handler failed")
			if l.err == nil {
				l.err = &HandlerError{Listener: l.name, Kind: r.Kind(), BlockID: r.BlockID(), Err: err}
			}
		}
	}
}

// recordTable converts r into the table handed to Lua handlers.
func recordTable(L *lua.LState, r event.Record) *lua.LTable {
	t := L.NewTable()
	set := func(k, v string) { t.RawSetString(k, lua.LString(v)) }

	set("kind", r.Kind().String())
	set("workspace", r.WorkspaceID())
	set("block", r.BlockID())
	set("group", r.GroupID())
	t.RawSetString("grouped", lua.LBool(r.GroupAssigned()))

	switch rec := r.(type) {
	case *events.Create:
		set("type", rec.State.Type)
		set("parent", rec.State.ParentID)
		set("input", rec.State.InputName)
	case *events.Delete:
		set("type", rec.OldState.Type)
		set("parent", rec.OldState.ParentID)
	case *events.Move:
		set("old_parent", rec.OldParentID)
		set("old_input", rec.OldInputName)
		set("new_parent", rec.NewParentID)
		set("new_input", rec.NewInputName)
	case *events.Change:
		set("element", rec.Element)
		set("name", rec.Name)
		set("old", rec.OldValue)
		set("new", rec.NewValue)
	case *events.Mutate:
		set("old", rec.OldMutation)
		set("new", rec.NewMutation)
	case *events.Custom:
		payload := L.NewTable()
		for k, v := range rec.Payload {
			payload.RawSetString(k, lua.LString(v))
		}
		t.RawSetString("payload", payload)
	}
	return t
}
