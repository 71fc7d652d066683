package script

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/sjson"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/codec"
	"github.com/dshills/blockevents/internal/event/events"
	"github.com/dshills/blockevents/internal/history"
	"github.com/dshills/blockevents/internal/log"
	"github.com/dshills/blockevents/internal/luabind"
	"github.com/dshills/blockevents/internal/workspace"
)

// Runner executes one script against a fresh coordinator, workspace and
// history. A Runner is single use.
type Runner struct {
	script *Script
	coord  *event.Coordinator
	ws     *workspace.Workspace
	hist   *history.Stack
	diags  *event.RecordingReporter
	logger zerolog.Logger

	listeners []*luabind.Listener

	// fired collects records delivered during the current step.
	fired    []json.RawMessage
	traceErr error
}

// NewRunner wires a session for s.
func NewRunner(s *Script, opts ...Option) *Runner {
	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Runner{
		script: s,
		diags:  event.NewRecordingReporter(cfg.reporter),
		logger: cfg.logger.With().Str(log.FieldWorkspaceID, s.Workspace).Logger(),
	}

	coordOpts := append(slices.Clone(cfg.coordOpts), event.WithReporter(r.diags))
	r.coord = event.New(coordOpts...)
	r.coord.AddListener(event.ListenerFunc(r.record))

	r.ws = workspace.New(s.Workspace, r.coord)

	histOpts := slices.Clone(cfg.histOpts)
	if s.MaxEntries > 0 {
		histOpts = append(histOpts, history.WithMaxEntries(s.MaxEntries))
	}
	r.hist = history.New(r.coord, r.ws.Applier(), histOpts...)
	return r
}

// Run is shorthand for NewRunner(s, opts...).Run().
func Run(s *Script, opts ...Option) (*Trace, error) {
	return NewRunner(s, opts...).Run()
}

// Coordinator returns the session coordinator.
func (r *Runner) Coordinator() *event.Coordinator { return r.coord }

// Workspace returns the session workspace.
func (r *Runner) Workspace() *workspace.Workspace { return r.ws }

// History returns the session undo/redo stack.
func (r *Runner) History() *history.Stack { return r.hist }

// Run executes every step in order. On failure the returned trace holds the
// steps up to and including the failing one.
func (r *Runner) Run() (*Trace, error) {
	t := &Trace{Script: r.script.Name, Workspace: r.script.Workspace}
	r.logger.Debug().Str("script", r.script.Name).Int("steps", len(r.script.Steps)).Msg("running script")

	defer r.closeListeners()

	runErr := r.attachListeners()
	for i, st := range r.script.Steps {
		if runErr != nil {
			break
		}
		res, err := r.runStep(i, st)
		t.Steps = append(t.Steps, res)
		if err != nil {
			runErr = fmt.Errorf("step %d (%s): %w", i, st.Op, err)
			break
		}
	}

	t.Blocks = r.ws.BlockIDs()
	t.Undo = summarize(r.hist.UndoInfo())
	t.Redo = summarize(r.hist.RedoInfo())

	if runErr != nil {
		r.logger.Warn().Err(runErr).Msg("script failed")
	}
	return t, runErr
}

// attachListeners loads the script's Lua listeners. They come after the
// history stack in notify order, so history has grouped a record before a
// chaining listener reacts to it.
func (r *Runner) attachListeners() error {
	for i, ls := range r.script.Listeners {
		name := ls.Name
		if name == "" {
			name = fmt.Sprintf("listener-%d", i)
		}
		l, err := luabind.New(name, ls.Lua, r.coord, r.ws,
			luabind.WithSkip(r.hist.IsReplaying),
			luabind.WithLogger(r.logger),
		)
		if err != nil {
			return err
		}
		r.listeners = append(r.listeners, l)
		r.coord.AddListener(l)
	}
	return nil
}

func (r *Runner) closeListeners() {
	for _, l := range r.listeners {
		r.coord.RemoveListener(l)
		l.Close()
	}
	r.listeners = nil
}

// listenerErr returns the first handler error raised during the step.
func (r *Runner) listenerErr() error {
	var first error
	for _, l := range r.listeners {
		if err := l.TakeErr(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Runner) runStep(i int, st Step) (res StepResult, err error) {
	r.fired = nil
	r.traceErr = nil
	before := len(r.diags.Diagnostics())

	res = StepResult{Index: i, Op: st.Op}
	defer func() {
		// Assert reporters panic with the diagnostic value.
		if p := recover(); p != nil {
			d, ok := p.(event.Diagnostic)
			if !ok {
				panic(p)
			}
			err = d
		}
		res.Fired = r.fired
		for _, d := range r.diags.Diagnostics()[before:] {
			res.Diagnostics = append(res.Diagnostics, string(d.Code))
		}
		res.UndoCount = r.hist.UndoCount()
		res.RedoCount = r.hist.RedoCount()
		if err == nil {
			err = r.traceErr
		}
		if lerr := r.listenerErr(); err == nil {
			err = lerr
		}
		if err != nil {
			res.Error = err.Error()
		}
	}()

	var opErr error
	res.Result, opErr = r.apply(st)

	if errors.Is(opErr, ErrExpectation) {
		return res, opErr
	}
	switch {
	case st.WantError == "" && opErr != nil:
		return res, opErr
	case st.WantError != "" && opErr == nil:
		return res, fmt.Errorf("%w: want error containing %q, got none", ErrExpectation, st.WantError)
	case st.WantError != "" && !strings.Contains(opErr.Error(), st.WantError):
		return res, fmt.Errorf("%w: want error containing %q, got %q", ErrExpectation, st.WantError, opErr)
	case opErr != nil:
		// Expected failure; keep it in the trace without failing the run.
		res.Result = "error: " + opErr.Error()
	}
	return res, nil
}

// apply performs st and returns a short result for the trace.
func (r *Runner) apply(st Step) (string, error) {
	switch st.Op {
	case OpPushGroup:
		r.coord.PushGroup(st.ID)
		return st.ID, nil
	case OpPushNewGroup:
		return r.coord.PushNewGroup(), nil
	case OpPopGroup:
		id, ok := r.coord.PopGroup()
		if !ok {
			return "empty", nil
		}
		return id, nil
	case OpCreate:
		return "", r.ws.CreateBlock(events.BlockState{
			ID:        st.Block,
			Type:      st.Type,
			ParentID:  st.Parent,
			InputName: st.Input,
			Position:  events.Position{X: st.X, Y: st.Y},
			Fields:    st.Fields,
			Mutation:  st.Mutation,
		})
	case OpDelete:
		return "", r.ws.DeleteBlock(st.Block)
	case OpMove:
		return "", r.ws.MoveBlock(st.Block, st.Parent, st.Input, events.Position{X: st.X, Y: st.Y})
	case OpSetField:
		return "", r.ws.SetField(st.Block, st.Name, st.Value)
	case OpSetMutation:
		return "", r.ws.SetMutation(st.Block, st.Mutation)
	case OpFire:
		return "", r.coord.TryFirePendingEvents()
	case OpUndo:
		return replayResult(r.hist.Undo())
	case OpRedo:
		return replayResult(r.hist.Redo())
	case OpExpect:
		return "", r.expect(st)
	default:
		return "", fmt.Errorf("%w: unknown op %q", ErrInvalidScript, st.Op)
	}
}

func replayResult(applied bool, err error) (string, error) {
	switch {
	case err != nil:
		return "", err
	case !applied:
		return "empty", nil
	default:
		return "applied", nil
	}
}

func (r *Runner) expect(st Step) error {
	var failed []string
	checkInt := func(name string, want *int, got int) {
		if want != nil && *want != got {
			failed = append(failed, fmt.Sprintf("%s: want %d, got %d", name, *want, got))
		}
	}

	checkInt("undo", st.Undo, r.hist.UndoCount())
	checkInt("redo", st.Redo, r.hist.RedoCount())
	checkInt("blocks", st.Blocks, r.ws.Len())
	checkInt("pending", st.Pending, r.coord.PendingCount())
	checkInt("depth", st.Depth, r.coord.GroupDepth())

	if st.Group != nil && *st.Group != r.coord.CurrentGroupID() {
		failed = append(failed, fmt.Sprintf("group: want %q, got %q", *st.Group, r.coord.CurrentGroupID()))
	}
	for _, id := range st.Exists {
		if _, ok := r.ws.Block(id); !ok {
			failed = append(failed, fmt.Sprintf("block %s: want present", id))
		}
	}
	for _, id := range st.Absent {
		if _, ok := r.ws.Block(id); ok {
			failed = append(failed, fmt.Sprintf("block %s: want absent", id))
		}
	}
	if f := st.Field; f != nil {
		b, ok := r.ws.Block(f.Block)
		switch {
		case !ok:
			failed = append(failed, fmt.Sprintf("field %s.%s: block missing", f.Block, f.Name))
		case b.Fields[f.Name] != f.Value:
			failed = append(failed, fmt.Sprintf("field %s.%s: want %q, got %q", f.Block, f.Name, f.Value, b.Fields[f.Name]))
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrExpectation, strings.Join(failed, "; "))
	}
	return nil
}

// record is the runner's own coordinator listener. It captures every
// delivered record, marking those delivered while history is replaying.
func (r *Runner) record(_ *event.Coordinator, rec event.Record) {
	data, err := codec.Marshal(rec)
	if err == nil {
		// Timestamps would make traces unreproducible.
		data, err = sjson.DeleteBytes(data, "time")
	}
	if err == nil && r.hist.IsReplaying() {
		data, err = sjson.SetBytes(data, "replay", true)
	}
	if err != nil {
		if r.traceErr == nil {
			r.traceErr = fmt.Errorf("trace %s: %w", rec.Kind(), err)
		}
		return
	}
	r.fired = append(r.fired, json.RawMessage(data))
}
