package history

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/log"
	"github.com/dshills/blockevents/internal/metrics"
)

// Applier performs the model-level replay of a record. Both methods may
// fail with a model consistency error, e.g. when the target block is gone.
type Applier interface {
	ApplyInverse(r event.Record) error
	ApplyForward(r event.Record) error
}

// Stack manages undo/redo state for one editing session.
// Like the coordinator it feeds on, it is not safe for concurrent use.
type Stack struct {
	coord   *event.Coordinator
	applier Applier

	undoStack []*Group
	redoStack []*Group

	// working accumulates the group currently being fired.
	working *Group

	// reopenable is the last committed group, while it is still on top of
	// the undo stack and nothing has been replayed since.
	reopenable *Group

	replaying bool

	maxEntries int
	logger     zerolog.Logger
	onCommit   []func(*Group)
	onReplay   []func(event.Record)
	metrics    bool
}

// New creates a Stack and registers it as a listener on c.
func New(c *event.Coordinator, applier Applier, opts ...Option) *Stack {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Stack{
		coord:      c,
		applier:    applier,
		maxEntries: cfg.maxEntries,
		logger:     cfg.logger,
		onCommit:   cfg.onCommit,
		onReplay:   cfg.onReplay,
		metrics:    cfg.metrics,
	}
	c.AddListener(s)
	return s
}

// Close unregisters the stack from its coordinator.
func (s *Stack) Close() {
	s.coord.RemoveListener(s)
}

// Notify implements event.Listener.
func (s *Stack) Notify(_ *event.Coordinator, r event.Record) {
	if s.replaying {
		for _, fn := range s.onReplay {
			fn(r)
		}
		return
	}

	id := r.GroupID()
	if id == "" {
		s.commitWorking()
		s.commit(&Group{Events: []event.Record{r}})
		return
	}

	if s.working != nil {
		if s.working.ID == id {
			s.working.Events = append(s.working.Events, r)
			return
		}
		s.commitWorking()
	}

	if g := s.reopenable; g != nil && g.ID == id && s.topUndo() == g {
		s.undoStack = s.undoStack[:len(s.undoStack)-1]
		s.reopenable = nil
		g.Events = append(g.Events, r)
		s.working = g
		return
	}

	s.working = &Group{ID: id, Events: []event.Record{r}}
}

// FireCycleEnded implements event.CycleListener. The working group is
// committed when the outermost fire cycle returns.
func (s *Stack) FireCycleEnded(*event.Coordinator) {
	if s.replaying {
		return
	}
	s.commitWorking()
}

func (s *Stack) commitWorking() {
	if s.working == nil {
		return
	}
	g := s.working
	s.working = nil
	s.commit(g)
}

// commit pushes g onto the undo stack and clears the redo stack.
func (s *Stack) commit(g *Group) {
	g.Committed = time.Now()
	s.undoStack = append(s.undoStack, g)
	s.redoStack = nil

	if len(s.undoStack) > s.maxEntries {
		excess := len(s.undoStack) - s.maxEntries
		s.undoStack = s.undoStack[excess:]
	}

	s.reopenable = nil
	if g.ID != "" {
		s.reopenable = g
	}

	if s.metrics {
		metrics.IncGroupCommitted()
	}
	s.logger.Debug().
		Str(log.FieldGroupID, g.ID).
		Str(log.FieldEventKind, g.Events[0].Kind().String()).
		Str(log.FieldBlockID, g.Events[0].BlockID()).
		Int(log.FieldGroupSize, g.Len()).
		Int(log.FieldUndoCount, len(s.undoStack)).
		Msg("group committed")

	for _, fn := range s.onCommit {
		fn(g)
	}
}

// Undo reverts the most recent group.
// It returns false with a nil error when there is nothing to undo.
func (s *Stack) Undo() (bool, error) {
	return s.step(DirectionUndo)
}

// Redo reapplies the most recently undone group.
// It returns false with a nil error when there is nothing to redo.
func (s *Stack) Redo() (bool, error) {
	return s.step(DirectionRedo)
}

func (s *Stack) step(dir Direction) (bool, error) {
	if s.replaying {
		return false, ErrReplayInProgress
	}

	// Anything the user did before asking belongs to history first.
	s.coord.FirePendingEvents()
	s.commitWorking()

	from := &s.undoStack
	to := &s.redoStack
	if dir == DirectionRedo {
		from, to = to, from
	}

	if len(*from) == 0 {
		s.logger.Debug().Str(log.FieldOp, string(dir)).Msg("nothing to " + string(dir))
		s.count(dir, metrics.ResultEmpty)
		return false, nil
	}

	g := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	s.reopenable = nil

	if err := s.replay(g, dir); err != nil {
		s.logger.Error().
			Err(err).
			Str(log.FieldOp, string(dir)).
			Str(log.FieldGroupID, g.ID).
			Msg("replay aborted, group dropped")
		s.count(dir, metrics.ResultFailed)
		return false, err
	}

	*to = append(*to, g)
	s.count(dir, metrics.ResultOK)
	s.logger.Debug().
		Str(log.FieldOp, string(dir)).
		Str(log.FieldGroupID, g.ID).
		Int(log.FieldUndoCount, len(s.undoStack)).
		Int(log.FieldRedoCount, len(s.redoStack)).
		Msg("replayed group")
	return true, nil
}

// replay applies g in the given direction. Records produced by the applier
// are fired before replay mode ends so that they are never recorded.
func (s *Stack) replay(g *Group, dir Direction) error {
	s.replaying = true
	defer func() { s.replaying = false }()

	err := s.apply(g, dir)
	s.coord.FirePendingEvents()
	return err
}

func (s *Stack) apply(g *Group, dir Direction) error {
	n := len(g.Events)
	for i := 0; i < n; i++ {
		idx := i
		apply := s.applier.ApplyForward
		if dir == DirectionUndo {
			idx = n - 1 - i
			apply = s.applier.ApplyInverse
		}
		r := g.Events[idx]
		if err := apply(r); err != nil {
			return &ReplayError{
				Direction: dir,
				GroupID:   g.ID,
				Index:     idx,
				Kind:      r.Kind(),
				BlockID:   r.BlockID(),
				Err:       err,
			}
		}
	}
	return nil
}

func (s *Stack) count(dir Direction, result string) {
	if s.metrics {
		metrics.IncHistoryOp(string(dir), result)
	}
}

func (s *Stack) topUndo() *Group {
	if len(s.undoStack) == 0 {
		return nil
	}
	return s.undoStack[len(s.undoStack)-1]
}

// IsReplaying reports whether an undo or redo is being applied.
func (s *Stack) IsReplaying() bool {
	return s.replaying
}

// CanUndo returns true if undo is available.
func (s *Stack) CanUndo() bool {
	return len(s.undoStack) > 0 || s.working != nil
}

// CanRedo returns true if redo is available.
func (s *Stack) CanRedo() bool {
	return len(s.redoStack) > 0
}

// UndoCount returns the number of committed undo groups.
func (s *Stack) UndoCount() int {
	return len(s.undoStack)
}

// RedoCount returns the number of redo groups.
func (s *Stack) RedoCount() int {
	return len(s.redoStack)
}

// Working returns the group being accumulated, if any.
func (s *Stack) Working() (GroupInfo, bool) {
	if s.working == nil {
		return GroupInfo{}, false
	}
	return s.working.Info(), true
}

// Clear removes all undo/redo history, including the working group.
func (s *Stack) Clear() {
	s.undoStack = nil
	s.redoStack = nil
	s.working = nil
	s.reopenable = nil
}

// UndoInfo returns info about available undo groups, oldest first.
func (s *Stack) UndoInfo() []GroupInfo {
	return infos(s.undoStack)
}

// RedoInfo returns info about available redo groups, oldest first.
func (s *Stack) RedoInfo() []GroupInfo {
	return infos(s.redoStack)
}

// PeekUndo returns info about the next undo group without removing it.
func (s *Stack) PeekUndo() (GroupInfo, bool) {
	return peek(s.undoStack)
}

// PeekRedo returns info about the next redo group without removing it.
func (s *Stack) PeekRedo() (GroupInfo, bool) {
	return peek(s.redoStack)
}

// SetMaxEntries changes the maximum number of undo groups.
// If the current stack is larger, oldest groups are removed.
func (s *Stack) SetMaxEntries(max int) {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	s.maxEntries = max

	if len(s.undoStack) > max {
		excess := len(s.undoStack) - max
		s.undoStack = s.undoStack[excess:]
	}
}

// MaxEntries returns the maximum number of undo groups.
func (s *Stack) MaxEntries() int {
	return s.maxEntries
}

func infos(groups []*Group) []GroupInfo {
	result := make([]GroupInfo, len(groups))
	for i, g := range groups {
		result[i] = g.Info()
	}
	return result
}

func peek(groups []*Group) (GroupInfo, bool) {
	if len(groups) == 0 {
		return GroupInfo{}, false
	}
	return groups[len(groups)-1].Info(), true
}
