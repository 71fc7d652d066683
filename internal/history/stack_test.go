package history

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/events"
	"github.com/dshills/blockevents/internal/log"
)

type call struct {
	dir     Direction
	blockID string
}

type stubApplier struct {
	calls  []call
	failOn map[string]error
	onCall func(dir Direction, r event.Record)
}

func (a *stubApplier) ApplyInverse(r event.Record) error {
	return a.do(DirectionUndo, r)
}

func (a *stubApplier) ApplyForward(r event.Record) error {
	return a.do(DirectionRedo, r)
}

func (a *stubApplier) do(dir Direction, r event.Record) error {
	a.calls = append(a.calls, call{dir: dir, blockID: r.BlockID()})
	if a.onCall != nil {
		a.onCall(dir, r)
	}
	if err := a.failOn[r.BlockID()]; err != nil {
		return err
	}
	return nil
}

func newTestStack(t *testing.T, opts ...Option) (*event.Coordinator, *stubApplier, *Stack) {
	t.Helper()
	c := event.New(
		event.WithReporter(event.AssertReporter{}),
		event.WithLogger(log.Nop()),
		event.WithMetrics(false),
	)
	a := &stubApplier{failOn: map[string]error{}}
	opts = append([]Option{WithLogger(log.Nop()), WithMetrics(false)}, opts...)
	s := New(c, a, opts...)
	return c, a, s
}

func change(blockID string) *events.Change {
	return events.NewChange("ws", blockID, events.ElementField, "F", "old", "new")
}

func fireGroup(c *event.Coordinator, id string, blockIDs ...string) {
	c.PushGroup(id)
	for _, b := range blockIDs {
		c.AddPendingEvent(change(b))
	}
	c.PopGroup()
	c.FirePendingEvents()
}

func TestStack_RegistersAsListener(t *testing.T) {
	c, _, s := newTestStack(t)
	assert.Equal(t, 1, c.ListenerCount())

	s.Close()
	assert.Equal(t, 0, c.ListenerCount())
}

func TestStack_GroupsByID(t *testing.T) {
	c, _, s := newTestStack(t)

	fireGroup(c, "g1", "a", "b", "c")

	require.Equal(t, 1, s.UndoCount())
	info, ok := s.PeekUndo()
	require.True(t, ok)
	assert.Equal(t, "g1", info.ID)
	assert.Equal(t, 3, info.Size)
	assert.Equal(t, []event.Kind{event.KindChange, event.KindChange, event.KindChange}, info.Kinds)
	assert.False(t, info.Committed.IsZero())
}

func TestStack_UngroupedEventsAreSeparateGroups(t *testing.T) {
	c, a, s := newTestStack(t)

	c.AddPendingEvent(change("A"))
	c.AddPendingEvent(change("B"))
	c.FirePendingEvents()

	require.Equal(t, 2, s.UndoCount())
	for _, info := range s.UndoInfo() {
		assert.Equal(t, "", info.ID)
		assert.Equal(t, 1, info.Size)
	}

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []call{{DirectionUndo, "B"}}, a.calls)

	ok, err = s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []call{{DirectionUndo, "B"}, {DirectionUndo, "A"}}, a.calls)
	assert.Equal(t, 2, s.RedoCount())
}

func TestStack_DifferentGroupInSameCycleSplits(t *testing.T) {
	c, _, s := newTestStack(t)

	c.PushGroup("g1")
	c.AddPendingEvent(change("a"))
	c.PopGroup()
	c.PushGroup("g2")
	c.AddPendingEvent(change("b"))
	c.PopGroup()
	c.PushGroup("g1")
	c.AddPendingEvent(change("c"))
	c.PopGroup()
	c.FirePendingEvents()

	infos := s.UndoInfo()
	require.Len(t, infos, 3)
	assert.Equal(t, "g1", infos[0].ID)
	assert.Equal(t, "g2", infos[1].ID)
	assert.Equal(t, "g1", infos[2].ID)
}

func TestStack_CommitOnCycleEnd(t *testing.T) {
	var committed []string
	c, _, s := newTestStack(t, OnCommit(func(g *Group) { committed = append(committed, g.ID) }))

	c.AddListener(event.ListenerFunc(func(*event.Coordinator, event.Record) {
		_, working := s.Working()
		assert.True(t, working, "group is still accumulating during the cycle")
		assert.Empty(t, committed)
	}))

	fireGroup(c, "g1", "a")

	assert.Equal(t, []string{"g1"}, committed)
	_, working := s.Working()
	assert.False(t, working)
}

func TestStack_SameGroupAcrossCyclesExtends(t *testing.T) {
	var commits []int
	c, _, s := newTestStack(t, OnCommit(func(g *Group) { commits = append(commits, g.Len()) }))

	fireGroup(c, "drag", "a")
	fireGroup(c, "drag", "a")
	fireGroup(c, "drag", "a")

	require.Equal(t, 1, s.UndoCount())
	info, _ := s.PeekUndo()
	assert.Equal(t, 3, info.Size)
	assert.Equal(t, []int{1, 2, 3}, commits)
}

func TestStack_NoExtendAfterUndo(t *testing.T) {
	c, _, s := newTestStack(t)

	fireGroup(c, "g1", "a")
	fireGroup(c, "g2", "b")
	_, err := s.Undo()
	require.NoError(t, err)

	fireGroup(c, "g1", "c")

	infos := s.UndoInfo()
	require.Len(t, infos, 2)
	assert.Equal(t, 1, infos[0].Size)
	assert.Equal(t, 1, infos[1].Size)
	assert.Equal(t, 0, s.RedoCount())
}

func TestStack_NewActionClearsRedo(t *testing.T) {
	c, _, s := newTestStack(t)

	fireGroup(c, "g1", "a")
	_, err := s.Undo()
	require.NoError(t, err)
	require.True(t, s.CanRedo())

	fireGroup(c, "g2", "b")

	assert.False(t, s.CanRedo())
	assert.Equal(t, 1, s.UndoCount())
}

func TestStack_UndoReverseRedoForward(t *testing.T) {
	c, a, s := newTestStack(t)

	fireGroup(c, "g1", "a", "b", "c")

	ok, err := s.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Redo()
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []call{
		{DirectionUndo, "c"}, {DirectionUndo, "b"}, {DirectionUndo, "a"},
		{DirectionRedo, "a"}, {DirectionRedo, "b"}, {DirectionRedo, "c"},
	}, a.calls)
	assert.Equal(t, 1, s.UndoCount())
	assert.Equal(t, 0, s.RedoCount())
}

func TestStack_EmptyUndoRedo(t *testing.T) {
	_, a, s := newTestStack(t)

	ok, err := s.Undo()
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Redo()
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, a.calls)
}

func TestStack_ReplayFailure(t *testing.T) {
	c, a, s := newTestStack(t)
	errGone := errors.New("block gone")
	a.failOn["b"] = errGone

	fireGroup(c, "g0", "z")
	fireGroup(c, "g1", "a", "b", "c")

	ok, err := s.Undo()
	assert.False(t, ok)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplayFailed)
	assert.ErrorIs(t, err, errGone)

	var re *ReplayError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, DirectionUndo, re.Direction)
	assert.Equal(t, "g1", re.GroupID)
	assert.Equal(t, 1, re.Index)
	assert.Equal(t, "b", re.BlockID)
	assert.Equal(t, event.KindChange, re.Kind)

	// "a" was never attempted.
	assert.Equal(t, []call{{DirectionUndo, "c"}, {DirectionUndo, "b"}}, a.calls)
	assert.False(t, s.IsReplaying())

	// The failed group is off both stacks; the one below it is untouched.
	assert.Equal(t, 1, s.UndoCount())
	assert.Equal(t, 0, s.RedoCount())
	info, _ := s.PeekUndo()
	assert.Equal(t, "g0", info.ID)
}

func TestStack_RedoFailure(t *testing.T) {
	c, a, s := newTestStack(t)

	fireGroup(c, "g1", "a", "b")
	_, err := s.Undo()
	require.NoError(t, err)

	a.failOn["a"] = errors.New("nope")
	ok, err := s.Redo()
	assert.False(t, ok)
	var re *ReplayError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, DirectionRedo, re.Direction)
	assert.Equal(t, 0, re.Index)
	assert.Zero(t, s.UndoCount())
	assert.Zero(t, s.RedoCount())
}

func TestStack_ReplayEventsAreNotRecorded(t *testing.T) {
	var forwarded []string
	c, a, s := newTestStack(t, OnReplayEvent(func(r event.Record) {
		forwarded = append(forwarded, r.BlockID())
	}))
	a.onCall = func(_ Direction, r event.Record) {
		c.AddPendingEvent(change("replay-" + r.BlockID()))
	}

	fireGroup(c, "g1", "a", "b")
	_, err := s.Undo()
	require.NoError(t, err)

	assert.Equal(t, []string{"replay-b", "replay-a"}, forwarded)
	assert.Zero(t, c.PendingCount())
	assert.Zero(t, s.UndoCount())
	assert.Equal(t, 1, s.RedoCount())
	assert.True(t, s.CanRedo())
}

func TestStack_ReplayFailureStillSuppressesPartialEvents(t *testing.T) {
	c, a, s := newTestStack(t)
	a.failOn["a"] = errors.New("fail")
	a.onCall = func(_ Direction, r event.Record) {
		c.AddPendingEvent(change("replay-" + r.BlockID()))
	}

	fireGroup(c, "g1", "a", "b")
	_, err := s.Undo()
	require.Error(t, err)

	assert.Zero(t, c.PendingCount())
	assert.Zero(t, s.UndoCount())
	assert.Zero(t, s.RedoCount())
}

func TestStack_UndoFlushesPendingFirst(t *testing.T) {
	c, a, s := newTestStack(t)

	fireGroup(c, "g1", "a")
	c.AddPendingEvent(change("late"))

	_, err := s.Undo()
	require.NoError(t, err)

	assert.Equal(t, []call{{DirectionUndo, "late"}}, a.calls)
	assert.Equal(t, 1, s.UndoCount())
}

func TestStack_UndoDuringReplay(t *testing.T) {
	c, a, s := newTestStack(t)
	var nested error
	a.onCall = func(Direction, event.Record) {
		_, nested = s.Undo()
	}

	fireGroup(c, "g1", "a")
	_, err := s.Undo()

	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrReplayInProgress)
}

func TestStack_ChainedEventsJoinGroup(t *testing.T) {
	c, _, s := newTestStack(t)
	c.AddListener(event.ListenerFunc(func(c *event.Coordinator, r event.Record) {
		if r.BlockID() != "parent" {
			return
		}
		c.PushGroup(r.GroupID())
		c.AddPendingEvent(change("child"))
		c.PopGroup()
		c.FirePendingEvents()
	}))

	fireGroup(c, "g1", "parent")

	require.Equal(t, 1, s.UndoCount())
	info, _ := s.PeekUndo()
	assert.Equal(t, 2, info.Size)
}

func TestStack_MaxEntries(t *testing.T) {
	c, _, s := newTestStack(t, WithMaxEntries(2))

	fireGroup(c, "g1", "a")
	fireGroup(c, "g2", "b")
	fireGroup(c, "g3", "c")

	infos := s.UndoInfo()
	require.Len(t, infos, 2)
	assert.Equal(t, "g2", infos[0].ID)
	assert.Equal(t, "g3", infos[1].ID)

	s.SetMaxEntries(1)
	assert.Equal(t, 1, s.UndoCount())
	assert.Equal(t, 1, s.MaxEntries())

	s.SetMaxEntries(0)
	assert.Equal(t, DefaultMaxEntries, s.MaxEntries())
}

func TestStack_Clear(t *testing.T) {
	c, _, s := newTestStack(t)

	fireGroup(c, "g1", "a")
	fireGroup(c, "g2", "b")
	_, err := s.Undo()
	require.NoError(t, err)

	s.Clear()

	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
	assert.Empty(t, s.UndoInfo())
	assert.Empty(t, s.RedoInfo())
	_, ok := s.PeekRedo()
	assert.False(t, ok)
}

func TestReplayError_Message(t *testing.T) {
	err := &ReplayError{
		Direction: DirectionUndo,
		GroupID:   "g1",
		Index:     2,
		Kind:      event.KindMove,
		BlockID:   "x",
		Err:       errors.New("block not found"),
	}
	assert.Equal(t, `undo group "g1": record 2 (move x): block not found`, err.Error())
}

func TestStack_CommitLogsFirstRecord(t *testing.T) {
	var buf bytes.Buffer
	c, _, _ := newTestStack(t, WithLogger(zerolog.New(&buf)))

	fireGroup(c, "g1", "first", "second")

	out := buf.String()
	assert.Contains(t, out, `"message":"group committed"`)
	assert.Contains(t, out, `"group_id":"g1"`)
	assert.Contains(t, out, `"event_kind":"change"`)
	assert.Contains(t, out, `"block_id":"first"`)
	assert.Contains(t, out, `"group_size":2`)
}
