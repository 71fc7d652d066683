package history_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/blockevents/internal/event"
	"github.com/dshills/blockevents/internal/event/events"
	"github.com/dshills/blockevents/internal/history"
	"github.com/dshills/blockevents/internal/log"
	"github.com/dshills/blockevents/internal/workspace"
)

type session struct {
	coord *event.Coordinator
	ws    *workspace.Workspace
	stack *history.Stack
}

func newSession(t *testing.T) *session {
	t.Helper()
	c := event.New(
		event.WithReporter(event.AssertReporter{}),
		event.WithLogger(log.Nop()),
		event.WithMetrics(false),
	)
	ws := workspace.New("ws", c)
	s := history.New(c, ws.Applier(), history.WithLogger(log.Nop()), history.WithMetrics(false))
	return &session{coord: c, ws: ws, stack: s}
}

func TestScenario_CreateUndoRedo(t *testing.T) {
	s := newSession(t)

	s.coord.PushGroup("g1")
	require.NoError(t, s.ws.CreateBlock(events.BlockState{ID: "X", Type: "math_number"}))
	s.coord.PopGroup()
	s.coord.FirePendingEvents()

	require.Equal(t, 1, s.stack.UndoCount())
	info, _ := s.stack.PeekUndo()
	assert.Equal(t, "g1", info.ID)
	assert.Equal(t, []event.Kind{event.KindCreate}, info.Kinds)

	ok, err := s.stack.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	_, exists := s.ws.Block("X")
	assert.False(t, exists)
	assert.Equal(t, 0, s.stack.UndoCount())
	assert.Equal(t, 1, s.stack.RedoCount())

	ok, err = s.stack.Redo()
	require.NoError(t, err)
	require.True(t, ok)
	_, exists = s.ws.Block("X")
	assert.True(t, exists)
	assert.Equal(t, 1, s.stack.UndoCount())
	assert.Equal(t, 0, s.stack.RedoCount())
}

func TestScenario_TwoUngroupedChanges(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.ws.CreateBlock(events.BlockState{ID: "A", Type: "text"}))
	require.NoError(t, s.ws.CreateBlock(events.BlockState{ID: "B", Type: "text"}))
	s.coord.FirePendingEvents()
	s.stack.Clear()

	require.NoError(t, s.ws.SetField("A", "TEXT", "hello"))
	require.NoError(t, s.ws.SetField("B", "TEXT", "world"))
	s.coord.FirePendingEvents()

	require.Equal(t, 2, s.stack.UndoCount())

	_, err := s.stack.Undo()
	require.NoError(t, err)
	a, _ := s.ws.Block("A")
	b, _ := s.ws.Block("B")
	assert.Equal(t, "hello", a.Fields["TEXT"])
	assert.Empty(t, b.Fields["TEXT"])

	_, err = s.stack.Undo()
	require.NoError(t, err)
	a, _ = s.ws.Block("A")
	assert.Empty(t, a.Fields["TEXT"])
}

func TestScenario_DeleteSubtreeUndo(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.ws.CreateBlock(events.BlockState{ID: "if", Type: "controls_if"}))
	require.NoError(t, s.ws.CreateBlock(events.BlockState{ID: "cond", Type: "logic_boolean", ParentID: "if", InputName: "IF0"}))
	require.NoError(t, s.ws.CreateBlock(events.BlockState{ID: "leaf", Type: "logic_negate", ParentID: "cond", InputName: "BOOL"}))
	s.coord.FirePendingEvents()
	before := s.ws.Snapshot()

	s.coord.PushNewGroup()
	require.NoError(t, s.ws.DeleteBlock("if"))
	s.coord.PopGroup()
	s.coord.FirePendingEvents()
	assert.Zero(t, s.ws.Len())

	info, _ := s.stack.PeekUndo()
	assert.Equal(t, []event.Kind{event.KindDelete, event.KindDelete, event.KindDelete}, info.Kinds)

	_, err := s.stack.Undo()
	require.NoError(t, err)
	assert.Equal(t, before, s.ws.Snapshot())
}

func TestScenario_UndoFailsWhenBlockMissing(t *testing.T) {
	s := newSession(t)

	s.coord.PushGroup("g1")
	require.NoError(t, s.ws.CreateBlock(events.BlockState{ID: "X", Type: "t"}))
	require.NoError(t, s.ws.SetField("X", "F", "1"))
	s.coord.PopGroup()
	s.coord.FirePendingEvents()

	// X disappears without the history seeing it.
	s.stack.Close()
	require.NoError(t, s.ws.DeleteBlock("X"))
	s.coord.FirePendingEvents()
	s.coord.AddListener(s.stack)

	ok, err := s.stack.Undo()
	assert.False(t, ok)
	assert.ErrorIs(t, err, history.ErrReplayFailed)
	assert.ErrorIs(t, err, workspace.ErrBlockNotFound)
	assert.False(t, s.stack.IsReplaying())
	assert.Zero(t, s.stack.UndoCount())
	assert.Zero(t, s.stack.RedoCount())
}

// randomAction performs one random mutation on the workspace. It returns
// false if nothing could be done.
func randomAction(rng *rand.Rand, ws *workspace.Workspace, seq *int) bool {
	ids := ws.BlockIDs()
	if len(ids) == 0 || rng.Intn(4) == 0 {
		*seq++
		state := events.BlockState{
			ID:       fmt.Sprintf("b%d", *seq),
			Type:     "t",
			Position: events.Position{X: rng.Intn(100), Y: rng.Intn(100)},
		}
		if len(ids) > 0 && rng.Intn(2) == 0 {
			state.ParentID = ids[rng.Intn(len(ids))]
			state.InputName = "IN"
			state.Position = events.Position{}
		}
		return ws.CreateBlock(state) == nil
	}

	id := ids[rng.Intn(len(ids))]
	switch rng.Intn(6) {
	case 0:
		return ws.DeleteBlock(id) == nil
	case 1:
		return ws.MoveBlock(id, "", "", events.Position{X: rng.Intn(100), Y: rng.Intn(100)}) == nil
	case 2:
		parent := ids[rng.Intn(len(ids))]
		return ws.MoveBlock(id, parent, "IN", events.Position{}) == nil
	case 3:
		return ws.SetField(id, fmt.Sprintf("F%d", rng.Intn(3)), fmt.Sprintf("v%d", rng.Intn(5))) == nil
	case 4:
		return ws.SetMutation(id, fmt.Sprintf("<mutation items=\"%d\"/>", rng.Intn(4))) == nil
	default:
		return ws.SetCollapsed(id, rng.Intn(2) == 0) == nil
	}
}

func TestProperty_UndoRedoRoundTrip(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed-%d", seed), func(t *testing.T) {
			rng := rand.New(rand.NewSource(seed))
			s := newSession(t)
			seq := 0

			for action := 0; action < 8; action++ {
				beforeGroup := s.ws.Snapshot()

				s.coord.PushNewGroup()
				for i := 0; i < 1+rng.Intn(5); i++ {
					randomAction(rng, s.ws, &seq)
				}
				s.coord.PopGroup()
				s.coord.FirePendingEvents()
				afterGroup := s.ws.Snapshot()

				if !s.stack.CanUndo() || equalSnapshots(beforeGroup, afterGroup) {
					continue
				}

				ok, err := s.stack.Undo()
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, beforeGroup, s.ws.Snapshot(), "undo restores the state before the group")

				ok, err = s.stack.Redo()
				require.NoError(t, err)
				require.True(t, ok)
				require.Equal(t, afterGroup, s.ws.Snapshot(), "redo restores the state after the group")
			}
		})
	}
}

func equalSnapshots(a, b map[string]events.BlockState) bool {
	return assert.ObjectsAreEqual(a, b)
}
