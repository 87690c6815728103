package history

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftboard-io/draftboard/pkg/board"
)

func TestRecorder_RecordsInitialState(t *testing.T) {
	store := board.NewStore()
	require.NoError(t, store.PutShape(board.NewShape(0, 0, 10, 10), board.OriginUser))

	r, err := NewRecorder(store, 10)
	require.NoError(t, err)
	require.Equal(t, 1, r.Len())
	require.False(t, r.CanUndo())
}

func TestRecorder_RecordsEditsAndSkipsReplay(t *testing.T) {
	store := board.NewStore()
	r, err := NewRecorder(store, 10)
	require.NoError(t, err)
	require.Equal(t, 1, r.Len()) // the empty initial state

	a := board.NewShape(0, 0, 10, 10)
	b := board.NewShape(50, 0, 10, 10)
	require.NoError(t, store.PutShape(a, board.OriginUser))
	require.NoError(t, store.PutShape(b, board.OriginTool))
	require.Equal(t, 3, r.Len())

	// Undo replays through the store without growing the log.
	require.True(t, r.Undo())
	require.Equal(t, 3, r.Len())
	st := store.State()
	require.Len(t, st.Shapes, 1)
	got, ok := st.Shape(a.ID)
	require.True(t, ok)
	require.Same(t, a, got)

	// Redo restores the exact pre-undo entry.
	require.True(t, r.Redo())
	st = store.State()
	require.Len(t, st.Shapes, 2)
	gotB, ok := st.Shape(b.ID)
	require.True(t, ok)
	require.Same(t, b, gotB)
	require.Equal(t, 3, r.Len())
}

func TestRecorder_UndoRedoBounds(t *testing.T) {
	store := board.NewStore()
	r, err := NewRecorder(store, 10)
	require.NoError(t, err)

	require.False(t, r.Undo())
	require.False(t, r.Redo())

	require.NoError(t, store.PutShape(board.NewShape(0, 0, 1, 1), board.OriginUser))
	require.True(t, r.Undo())
	require.False(t, r.Undo())
	require.True(t, r.Redo())
	require.False(t, r.Redo())
}

func TestRecorder_NewEditAfterUndoDropsRedo(t *testing.T) {
	store := board.NewStore()
	r, err := NewRecorder(store, 10)
	require.NoError(t, err)

	require.NoError(t, store.PutShape(board.NewShape(0, 0, 1, 1), board.OriginUser))
	require.NoError(t, store.PutShape(board.NewShape(5, 0, 1, 1), board.OriginUser))
	require.True(t, r.Undo())
	require.True(t, r.CanRedo())

	require.NoError(t, store.PutShape(board.NewShape(9, 9, 1, 1), board.OriginUser))
	require.False(t, r.CanRedo())
}

func TestRecorder_NilStore(t *testing.T) {
	_, err := NewRecorder(nil, 10)
	require.Error(t, err)
}
