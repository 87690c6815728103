package chatstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftboard-io/draftboard/pkg/chat"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "chat.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_EmptyDSN(t *testing.T) {
	_, err := NewSQLiteStore("  ")
	require.Error(t, err)
}

func TestSQLiteStore_SessionRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, Session{Title: "flow chart"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, ok, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sess.Title, got.Title)

	_, ok, err = s.GetSession(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	list, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestSQLiteStore_AppendPreservesOrderAcrossBatches(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	sess, err := s.CreateSession(ctx, Session{})
	require.NoError(t, err)

	require.NoError(t, s.AppendMessages(ctx, sess.ID, []chat.Message{msg("m1", "a"), msg("m2", "b")}))
	require.NoError(t, s.AppendMessages(ctx, sess.ID, nil)) // no-op
	require.NoError(t, s.AppendMessages(ctx, sess.ID, []chat.Message{msg("m3", "c")}))

	loaded, err := s.LoadMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	for i, want := range []string{"m1", "m2", "m3"} {
		require.Equal(t, want, loaded[i].ID)
	}
}

func TestSQLiteStore_MessagePartsSurviveStorage(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	m := chat.Message{
		ID:          "m1",
		Role:        chat.RoleAssistant,
		CreatedAtMs: 1700000000000,
		Parts: []chat.Part{
			chat.TextPart{Text: "added a rectangle"},
			chat.ToolInvocationPart{CallID: "c1", Tool: "draw_shape", State: "result", Input: json.RawMessage(`{"w":10}`)},
		},
	}
	require.NoError(t, s.AppendMessages(ctx, "s1", []chat.Message{m}))

	loaded, err := s.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, m.ID, loaded[0].ID)
	require.Equal(t, m.Role, loaded[0].Role)
	require.Equal(t, m.CreatedAtMs, loaded[0].CreatedAtMs)
	require.Len(t, loaded[0].Parts, 2)

	// Signatures agree across the storage round trip: the fast-path prefix
	// comparison relies on this.
	before, err := chat.SignatureOf(m)
	require.NoError(t, err)
	after, err := chat.SignatureOf(loaded[0])
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSQLiteStore_ClearMessages(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessages(ctx, "s1", []chat.Message{msg("m1", "a")}))
	require.NoError(t, s.AppendMessages(ctx, "s2", []chat.Message{msg("m2", "b")}))
	require.NoError(t, s.ClearMessages(ctx, "s1"))

	gone, err := s.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	require.Empty(t, gone)

	kept, err := s.LoadMessages(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, kept, 1)
}

func TestSQLiteStore_SeqRestartsAfterClear(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMessages(ctx, "s1", []chat.Message{msg("m1", "a")}))
	require.NoError(t, s.ClearMessages(ctx, "s1"))
	require.NoError(t, s.AppendMessages(ctx, "s1", []chat.Message{msg("m2", "b"), msg("m3", "c")}))

	loaded, err := s.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.Equal(t, "m2", loaded[0].ID)
}
