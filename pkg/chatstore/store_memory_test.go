package chatstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/draftboard-io/draftboard/pkg/chat"
)

func msg(id, text string) chat.Message {
	return chat.Message{ID: id, Role: chat.RoleUser, Parts: []chat.Part{chat.TextPart{Text: text}}}
}

func TestInMemoryStore_Sessions(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, Session{Title: "first board"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	require.Greater(t, sess.CreatedAtMs, int64(0))

	got, ok, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, sess, got)

	_, ok, err = s.GetSession(ctx, "nope")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.CreateSession(ctx, Session{ID: sess.ID})
	require.Error(t, err)

	list, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestInMemoryStore_MessageLog(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	sess, err := s.CreateSession(ctx, Session{})
	require.NoError(t, err)

	// Empty append is a no-op.
	require.NoError(t, s.AppendMessages(ctx, sess.ID, nil))
	loaded, err := s.LoadMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, loaded)

	require.NoError(t, s.AppendMessages(ctx, sess.ID, []chat.Message{msg("m1", "a"), msg("m2", "b")}))
	require.NoError(t, s.AppendMessages(ctx, sess.ID, []chat.Message{msg("m3", "c")}))

	loaded, err = s.LoadMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	require.Equal(t, "m1", loaded[0].ID)
	require.Equal(t, "m3", loaded[2].ID)

	require.NoError(t, s.ClearMessages(ctx, sess.ID))
	loaded, err = s.LoadMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestInMemoryStore_LoadedSliceIsDetached(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.AppendMessages(ctx, "s1", []chat.Message{msg("m1", "a")}))

	loaded, err := s.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	loaded[0].ID = "mutated"

	again, err := s.LoadMessages(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "m1", again[0].ID)
}
