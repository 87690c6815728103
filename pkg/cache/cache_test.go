package cache

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, s Store) {
	t.Helper()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set("k", `{"messages":[]}`))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"messages":[]}`, v)

	require.NoError(t, s.Set("k", "second"))
	v, ok, err = s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", v)

	require.NoError(t, s.Remove("k"))
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	require.False(t, ok)

	// Removing a missing key is a no-op, not an error.
	require.NoError(t, s.Remove("k"))

	require.Error(t, s.Set("", "v"))
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	t.Cleanup(func() { _ = s.Close() })
	testStore(t, s)
}

func TestBadgerStore_InMemory(t *testing.T) {
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	testStore(t, s)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	testStore(t, s)
}

func TestRedisStore_RequiresAddr(t *testing.T) {
	_, err := NewRedisStore("")
	require.Error(t, err)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBadgerStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("session:abc", "payload"))
	require.NoError(t, s.Close())

	s2, err := NewBadgerStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s2.Close() })
	v, ok, err := s2.Get("session:abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "payload", v)
}
