package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8088", cfg.Addr)
	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, 2000, cfg.Sync.DebounceMs)
	require.Equal(t, 50, cfg.History.Capacity)
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
store:
  driver: memory
cache:
  backend: badger
  path: /tmp/dbcache
sync:
  debounceMs: 500
redis:
  enabled: true
  addr: redis:6379
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "memory", cfg.Store.Driver)
	require.Equal(t, "badger", cfg.Cache.Backend)
	require.Equal(t, 500, cfg.Sync.DebounceMs)
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	// Untouched sections keep their defaults.
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 50, cfg.History.Capacity)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "postgres"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsSQLiteWithoutDSN(t *testing.T) {
	cfg := Default()
	cfg.Store.DSN = ""
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeDebounce(t *testing.T) {
	cfg := Default()
	cfg.Sync.DebounceMs = -1
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
