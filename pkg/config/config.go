// Package config loads the server configuration from YAML and sets up
// logging.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/draftboard-io/draftboard/pkg/bus"
)

// StoreConfig selects the remote session store.
type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `yaml:"driver"`
	// DSN is the SQLite path; ignored for the memory driver.
	DSN string `yaml:"dsn"`
}

// CacheConfig selects the local cache backing the sync engine.
type CacheConfig struct {
	// Backend is "badger", "redis", or "memory".
	Backend string `yaml:"backend"`
	// Path is the Badger directory; empty runs Badger in memory.
	Path string `yaml:"path"`
	// Addr is the Redis address for the redis backend.
	Addr string `yaml:"addr"`
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	DebounceMs int `yaml:"debounceMs"`
}

// HistoryConfig tunes the undo log.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// LogConfig controls logging output.
type LogConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `yaml:"level"`
	// Format is "json", "text", or "auto" (text on a terminal, json otherwise).
	Format string `yaml:"format"`
}

// Config is the root server configuration.
type Config struct {
	Addr    string            `yaml:"addr"`
	Store   StoreConfig       `yaml:"store"`
	Cache   CacheConfig       `yaml:"cache"`
	Sync    SyncConfig        `yaml:"sync"`
	History HistoryConfig     `yaml:"history"`
	Redis   bus.RedisSettings `yaml:"redis"`
	Log     LogConfig         `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr:    ":8088",
		Store:   StoreConfig{Driver: "sqlite", DSN: "draftboard.db"},
		Cache:   CacheConfig{Backend: "memory"},
		Sync:    SyncConfig{DebounceMs: 2000},
		History: HistoryConfig{Capacity: 50},
		Log:     LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads a YAML config file and overlays it on the defaults. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read file")
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrap(err, "config: parse yaml")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return errors.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
		return errors.New("config: sqlite store requires a dsn")
	}
	switch c.Cache.Backend {
	case "badger", "memory":
	case "redis":
		if c.Cache.Addr == "" {
			return errors.New("config: redis cache requires an addr")
		}
	default:
		return errors.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Sync.DebounceMs < 0 {
		return errors.New("config: sync debounce must not be negative")
	}
	if c.History.Capacity < 0 {
		return errors.New("config: history capacity must not be negative")
	}
	return nil
}

// Debounce returns the sync debounce as a duration, zero meaning "use the
// engine default".
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Sync.DebounceMs) * time.Millisecond
}
