package cache

import (
	"sync"

	"github.com/pkg/errors"
)

// MemoryStore is a process-local Store. It backs tests and the default serve
// configuration; entries do not survive a restart, which is acceptable for a
// cache whose authoritative copy lives in the remote store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

var _ Store = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	if s == nil {
		return "", false, errors.New("memory cache: nil store")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	if s == nil {
		return errors.New("memory cache: nil store")
	}
	if key == "" {
		return errors.New("memory cache: key is empty")
	}
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	if s == nil {
		return errors.New("memory cache: nil store")
	}
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
