package cache

import (
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// BadgerStore is an embedded on-disk Store backed by BadgerDB. It keeps the
// cache across restarts without requiring any external service.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = &BadgerStore{}

// NewBadgerStore opens (or creates) a badger database at path. An empty path
// opens an in-memory database, used by tests.
func NewBadgerStore(path string) (*BadgerStore, error) {
	path = strings.TrimSpace(path)
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "badger cache: open")
	}
	log.Debug().Str("path", path).Bool("in_memory", path == "").Msg("opened badger cache")
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errors.New("badger cache: nil store")
	}
	var value string
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = string(v)
			found = true
			return nil
		})
	})
	if err != nil {
		return "", false, errors.Wrapf(err, "badger cache: get %s", key)
	}
	return value, found, nil
}

func (s *BadgerStore) Set(key, value string) error {
	if s == nil || s.db == nil {
		return errors.New("badger cache: nil store")
	}
	if key == "" {
		return errors.New("badger cache: key is empty")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	return errors.Wrapf(err, "badger cache: set %s", key)
}

func (s *BadgerStore) Remove(key string) error {
	if s == nil || s.db == nil {
		return errors.New("badger cache: nil store")
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return errors.Wrapf(err, "badger cache: remove %s", key)
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
