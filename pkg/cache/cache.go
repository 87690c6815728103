// Package cache provides the local ephemeral key/value store the sync engine
// falls back to when the remote store is unreachable. The contract is a
// synchronous string KV; values are small JSON documents.
package cache

// Store is a synchronous key/value cache. Get reports presence explicitly so
// callers can tell "no entry" apart from an empty value.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Close() error
}
