package chatstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/draftboard-io/draftboard/pkg/chat"
)

// InMemoryStore is a Store kept entirely in process memory. It backs tests
// and the default serve configuration when no SQLite DSN is set.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	messages map[string][]chat.Message
}

var _ Store = &InMemoryStore{}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: map[string]Session{},
		messages: map[string][]chat.Message{},
	}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) CreateSession(_ context.Context, sess Session) (Session, error) {
	if s == nil {
		return Session{}, errors.New("memory chat store: nil store")
	}
	sess = normalizeSession(sess, nowMs())
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[sess.ID]; exists {
		return Session{}, errors.Errorf("memory chat store: session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *InMemoryStore) GetSession(_ context.Context, id string) (Session, bool, error) {
	if s == nil {
		return Session{}, false, errors.New("memory chat store: nil store")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, false, errors.New("memory chat store: session id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok, nil
}

func (s *InMemoryStore) ListSessions(_ context.Context, limit int) ([]Session, error) {
	if s == nil {
		return nil, errors.New("memory chat store: nil store")
	}
	if limit <= 0 {
		limit = 200
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAtMs == out[j].UpdatedAtMs {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAtMs > out[j].UpdatedAtMs
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) LoadMessages(_ context.Context, sessionID string) ([]chat.Message, error) {
	if s == nil {
		return nil, errors.New("memory chat store: nil store")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("memory chat store: session id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages[sessionID]...), nil
}

func (s *InMemoryStore) AppendMessages(_ context.Context, sessionID string, msgs []chat.Message) error {
	if s == nil {
		return errors.New("memory chat store: nil store")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("memory chat store: session id is empty")
	}
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[sessionID] = append(s.messages[sessionID], msgs...)
	if sess, ok := s.sessions[sessionID]; ok {
		sess.UpdatedAtMs = nowMs()
		s.sessions[sessionID] = sess
	}
	return nil
}

func (s *InMemoryStore) ClearMessages(_ context.Context, sessionID string) error {
	if s == nil {
		return errors.New("memory chat store: nil store")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("memory chat store: session id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, sessionID)
	return nil
}
