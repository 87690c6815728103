// Package chatstore defines the authoritative remote store contract for
// conversation sessions and their message logs, plus SQLite and in-memory
// implementations.
package chatstore

import (
	"context"
	"strings"
	"time"

	"github.com/draftboard-io/draftboard/pkg/chat"
)

// Session is one persisted conversation session.
type Session struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedAtMs int64  `json:"createdAtMs"`
	UpdatedAtMs int64  `json:"updatedAtMs"`
}

// Store is the remote message log collaborator the sync engine writes to.
//
// AppendMessages must preserve input order and treat an empty slice as a
// no-op. LoadMessages returns messages ordered oldest to newest.
type Store interface {
	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSession(ctx context.Context, id string) (Session, bool, error)
	ListSessions(ctx context.Context, limit int) ([]Session, error)
	LoadMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	AppendMessages(ctx context.Context, sessionID string, msgs []chat.Message) error
	ClearMessages(ctx context.Context, sessionID string) error
	Close() error
}

func normalizeSession(s Session, now int64) Session {
	s.ID = strings.TrimSpace(s.ID)
	s.Title = strings.TrimSpace(s.Title)
	if s.CreatedAtMs <= 0 {
		s.CreatedAtMs = now
	}
	if s.UpdatedAtMs <= 0 {
		s.UpdatedAtMs = s.CreatedAtMs
	}
	return s
}

func nowMs() int64 { return time.Now().UnixMilli() }
