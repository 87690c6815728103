package chatstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/draftboard-io/draftboard/pkg/chat"
)

// SQLiteStore persists sessions and message logs in SQLite. A per-session
// monotonic seq column preserves append order independently of rowid reuse.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite chat store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite chat store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite chat store: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			created_at_ms INTEGER NOT NULL,
			updated_at_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			session_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			message_id TEXT NOT NULL,
			role TEXT NOT NULL,
			parts_json TEXT NOT NULL DEFAULT '[]',
			created_at_ms INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (session_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "sqlite chat store: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	if s == nil || s.db == nil {
		return Session{}, errors.New("sqlite chat store: db is nil")
	}
	sess = normalizeSession(sess, nowMs())
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, title, created_at_ms, updated_at_ms) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.CreatedAtMs, sess.UpdatedAtMs)
	if err != nil {
		return Session{}, errors.Wrapf(err, "sqlite chat store: create session %s", sess.ID)
	}
	return sess, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (Session, bool, error) {
	if s == nil || s.db == nil {
		return Session{}, false, errors.New("sqlite chat store: db is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Session{}, false, errors.New("sqlite chat store: session id is empty")
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT session_id, title, created_at_ms, updated_at_ms FROM sessions WHERE session_id = ?`, id)
	var sess Session
	err := row.Scan(&sess.ID, &sess.Title, &sess.CreatedAtMs, &sess.UpdatedAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, errors.Wrapf(err, "sqlite chat store: get session %s", id)
	}
	return sess, true, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite chat store: db is nil")
	}
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, title, created_at_ms, updated_at_ms FROM sessions
		 ORDER BY updated_at_ms DESC, session_id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite chat store: list sessions")
	}
	defer func() { _ = rows.Close() }()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.CreatedAtMs, &sess.UpdatedAtMs); err != nil {
			return nil, errors.Wrap(err, "sqlite chat store: scan session")
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LoadMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite chat store: db is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("sqlite chat store: session id is empty")
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, role, parts_json, created_at_ms FROM messages
		 WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, errors.Wrapf(err, "sqlite chat store: load messages for %s", sessionID)
	}
	defer func() { _ = rows.Close() }()

	var out []chat.Message
	for rows.Next() {
		var (
			id, role, partsJSON string
			createdAtMs         int64
		)
		if err := rows.Scan(&id, &role, &partsJSON, &createdAtMs); err != nil {
			return nil, errors.Wrap(err, "sqlite chat store: scan message")
		}
		msg, err := decodeStoredMessage(id, role, partsJSON, createdAtMs)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendMessages(ctx context.Context, sessionID string, msgs []chat.Message) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite chat store: db is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("sqlite chat store: session id is empty")
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "sqlite chat store: begin append")
	}
	defer func() { _ = tx.Rollback() }()

	var next int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?`, sessionID)
	if err := row.Scan(&next); err != nil {
		return errors.Wrap(err, "sqlite chat store: next seq")
	}

	now := nowMs()
	for i, msg := range msgs {
		partsJSON, err := encodeStoredParts(msg)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (session_id, seq, message_id, role, parts_json, created_at_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, next+int64(i), msg.ID, string(msg.Role), partsJSON, msg.CreatedAtMs)
		if err != nil {
			return errors.Wrapf(err, "sqlite chat store: append message %s", msg.ID)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET updated_at_ms = ? WHERE session_id = ?`, now, sessionID); err != nil {
		return errors.Wrap(err, "sqlite chat store: touch session")
	}
	return errors.Wrap(tx.Commit(), "sqlite chat store: commit append")
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, sessionID string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite chat store: db is nil")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return errors.New("sqlite chat store: session id is empty")
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID)
	return errors.Wrapf(err, "sqlite chat store: clear messages for %s", sessionID)
}

func encodeStoredParts(msg chat.Message) (string, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrapf(err, "sqlite chat store: encode message %s", msg.ID)
	}
	// The stored JSON is the full tagged-part wire form; role/id columns are
	// duplicated for querying.
	return string(b), nil
}

func decodeStoredMessage(id, role, raw string, createdAtMs int64) (chat.Message, error) {
	var msg chat.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return chat.Message{}, errors.Wrapf(err, "sqlite chat store: decode message %s", id)
	}
	if msg.ID == "" {
		msg.ID = id
	}
	if msg.Role == "" {
		msg.Role = chat.Role(role)
	}
	if msg.CreatedAtMs == 0 {
		msg.CreatedAtMs = createdAtMs
	}
	return msg, nil
}
