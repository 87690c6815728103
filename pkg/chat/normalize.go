package chat

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// CachedMessage is the normalized message form persisted in the local cache.
// It keeps only id, role, flat content, the creation timestamp, and the parts
// that can be replayed offline (text, file, reasoning). Tool invocations are
// deliberately excluded.
type CachedMessage struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	CreatedAt string         `json:"createdAt,omitempty"`
	Parts     []partEnvelope `json:"parts,omitempty"`
}

// CacheEnvelope is the JSON document stored under a session's cache key.
type CacheEnvelope struct {
	Messages  []CachedMessage `json:"messages"`
	UpdatedAt string          `json:"updatedAt"`
}

// Normalize converts a message into its cached form.
func Normalize(m Message) CachedMessage {
	out := CachedMessage{
		ID:      m.ID,
		Role:    m.Role,
		Content: m.Content(),
	}
	if m.CreatedAtMs > 0 {
		out.CreatedAt = time.UnixMilli(m.CreatedAtMs).UTC().Format(time.RFC3339)
	}
	for _, p := range m.Parts {
		if p == nil || p.Kind() == PartToolInvocation {
			continue
		}
		out.Parts = append(out.Parts, encodePart(p))
	}
	return out
}

// Denormalize restores a message from its cached form. Messages cached before
// parts were persisted come back as a single text part.
func Denormalize(c CachedMessage) Message {
	m := Message{ID: c.ID, Role: c.Role}
	if c.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, c.CreatedAt); err == nil {
			m.CreatedAtMs = ts.UnixMilli()
		}
	}
	for _, env := range c.Parts {
		if p, ok := decodePart(env); ok {
			m.Parts = append(m.Parts, p)
		}
	}
	if len(m.Parts) == 0 && c.Content != "" {
		m.Parts = []Part{TextPart{Text: c.Content}}
	}
	return m
}

// EncodeCacheEnvelope serializes messages into the persisted cache document.
func EncodeCacheEnvelope(msgs []Message, updatedAt time.Time) (string, error) {
	env := CacheEnvelope{
		Messages:  make([]CachedMessage, 0, len(msgs)),
		UpdatedAt: updatedAt.UTC().Format(time.RFC3339),
	}
	for _, m := range msgs {
		env.Messages = append(env.Messages, Normalize(m))
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, "encode cache envelope")
	}
	return string(b), nil
}

// DecodeCacheEnvelope parses the persisted cache document back into messages.
func DecodeCacheEnvelope(raw string) ([]Message, error) {
	var env CacheEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, errors.Wrap(err, "decode cache envelope")
	}
	msgs := make([]Message, 0, len(env.Messages))
	for _, c := range env.Messages {
		msgs = append(msgs, Denormalize(c))
	}
	return msgs, nil
}
