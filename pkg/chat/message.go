// Package chat defines the conversation message model, its storage-ready
// normalized form, and the signature/fingerprint keys the sync engine compares
// message lists with.
//
// Message content is a closed set of tagged part variants. Unknown variants
// found while decoding are dropped instead of being carried around untyped.
package chat

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Role is the author role of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// PartKind tags a message content part variant.
type PartKind string

const (
	PartText           PartKind = "text"
	PartFile           PartKind = "file"
	PartReasoning      PartKind = "reasoning"
	PartToolInvocation PartKind = "tool-invocation"
)

// Part is one typed content part of a message.
type Part interface {
	Kind() PartKind
}

// TextPart is plain message text.
type TextPart struct {
	Text string
}

func (TextPart) Kind() PartKind { return PartText }

// FilePart references an uploaded file by URL.
type FilePart struct {
	Name      string
	MediaType string
	URL       string
}

func (FilePart) Kind() PartKind { return PartFile }

// ReasoningPart carries model reasoning text that is displayed separately
// from the answer.
type ReasoningPart struct {
	Text string
}

func (ReasoningPart) Kind() PartKind { return PartReasoning }

// ToolInvocationPart records a tool call and, once available, its result.
// Tool invocations participate in signatures but are excluded from the local
// cache form since they are not replayable offline.
type ToolInvocationPart struct {
	CallID string
	Tool   string
	State  string
	Input  json.RawMessage
	Output json.RawMessage
}

func (ToolInvocationPart) Kind() PartKind { return PartToolInvocation }

// Message is one conversation message. CreatedAtMs is optional (zero when
// unknown).
type Message struct {
	ID          string
	Role        Role
	Parts       []Part
	CreatedAtMs int64
}

// Content returns the concatenated text parts, which is the flat string form
// persisted in the local cache.
func (m Message) Content() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// partEnvelope is the single wire form all part variants share.
type partEnvelope struct {
	Type      PartKind        `json:"type"`
	Text      string          `json:"text,omitempty"`
	Name      string          `json:"name,omitempty"`
	MediaType string          `json:"mediaType,omitempty"`
	URL       string          `json:"url,omitempty"`
	CallID    string          `json:"callId,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	State     string          `json:"state,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
}

func encodePart(p Part) partEnvelope {
	switch v := p.(type) {
	case TextPart:
		return partEnvelope{Type: PartText, Text: v.Text}
	case ReasoningPart:
		return partEnvelope{Type: PartReasoning, Text: v.Text}
	case FilePart:
		return partEnvelope{Type: PartFile, Name: v.Name, MediaType: v.MediaType, URL: v.URL}
	case ToolInvocationPart:
		return partEnvelope{Type: PartToolInvocation, CallID: v.CallID, Tool: v.Tool, State: v.State, Input: v.Input, Output: v.Output}
	}
	return partEnvelope{}
}

func decodePart(env partEnvelope) (Part, bool) {
	switch env.Type {
	case PartText:
		return TextPart{Text: env.Text}, true
	case PartReasoning:
		return ReasoningPart{Text: env.Text}, true
	case PartFile:
		return FilePart{Name: env.Name, MediaType: env.MediaType, URL: env.URL}, true
	case PartToolInvocation:
		return ToolInvocationPart{CallID: env.CallID, Tool: env.Tool, State: env.State, Input: env.Input, Output: env.Output}, true
	}
	return nil, false
}

type messageWire struct {
	ID          string         `json:"id"`
	Role        Role           `json:"role"`
	Parts       []partEnvelope `json:"parts"`
	CreatedAtMs int64          `json:"createdAtMs,omitempty"`
}

// MarshalJSON encodes the message with tagged part envelopes.
func (m Message) MarshalJSON() ([]byte, error) {
	wire := messageWire{
		ID:          m.ID,
		Role:        m.Role,
		Parts:       make([]partEnvelope, 0, len(m.Parts)),
		CreatedAtMs: m.CreatedAtMs,
	}
	for _, p := range m.Parts {
		if p == nil {
			continue
		}
		wire.Parts = append(wire.Parts, encodePart(p))
	}
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the message, dropping part variants it does not know.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire messageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return errors.Wrap(err, "decode message")
	}
	if strings.TrimSpace(wire.ID) == "" {
		return errors.New("decode message: id is empty")
	}
	if !wire.Role.Valid() {
		return errors.Errorf("decode message %s: unknown role %q", wire.ID, wire.Role)
	}
	parts := make([]Part, 0, len(wire.Parts))
	for _, env := range wire.Parts {
		p, ok := decodePart(env)
		if !ok {
			log.Debug().Str("message_id", wire.ID).Str("part_type", string(env.Type)).Msg("dropping unknown message part variant")
			continue
		}
		parts = append(parts, p)
	}
	m.ID = wire.ID
	m.Role = wire.Role
	m.Parts = parts
	m.CreatedAtMs = wire.CreatedAtMs
	return nil
}
