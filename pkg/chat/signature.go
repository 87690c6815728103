package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// SignatureAlgorithmV1 identifies the canonical signature material/version.
//
// The canonical material is JSON over:
//   - role
//   - flat content
//   - non-tool parts
//   - tool invocations
//
// with absent lists treated as empty arrays, so adding the first part never
// aliases a previously-signed message.
const SignatureAlgorithmV1 = "sha256-canonical-json-v1"

type canonicalMessageMaterial struct {
	Role            string         `json:"role"`
	Content         string         `json:"content"`
	Parts           []partEnvelope `json:"parts"`
	ToolInvocations []partEnvelope `json:"toolInvocations"`
}

// CanonicalMessageMaterialJSON returns the canonical JSON bytes used for
// message signatures.
func CanonicalMessageMaterialJSON(m Message) ([]byte, error) {
	material := canonicalMessageMaterial{
		Role:            strings.TrimSpace(string(m.Role)),
		Content:         m.Content(),
		Parts:           []partEnvelope{},
		ToolInvocations: []partEnvelope{},
	}
	for _, p := range m.Parts {
		if p == nil {
			continue
		}
		env := encodePart(p)
		if p.Kind() == PartToolInvocation {
			material.ToolInvocations = append(material.ToolInvocations, env)
			continue
		}
		material.Parts = append(material.Parts, env)
	}
	b, err := json.Marshal(material)
	if err != nil {
		return nil, errors.Wrapf(err, "canonical material for message %s", m.ID)
	}
	return b, nil
}

// SignatureOf computes the lowercase-hex SHA-256 signature of one message's
// canonical material. Signatures are comparison keys only and are never
// persisted.
func SignatureOf(m Message) (string, error) {
	b, err := CanonicalMessageMaterialJSON(m)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Signatures computes one signature per message, order-preserving: index i of
// the result corresponds to message i.
func Signatures(msgs []Message) ([]string, error) {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		sig, err := SignatureOf(m)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

// HasMatchingPrefix reports whether prev is an exact prefix of next. This is
// the check that lets the sync engine append only new trailing messages.
func HasMatchingPrefix(prev, next []string) bool {
	if len(prev) > len(next) {
		return false
	}
	for i := range prev {
		if prev[i] != next[i] {
			return false
		}
	}
	return true
}

// Fingerprint derives a cheap whole-list change signal: message count plus the
// last message's id, role, timestamp, and per-kind part counts. It inspects
// the last message only, so it stays O(last message size) on every
// render-triggering update.
func Fingerprint(msgs []Message) string {
	if len(msgs) == 0 {
		return "n=0"
	}
	last := msgs[len(msgs)-1]
	var text, file, reasoning, tool int
	for _, p := range last.Parts {
		if p == nil {
			continue
		}
		switch p.Kind() {
		case PartText:
			text++
		case PartFile:
			file++
		case PartReasoning:
			reasoning++
		case PartToolInvocation:
			tool++
		}
	}
	return fmt.Sprintf("n=%d;last=%s|%s|%d;parts=t%d,f%d,r%d,i%d",
		len(msgs), last.ID, last.Role, last.CreatedAtMs, text, file, reasoning, tool)
}
