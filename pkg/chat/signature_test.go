package chat

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func userMsg(id, text string) Message {
	return Message{ID: id, Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

func TestSignatureOf_Deterministic(t *testing.T) {
	m := Message{
		ID:   "m1",
		Role: RoleAssistant,
		Parts: []Part{
			TextPart{Text: "hi"},
			ToolInvocationPart{CallID: "c1", Tool: "draw_shape", Input: json.RawMessage(`{"x":1}`)},
		},
	}
	a, err := SignatureOf(m)
	require.NoError(t, err)
	b, err := SignatureOf(m)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 64)
}

func TestSignatureOf_SensitiveToContentRoleAndTools(t *testing.T) {
	base := userMsg("m1", "hello")
	baseSig, err := SignatureOf(base)
	require.NoError(t, err)

	edited := userMsg("m1", "hello!")
	editedSig, err := SignatureOf(edited)
	require.NoError(t, err)
	require.NotEqual(t, baseSig, editedSig)

	reroled := base
	reroled.Role = RoleAssistant
	reroledSig, err := SignatureOf(reroled)
	require.NoError(t, err)
	require.NotEqual(t, baseSig, reroledSig)

	withTool := base
	withTool.Parts = append([]Part{}, base.Parts...)
	withTool.Parts = append(withTool.Parts, ToolInvocationPart{CallID: "c1", Tool: "clear_board"})
	withToolSig, err := SignatureOf(withTool)
	require.NoError(t, err)
	require.NotEqual(t, baseSig, withToolSig)
}

func TestSignatures_OrderPreserving(t *testing.T) {
	msgs := []Message{userMsg("m1", "a"), userMsg("m2", "b"), userMsg("m3", "c")}
	sigs, err := Signatures(msgs)
	require.NoError(t, err)
	require.Len(t, sigs, 3)

	single, err := SignatureOf(msgs[1])
	require.NoError(t, err)
	require.Equal(t, single, sigs[1])
}

func TestHasMatchingPrefix(t *testing.T) {
	prev := []string{"a", "b"}
	require.True(t, HasMatchingPrefix(nil, nil))
	require.True(t, HasMatchingPrefix(nil, prev))
	require.True(t, HasMatchingPrefix(prev, prev))
	require.True(t, HasMatchingPrefix(prev, []string{"a", "b", "c"}))
	require.False(t, HasMatchingPrefix(prev, []string{"a"}))
	require.False(t, HasMatchingPrefix(prev, []string{"a", "x", "c"}))
	require.False(t, HasMatchingPrefix(prev, []string{"x", "b"}))
}

func TestHasMatchingPrefix_AppendLaw(t *testing.T) {
	prev := []Message{userMsg("m1", "a"), userMsg("m2", "b")}
	for k := 0; k <= 3; k++ {
		next := append([]Message{}, prev...)
		for i := 0; i < k; i++ {
			next = append(next, userMsg(fmt.Sprintf("m%d", 3+i), "x"))
		}
		prevSigs, err := Signatures(prev)
		require.NoError(t, err)
		nextSigs, err := Signatures(next)
		require.NoError(t, err)
		require.True(t, HasMatchingPrefix(prevSigs, nextSigs), "k=%d", k)
		require.Len(t, nextSigs[len(prevSigs):], k)
	}
}

func TestFingerprint(t *testing.T) {
	require.Equal(t, "n=0", Fingerprint(nil))

	msgs := []Message{userMsg("m1", "a")}
	fp1 := Fingerprint(msgs)

	// Appending changes the fingerprint.
	msgs = append(msgs, Message{ID: "m2", Role: RoleAssistant, CreatedAtMs: 5, Parts: []Part{
		TextPart{Text: "b"},
		ReasoningPart{Text: "because"},
	}})
	fp2 := Fingerprint(msgs)
	require.NotEqual(t, fp1, fp2)

	// A part added to the last message changes it too.
	msgs[1].Parts = append(msgs[1].Parts, FilePart{Name: "f", URL: "u"})
	require.NotEqual(t, fp2, Fingerprint(msgs))

	// Editing an earlier message's body is invisible to the coarse
	// fingerprint; that is what the per-message signatures are for.
	edited := append([]Message{}, msgs...)
	edited[0] = userMsg("m1", "rewritten")
	require.Equal(t, Fingerprint(msgs), Fingerprint(edited))
}
