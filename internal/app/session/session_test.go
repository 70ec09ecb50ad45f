package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec() *Codec {
	return NewCodec([]byte("test-secret-test-secret-test-sec"))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	c := newTestCodec()
	for _, id := range []string{"a", "3f2b9c1e-8d4a-4e1b-9c3d-2a1b0c9d8e7f", "legacy_id-123"} {
		token := c.Sign(id)
		assert.True(t, strings.HasPrefix(token, id+"."))

		got, ok := c.Verify(token)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	c := newTestCodec()
	token := c.Sign("session-1")
	sigStart := strings.Index(token, ".") + 1

	for i := sigStart; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]
		_, ok := c.Verify(tampered)
		assert.False(t, ok, "tampered position %d accepted", i)
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	c := newTestCodec()
	valid := c.Sign("abc")
	inputs := []string{
		"",
		"abc",
		".",
		"abc.",
		"." + strings.SplitN(valid, ".", 2)[1],
		"abc.!!!not-base64",
		"abd." + strings.SplitN(valid, ".", 2)[1],
	}
	for _, in := range inputs {
		id, ok := c.Verify(in)
		assert.False(t, ok, "input %q", in)
		assert.Empty(t, id)
	}
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token := newTestCodec().Sign("abc")
	_, ok := NewCodec([]byte("another-secret")).Verify(token)
	assert.False(t, ok)
}

func TestVerifySplitsOnFirstSeparator(t *testing.T) {
	c := newTestCodec()
	token := c.Sign("abc")
	_, ok := c.Verify("abc.def." + strings.SplitN(token, ".", 2)[1])
	assert.False(t, ok)
}

func TestNewRandomSecret(t *testing.T) {
	a, err := NewRandomSecret()
	require.NoError(t, err)
	b, err := NewRandomSecret()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestResolve(t *testing.T) {
	codec := newTestCodec()
	svc := &service{codec: codec, newID: func() string { return "fresh-id" }}

	t.Run("valid token reused without reissue", func(t *testing.T) {
		token := codec.Sign("known")
		id := svc.Resolve(Handshake{Token: token, LegacySessionID: "legacy"})
		assert.Equal(t, Identity{ID: "known", Token: token}, id)
	})

	t.Run("forged token mints fresh id and ignores legacy", func(t *testing.T) {
		id := svc.Resolve(Handshake{Token: "known.forged", LegacySessionID: "legacy"})
		assert.Equal(t, "fresh-id", id.ID)
		assert.True(t, id.Issued)
		assert.Equal(t, codec.Sign("fresh-id"), id.Token)
	})

	t.Run("legacy id adopted and signed", func(t *testing.T) {
		id := svc.Resolve(Handshake{LegacySessionID: "legacy-123"})
		assert.Equal(t, "legacy-123", id.ID)
		assert.True(t, id.Issued)

		got, ok := codec.Verify(id.Token)
		require.True(t, ok)
		assert.Equal(t, "legacy-123", got)
	})

	t.Run("malformed legacy id ignored", func(t *testing.T) {
		id := svc.Resolve(Handshake{LegacySessionID: "has.dot"})
		assert.Equal(t, "fresh-id", id.ID)
		assert.True(t, id.Issued)
	})

	t.Run("nothing presented", func(t *testing.T) {
		id := svc.Resolve(Handshake{})
		assert.Equal(t, "fresh-id", id.ID)
		assert.True(t, id.Issued)
	})
}

func TestNewServiceMintsUUIDs(t *testing.T) {
	svc := NewService(newTestCodec())
	a := svc.Resolve(Handshake{})
	b := svc.Resolve(Handshake{})
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.ID, 36)
}
