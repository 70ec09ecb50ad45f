package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	secretSize     = 32
	tokenSeparator = "."
)

// strictEncoding rejects non-zero trailing bits, so no two distinct
// signature strings decode to the same MAC.
var strictEncoding = base64.RawURLEncoding.Strict()

// Codec signs session identifiers with HMAC-SHA-256.
// A token is id + "." + base64url(mac).
type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) *Codec {
	s := make([]byte, len(secret))
	copy(s, secret)
	return &Codec{secret: s}
}

// NewRandomSecret returns a process-local secret for deployments that did not
// configure one. Tokens signed with it do not survive a restart.
func NewRandomSecret() ([]byte, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return secret, nil
}

func (c *Codec) Sign(id string) string {
	return id + tokenSeparator + base64.RawURLEncoding.EncodeToString(c.mac(id))
}

// Verify returns the identifier carried by a token signed with this codec.
// Malformed or forged tokens yield ok == false.
func (c *Codec) Verify(token string) (string, bool) {
	id, sig, found := strings.Cut(token, tokenSeparator)
	if !found || id == "" || sig == "" {
		return "", false
	}
	provided, err := strictEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(provided, c.mac(id)) {
		return "", false
	}
	return id, true
}

func (c *Codec) mac(id string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(id))
	return h.Sum(nil)
}
