// Package cipher encrypts free-text board content at rest.
//
// Two strategies implement Cipher: Noop, used when no server key is configured
// (including the client-side key deployment, where the server only relays
// ciphertext it cannot read), and AEAD, which seals values with AES-256-GCM.
// Decryption never fails: values that are not in the sealed shape, or that do
// not authenticate, are treated as legacy plaintext and returned unchanged.
package cipher

import (
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	KeySize   = 32
	NonceSize = 12
	tagSize   = 16
	separator = "."
)

var ErrInvalidKey = errors.New("encryption key must be 64 hex characters (32 bytes)")

var encoding = base64.RawURLEncoding

// Plaintext is the result of opening a stored value.
// Legacy is true when the value was passed through unchanged.
type Plaintext struct {
	Text   string
	Legacy bool
}

type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(data string) string
	Open(data string) Plaintext
	Enabled() bool
}

type Noop struct{}

func (Noop) Encrypt(plaintext string) (string, error) { return plaintext, nil }
func (Noop) Decrypt(data string) string               { return data }
func (Noop) Open(data string) Plaintext               { return Plaintext{Text: data, Legacy: true} }
func (Noop) Enabled() bool                            { return false }

type AEAD struct {
	gcm stdcipher.AEAD
}

// NewAEAD builds an AES-256-GCM cipher from a hex-encoded 32-byte key.
func NewAEAD(hexKey string) (*AEAD, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create block cipher: %w", err)
	}
	gcm, err := stdcipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcm: %w", err)
	}
	return &AEAD{gcm: gcm}, nil
}

func (a *AEAD) Enabled() bool { return true }

// Encrypt returns base64url(nonce) + "." + base64url(ciphertext||tag).
// The empty string is returned as is.
func (a *AEAD) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := a.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return encoding.EncodeToString(nonce) + separator + encoding.EncodeToString(sealed), nil
}

func (a *AEAD) Decrypt(data string) string {
	return a.Open(data).Text
}

func (a *AEAD) Open(data string) Plaintext {
	legacy := Plaintext{Text: data, Legacy: true}
	if data == "" || !strings.Contains(data, separator) {
		return legacy
	}

	nonceStr, sealedStr, _ := strings.Cut(data, separator)
	nonce, err := encoding.DecodeString(nonceStr)
	if err != nil || len(nonce) != NonceSize {
		return legacy
	}
	sealed, err := encoding.DecodeString(sealedStr)
	if err != nil || len(sealed) < tagSize {
		return legacy
	}
	plain, err := a.gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return legacy
	}
	return Plaintext{Text: string(plain)}
}

// EncryptOptional encrypts a nullable field. Nil stays nil.
func EncryptOptional(c Cipher, value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	out, err := c.Encrypt(*value)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DecryptOptional decrypts a nullable field. Nil stays nil.
func DecryptOptional(c Cipher, value *string) *string {
	if value == nil {
		return nil
	}
	out := c.Decrypt(*value)
	return &out
}
