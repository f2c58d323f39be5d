// Package secrets protects provider API keys at rest. Ciphertext is
// AES-256-GCM with a random nonce prefix, base64-encoded for storage in
// a text column. Plaintext exists only transiently, once per adapter
// construction.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Static errors for credential codec operations.
var (
	// ErrInvalidKey is returned when the key is not 32 bytes of hex.
	ErrInvalidKey = errors.New("secrets: key must be 64 hex characters (32 bytes)")
	// ErrInvalidCiphertext is returned when ciphertext is malformed or
	// fails authentication.
	ErrInvalidCiphertext = errors.New("secrets: invalid ciphertext")
)

// Codec encrypts and decrypts provider credentials.
type Codec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Compile-time check that AESCodec implements Codec.
var _ Codec = (*AESCodec)(nil)

// AESCodec is the AES-256-GCM implementation of Codec.
type AESCodec struct {
	aead cipher.AEAD
}

// NewAESCodec creates a codec from a 64-character hex key.
func NewAESCodec(hexKey string) (*AESCodec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secrets: create gcm: %w", err)
	}
	return &AESCodec{aead: aead}, nil
}

// Encrypt seals plaintext and returns base64(nonce || ciphertext).
func (c *AESCodec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64(nonce || ciphertext). An empty input decrypts to
// an empty string so optional credentials round-trip cleanly.
func (c *AESCodec) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

// Compile-time check that NoopCodec implements Codec.
var _ Codec = (*NoopCodec)(nil)

// NoopCodec passes credentials through unchanged. Development and test
// use only.
type NoopCodec struct{}

// Encrypt returns the plaintext unchanged.
func (NoopCodec) Encrypt(plaintext string) (string, error) { return plaintext, nil }

// Decrypt returns the ciphertext unchanged.
func (NoopCodec) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }
