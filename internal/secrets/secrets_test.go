package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewAESCodec_InvalidKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"too short", "deadbeef"},
		{"not hex", strings.Repeat("zz", 32)},
		{"too long", testKey + "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESCodec(tt.key)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestAESCodec_RoundTrip(t *testing.T) {
	codec, err := NewAESCodec(testKey)
	require.NoError(t, err)

	for _, plaintext := range []string{"user:pass", "hg-api-key-123", "", "unicode: héllo"} {
		ciphertext, err := codec.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := codec.Decrypt(ciphertext)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestAESCodec_CiphertextVaries(t *testing.T) {
	codec, err := NewAESCodec(testKey)
	require.NoError(t, err)

	a, err := codec.Encrypt("same input")
	require.NoError(t, err)
	b, err := codec.Encrypt("same input")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "random nonce must produce distinct ciphertexts")
}

func TestAESCodec_Decrypt_EmptyPassthrough(t *testing.T) {
	codec, err := NewAESCodec(testKey)
	require.NoError(t, err)

	got, err := codec.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAESCodec_Decrypt_Malformed(t *testing.T) {
	codec, err := NewAESCodec(testKey)
	require.NoError(t, err)

	tests := []struct {
		name       string
		ciphertext string
	}{
		{"not base64", "!!not-base64!!"},
		{"too short", "YWJj"},
		{"tampered", func() string {
			c, _ := codec.Encrypt("secret")
			return c[:len(c)-4] + "AAAA"
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decrypt(tt.ciphertext)
			assert.ErrorIs(t, err, ErrInvalidCiphertext)
		})
	}
}

func TestAESCodec_WrongKey(t *testing.T) {
	codec, err := NewAESCodec(testKey)
	require.NoError(t, err)
	other, err := NewAESCodec(strings.Repeat("ff", 32))
	require.NoError(t, err)

	ciphertext, err := codec.Encrypt("secret")
	require.NoError(t, err)

	_, err = other.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestNoopCodec(t *testing.T) {
	codec := NoopCodec{}

	ciphertext, err := codec.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", ciphertext)

	plaintext, err := codec.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", plaintext)
}
