package security

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	enc, err := NewEncryptorFromSecret("dev-secret", "drafts")
	require.NoError(t, err)

	plain := []byte(`{"vitals":{"temperature":37.2}}`)
	sealed, err := enc.Encrypt(plain)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, []byte("temperature")))

	again, err := enc.Encrypt(plain)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plain, opened)
}

func TestDecryptRejectsTamperingAndWrongKey(t *testing.T) {
	enc, err := NewEncryptorFromSecret("dev-secret", "drafts")
	require.NoError(t, err)
	other, err := NewEncryptorFromSecret("dev-secret", "other")
	require.NoError(t, err)

	sealed, err := enc.Encrypt([]byte("notes"))
	require.NoError(t, err)

	_, err = other.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryption)

	sealed[len(sealed)-1] ^= 0xff
	_, err = enc.Decrypt(sealed)
	assert.ErrorIs(t, err, ErrDecryption)

	_, err = enc.Decrypt([]byte("short"))
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestNewEncryptorKeySize(t *testing.T) {
	_, err := NewEncryptor([]byte("too short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)
	_, err = NewEncryptorFromSecret("", "drafts")
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}
