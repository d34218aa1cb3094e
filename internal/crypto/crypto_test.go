package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("test-credential-key")
	require.NoError(t, err)

	encrypted, err := c.EncryptString("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", encrypted)

	plain, err := c.DecryptString(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-password", plain)
}

func TestCipherEmptyKey(t *testing.T) {
	_, err := NewCipher("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encryption key is required")
}

func TestCipherWrongKey(t *testing.T) {
	c1, err := NewCipher("key-one")
	require.NoError(t, err)
	c2, err := NewCipher("key-two")
	require.NoError(t, err)

	encrypted, err := c1.EncryptString("s3cret")
	require.NoError(t, err)

	_, err = c2.DecryptString(encrypted)
	require.Error(t, err)
}

func TestCipherCorruptBlob(t *testing.T) {
	c, err := NewCipher("test-credential-key")
	require.NoError(t, err)

	// not base64
	_, err = c.DecryptString("%%%not-base64%%%")
	require.Error(t, err)

	// valid base64 with unknown version byte
	bad := base64.StdEncoding.EncodeToString([]byte{0x7f, 0x01, 0x02, 0x03})
	_, err = c.DecryptString(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported ciphertext version")

	// tampered ciphertext fails GCM authentication
	encrypted, err := c.EncryptString("s3cret")
	require.NoError(t, err)
	blob, err := base64.StdEncoding.DecodeString(encrypted)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xff
	_, err = c.DecryptString(base64.StdEncoding.EncodeToString(blob))
	require.Error(t, err)
}
