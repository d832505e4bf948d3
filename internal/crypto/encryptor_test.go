package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewSettingsEncryptor("test-passphrase")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("directory-api-credential")
	require.NoError(t, err)
	assert.NotEqual(t, "directory-api-credential", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "directory-api-credential", plaintext)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	enc, err := NewSettingsEncryptor("test-passphrase")
	require.NoError(t, err)

	a, err := enc.Encrypt("same value")
	require.NoError(t, err)
	b, err := enc.Encrypt("same value")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	enc1, err := NewSettingsEncryptor("key-one")
	require.NoError(t, err)
	enc2, err := NewSettingsEncryptor("key-two")
	require.NoError(t, err)

	ciphertext, err := enc1.Encrypt("secret")
	require.NoError(t, err)

	_, err = enc2.Decrypt(ciphertext)
	assert.Error(t, err)
}

func TestEmptyInputsPassThrough(t *testing.T) {
	enc, err := NewSettingsEncryptor("test-passphrase")
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, ciphertext)

	plaintext, err := enc.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, plaintext)
}

func TestNewSettingsEncryptorRequiresKey(t *testing.T) {
	_, err := NewSettingsEncryptor("")
	assert.Error(t, err)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	enc, err := NewSettingsEncryptor("test-passphrase")
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64!!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}
