// Package crypto provides AES-256-GCM encryption for sensitive values the
// portal persists in its settings store, such as directory API credentials.
//
// Each encryption uses a unique random nonce, so encrypting the same
// plaintext twice produces different ciphertexts. GCM authenticates the
// ciphertext; tampered values fail to decrypt.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"game-portal/internal/common/errors"
)

// SettingsEncryptor encrypts and decrypts sensitive configuration values.
// It is safe for concurrent use.
type SettingsEncryptor struct {
	key []byte // 32-byte AES-256 key derived from the passphrase
}

// NewSettingsEncryptor derives a 32-byte AES-256 key from the passphrase
// with PBKDF2 and returns an encryptor. The passphrase must not be empty.
func NewSettingsEncryptor(passphrase string) (*SettingsEncryptor, error) {
	if passphrase == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	// Static salt keeps key derivation deterministic across restarts
	salt := []byte("game-portal-settings")
	derivedKey := pbkdf2.Key([]byte(passphrase), salt, 10000, 32, sha256.New)

	return &SettingsEncryptor{key: derivedKey}, nil
}

// Encrypt returns the base64-encoded AES-256-GCM ciphertext of plaintext,
// with the random nonce prepended. Empty input passes through unencrypted.
func (e *SettingsEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Wrong keys, truncation and tampering all surface
// as errors from the authenticated decryption.
func (e *SettingsEncryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", err)
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", errors.InternalError("failed to create cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.InternalError("failed to create GCM", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	nonce, ciphertextBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return "", errors.InternalError("failed to decrypt", err)
	}

	return string(plaintext), nil
}
