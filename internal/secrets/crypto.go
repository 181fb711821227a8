// Package secrets implements bot-token encryption. Tokens are stored
// AES-256-GCM encrypted; decryption happens on demand per dispatch call and
// the plaintext never outlives the call.
//
// The encryption key is validated once at startup (ParseKey) and the parsed
// key is injected into the components that need it, so a missing or
// malformed key fails loudly before the first telegram arrives instead of
// scattering environment reads across the codebase.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	keyBytes   = 32 // AES-256
	nonceBytes = 12 // GCM standard nonce size
)

// Sentinel errors. Decrypt fails closed: a tampered ciphertext or a wrong
// key yields ErrDecryptFailed and no plaintext, never garbage output.
var (
	ErrInvalidKey        = errors.New("secrets: encryption key must be 32 bytes, base64-encoded")
	ErrCiphertextTooShort = errors.New("secrets: ciphertext shorter than nonce")
	ErrDecryptFailed     = errors.New("secrets: decryption failed (wrong key or tampered ciphertext)")
)

// Key is a validated AES-256 key.
type Key struct {
	raw []byte
}

// ParseKey decodes and validates a base64-encoded 32-byte key.
func ParseKey(encoded string) (Key, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != keyBytes {
		return Key{}, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(raw))
	}
	return Key{raw: raw}, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random 12-byte
// nonce and returns base64(nonce || ciphertext || tag).
func Encrypt(key Key, plaintext string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceBytes)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: nonce generation: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64(nonce || ciphertext || tag) produced by Encrypt. The
// GCM authentication tag is verified before any plaintext is returned.
func Decrypt(key Key, encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("secrets: ciphertext is not base64: %w", err)
	}
	if len(sealed) < nonceBytes {
		return "", ErrCiphertextTooShort
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce, ciphertext := sealed[:nonceBytes], sealed[nonceBytes:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

func newGCM(key Key) (cipher.AEAD, error) {
	if len(key.raw) != keyBytes {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key.raw)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	return cipher.NewGCMWithNonceSize(block, nonceBytes)
}
