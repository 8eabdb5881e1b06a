package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// blobVersion prefixes every encrypted blob so the format can change later.
	blobVersion = 0x01

	nonceSize = 12
	keySize   = 32

	// keyInfo binds derived keys to this use.
	keyInfo = "neurasense token records v1"
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes")
	ErrEmptySecret        = errors.New("encryption secret is empty")
	ErrInvalidBlobSize    = errors.New("encrypted blob is too small")
	ErrUnsupportedVersion = errors.New("unsupported secret blob version")
	ErrDecryptionFailed   = errors.New("failed to decrypt secret blob")
)

// DeriveKey stretches an operator-supplied secret into a 32-byte AES key
// using HKDF-SHA256.
func DeriveKey(secret string) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// SecretEncryptor seals token secrets with AES-256-GCM.
// Blob layout: version(1) || nonce(12) || ciphertext
type SecretEncryptor struct {
	gcm cipher.AEAD
}

// NewSecretEncryptor creates an encryptor from a 32-byte key.
func NewSecretEncryptor(key []byte) (*SecretEncryptor, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &SecretEncryptor{gcm: gcm}, nil
}

// NewSecretEncryptorFromSecret derives the key with DeriveKey first.
func NewSecretEncryptorFromSecret(secret string) (*SecretEncryptor, error) {
	key, err := DeriveKey(secret)
	if err != nil {
		return nil, err
	}
	return NewSecretEncryptor(key)
}

// Seal JSON-encodes value and encrypts it. aad is authenticated but not
// encrypted; pass the row identity so a blob cannot be moved between rows.
func (e *SecretEncryptor) Seal(value any, aad []byte) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	blob := make([]byte, 1+nonceSize, 1+nonceSize+len(plaintext)+e.gcm.Overhead())
	blob[0] = blobVersion
	if _, err := rand.Read(blob[1:]); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return e.gcm.Seal(blob, blob[1:1+nonceSize], plaintext, aad), nil
}

// Open decrypts blob into value. aad must match what Seal was given.
func (e *SecretEncryptor) Open(blob []byte, aad []byte, value any) error {
	if len(blob) < 1+nonceSize+e.gcm.Overhead() {
		return ErrInvalidBlobSize
	}
	if blob[0] != blobVersion {
		return fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	plaintext, err := e.gcm.Open(nil, blob[1:1+nonceSize], blob[1+nonceSize:], aad)
	if err != nil {
		return ErrDecryptionFailed
	}
	if err := json.Unmarshal(plaintext, value); err != nil {
		return fmt.Errorf("unmarshal decrypted value: %w", err)
	}
	return nil
}
