// Package security seals the persisted browser session blob at rest. The
// session file carries live authentication cookies, so it gets the same
// treatment as any stored credential: AES-256-GCM with a key derived via
// scrypt from a caller-supplied secret.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. N is the OWASP recommended minimum for interactive use.
const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32 // AES-256
	saltLen      = 32
)

// ErrSealTampered is returned when the payload fails authentication.
var ErrSealTampered = errors.New("sealed payload failed authentication")

// SealedPayload is the on-disk envelope for an encrypted blob.
type SealedPayload struct {
	Version    uint8  `json:"version"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

const payloadVersion = 1

// Seal encrypts plaintext under a key derived from secret and returns the
// JSON-encoded envelope.
func Seal(plaintext []byte, secret string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(secret, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	payload := SealedPayload{
		Version:    payloadVersion,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: gcm.Seal(nil, nonce, plaintext, nil),
	}
	return json.Marshal(payload)
}

// Open decrypts a JSON-encoded envelope produced by Seal.
func Open(data []byte, secret string) ([]byte, error) {
	var payload SealedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decode sealed payload: %w", err)
	}
	if payload.Version != payloadVersion {
		return nil, fmt.Errorf("unsupported sealed payload version %d", payload.Version)
	}

	gcm, err := newGCM(secret, payload.Salt)
	if err != nil {
		return nil, err
	}
	if len(payload.Nonce) != gcm.NonceSize() {
		return nil, ErrSealTampered
	}

	plaintext, err := gcm.Open(nil, payload.Nonce, payload.Ciphertext, nil)
	if err != nil {
		return nil, ErrSealTampered
	}
	return plaintext, nil
}

// IsSealed reports whether data looks like a sealed envelope rather than a
// plaintext session file.
func IsSealed(data []byte) bool {
	var payload SealedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return false
	}
	return payload.Version == payloadVersion && len(payload.Salt) == saltLen
}

func newGCM(secret string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(secret), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
