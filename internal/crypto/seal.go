// Package crypto seals short values, such as cookie payloads, so they can be
// handed to the client and trusted when they come back.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// sealedPrefix is prepended to sealed values.
// Format: v1.<base64url(nonce+ciphertext+tag)>
const sealedPrefix = "v1."

// ErrInvalidSeal is returned for values that were not sealed with this key
// or were modified.
var ErrInvalidSeal = errors.New("crypto: invalid sealed value")

// DeriveKey derives a 32-byte AES-256 key from secret using HKDF-SHA256.
// purpose provides domain separation, so keys derived from the session
// signing secret for different uses are independent.
func DeriveKey(secret, purpose string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("crypto: secret must not be empty")
	}
	if purpose == "" {
		return nil, fmt.Errorf("crypto: purpose must not be empty")
	}

	hkdfReader := hkdf.New(sha256.New, []byte(secret), nil, []byte("bastion/v1/"+purpose))
	key := make([]byte, 32)
	if _, err := hkdfReader.Read(key); err != nil {
		return nil, fmt.Errorf("crypto: hkdf key derivation failed: %w", err)
	}
	return key, nil
}

// Sealer encrypts and authenticates values with AES-256-GCM.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer keyed from secret for purpose.
func NewSealer(secret, purpose string) (*Sealer, error) {
	key, err := DeriveKey(secret, purpose)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: aes.NewCipher: %w", err)
	}
	// The nonce is generated internally and prepended to the output.
	aead, err := cipher.NewGCMWithRandomNonce(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: NewGCMWithRandomNonce: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext into a cookie-safe string.
func (s *Sealer) Seal(plaintext string) string {
	ciphertext := s.aead.Seal(nil, nil, []byte(plaintext), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(ciphertext)
}

// Open reverses Seal. Any tampering yields ErrInvalidSeal.
func (s *Sealer) Open(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return "", ErrInvalidSeal
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrInvalidSeal
	}
	plaintext, err := s.aead.Open(nil, nil, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidSeal
	}
	return string(plaintext), nil
}
