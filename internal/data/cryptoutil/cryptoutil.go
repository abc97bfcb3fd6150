// Package cryptoutil seals small records before they are written to shared storage.
package cryptoutil

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sealer encrypts and decrypts stored values.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Versioned prefix so the algorithm or key can rotate without rewriting old values.
var sealedPrefixV1 = []byte("v1:")

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var (
	// ErrNotSealed is returned by Open for values that carry no version prefix.
	ErrNotSealed = errors.New("value is not sealed")
	errShort     = errors.New("sealed value too short")
)

// AESGCM seals values with AES-256-GCM and a random nonce.
// Output is "v1:" followed by base64(nonce || ciphertext).
type AESGCM struct {
	aead cipher.AEAD
}

var _ Sealer = (*AESGCM)(nil)

// NewAESGCM builds a sealer from a 32 byte key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("aes-gcm key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &AESGCM{aead: aead}, nil
}

// ParseKey decodes a standard base64 key, as stored in configuration.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key must decode to %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// Seal encrypts plaintext.
func (a *AESGCM) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, a.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	raw := a.aead.Seal(nonce, nonce, plaintext, nil)

	out := make([]byte, len(sealedPrefixV1)+base64.StdEncoding.EncodedLen(len(raw)))
	copy(out, sealedPrefixV1)
	base64.StdEncoding.Encode(out[len(sealedPrefixV1):], raw)
	return out, nil
}

// Open decrypts a value produced by Seal.
func (a *AESGCM) Open(sealed []byte) ([]byte, error) {
	if !IsSealed(sealed) {
		return nil, ErrNotSealed
	}
	body := sealed[len(sealedPrefixV1):]
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
	n, err := base64.StdEncoding.Decode(raw, body)
	if err != nil {
		return nil, fmt.Errorf("decode sealed value: %w", err)
	}
	raw = raw[:n]

	ns := a.aead.NonceSize()
	if len(raw) < ns {
		return nil, errShort
	}
	pt, err := a.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("open sealed value: %w", err)
	}
	return pt, nil
}

// IsSealed reports whether v carries a known version prefix.
func IsSealed(v []byte) bool {
	return bytes.HasPrefix(v, sealedPrefixV1)
}
