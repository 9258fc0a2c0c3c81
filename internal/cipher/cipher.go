// Package cipher wraps a session credential into authenticated encryption for
// note bodies.
//
// Tokens are self-contained text: a version prefix followed by the URL-safe
// base64 encoding of nonce||ciphertext, where the ciphertext carries the
// AES-256-GCM authentication tag. Any tampering fails decryption as a whole;
// no partially decrypted data is ever returned.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/live-labs/notevault/internal/credential"
)

const (
	NonceSize = 12 // GCM nonce size
	TagSize   = 16 // GCM authentication tag size

	// TokenPrefix versions the token format so a future scheme change can
	// coexist with old tokens.
	TokenPrefix = "nv1:"
)

// ErrCipher is returned when a token cannot be authenticated: it is malformed,
// has been tampered with, or was produced under a different key.
var ErrCipher = errors.New("token authentication failed")

// Cipher provides authenticated encryption for one session. Construct it once
// per login from the master credential and Destroy it on logoff.
type Cipher struct {
	key  []byte
	aead gocipher.AEAD
}

// New creates a Cipher from a master credential. The encryption subkey is
// expanded internally; the master itself is not retained.
func New(master []byte) (*Cipher, error) {
	key := credential.EncryptionKey(master)

	block, err := aes.NewCipher(key)
	if err != nil {
		credential.ClearBytes(key)
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := gocipher.NewGCM(block)
	if err != nil {
		credential.ClearBytes(key)
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Cipher{key: key, aead: aead}, nil
}

// Encrypt seals plaintext into a text token. A fresh nonce is generated per
// call, so identical plaintexts produce different tokens.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a token produced by Encrypt under the same key. All failure
// modes collapse into ErrCipher.
func (c *Cipher) Decrypt(token string) (string, error) {
	encoded, ok := strings.CutPrefix(token, TokenPrefix)
	if !ok {
		return "", ErrCipher
	}

	// Strict decoding: a token that differs in any byte, including the
	// trailing padding bits, must fail rather than alias another token.
	sealed, err := base64.RawURLEncoding.Strict().DecodeString(encoded)
	if err != nil || len(sealed) < NonceSize+TagSize {
		return "", ErrCipher
	}

	plaintext, err := c.aead.Open(nil, sealed[:NonceSize], sealed[NonceSize:], nil)
	if err != nil {
		return "", ErrCipher
	}
	return string(plaintext), nil
}

// Destroy clears the cipher's key material from memory
func (c *Cipher) Destroy() {
	credential.ClearBytes(c.key)
}
