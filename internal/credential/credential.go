package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
)

const (
	KeySize     = 32 // Master credential and subkey size in bytes
	SaltEntropy = 16 // Random bytes behind a generated salt

	MinPasswordLen = 8
	MaxPasswordLen = 32

	// scrypt cost parameters. Fixed for the lifetime of a vault; a password
	// derives the same key only as long as these never change.
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1
)

// HKDF labels separating the stored verifier from the encryption key.
const (
	labelVerify  = "notevault/verify"
	labelEncrypt = "notevault/encrypt"
)

var ErrRequirementsNotMet = errors.New("password does not satisfy requirements")

// Requirements describes the password policy for user-facing messages.
const Requirements = "Password requirements:\n" +
	"   * Length between 8 and 32\n" +
	"   * Upper and lowercase Latin letters, digits\n" +
	"     and ASCII punctuation only"

// MeetsRequirements reports whether a password is acceptable for a new vault:
// 8 to 32 characters, each an ASCII letter, digit or punctuation symbol.
func MeetsRequirements(password []byte) bool {
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return false
	}
	for _, c := range password {
		// Printable ASCII excluding space covers exactly letters,
		// digits and punctuation. Anything else, including multi-byte
		// UTF-8 sequences, is rejected.
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}

// GenerateSalt returns a fresh URL-safe salt with SaltEntropy bytes of
// cryptographic randomness. Each vault gets exactly one.
func GenerateSalt() (string, error) {
	b := make([]byte, SaltEntropy)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DeriveKey derives the 32-byte master credential from a password and salt.
// Deterministic for a given (password, salt) pair. The call is intentionally
// expensive; invoke it once per login or registration attempt.
func DeriveKey(password []byte, salt string) ([]byte, error) {
	key, err := scrypt.Key(password, []byte(salt), scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("key derivation failed: %w", err)
	}
	return key, nil
}

// Verifier expands the stored password verifier from a master credential.
func Verifier(master []byte) []byte {
	return expand(master, labelVerify)
}

// EncryptionKey expands the symmetric encryption key from a master credential.
func EncryptionKey(master []byte) []byte {
	return expand(master, labelEncrypt)
}

func expand(master []byte, label string) []byte {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, master, []byte(label)), key); err != nil {
		// HKDF expansion of a fixed-size output cannot fail.
		panic(fmt.Sprintf("hkdf expand: %v", err))
	}
	return key
}

// Verify recomputes the verifier for (password, salt) and compares it to
// expected in constant time. It never reports why a mismatch happened.
func Verify(password []byte, salt string, expected []byte) bool {
	master, err := DeriveKey(password, salt)
	if err != nil {
		return false
	}
	defer ClearBytes(master)

	verifier := Verifier(master)
	defer ClearBytes(verifier)

	return subtle.ConstantTimeCompare(verifier, expected) == 1
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
