// Package credential derives and verifies key material from the vault password.
//
// Key derivation uses scrypt with fixed parameters:
//   - N=2^14, r=8, p=1, 32-byte output
//   - URL-safe random salt with 16 bytes of entropy (stored unencrypted)
//
// The scrypt output is a master credential that is never persisted. Two
// independent subkeys are expanded from it with HKDF-SHA256 under distinct
// labels: a verifier (stored on disk, checked at login) and an encryption key
// (consumed by the cipher package). Knowing the stored verifier therefore
// reveals nothing about the encryption key.
//
// Memory safety:
//   - Use ClearBytes() to zero key material after use
package credential
