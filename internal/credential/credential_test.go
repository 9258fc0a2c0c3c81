package credential

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestMeetsRequirements(t *testing.T) {
	cases := []struct {
		password string
		want     bool
	}{
		{"short", false},                // too short
		{"exactly8", true},              // minimum length
		{strings.Repeat("a", 32), true}, // maximum length
		{strings.Repeat("a", 33), false},
		{"Str0ng!Pass", true},
		{"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", true}, // all ASCII punctuation, 32 chars
		{"with space8", false},
		{"with\ttab8", false},
		{"пароль-пароль", false}, // non-ASCII letters
		{"password\x00", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := MeetsRequirements([]byte(tc.password)); got != tc.want {
			t.Errorf("MeetsRequirements(%q) = %v, want %v", tc.password, got, tc.want)
		}
	}
}

func TestGenerateSaltUnique(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		salt, err := GenerateSalt()
		if err != nil {
			t.Fatalf("GenerateSalt failed: %v", err)
		}
		if seen[salt] {
			t.Fatalf("Salt collision after %d iterations: %q", i, salt)
		}
		seen[salt] = true
	}
}

func TestGenerateSaltFormat(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(salt)
	if err != nil {
		t.Fatalf("Salt is not URL-safe base64: %v", err)
	}
	if len(raw) < SaltEntropy {
		t.Errorf("Salt entropy %d bytes, want at least %d", len(raw), SaltEntropy)
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	password := []byte("Str0ng!Pass")
	salt := "fixed-test-salt"

	key1, err := DeriveKey(password, salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	key2, err := DeriveKey(password, salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	if len(key1) != KeySize {
		t.Errorf("Key size %d, want %d", len(key1), KeySize)
	}
	if !bytes.Equal(key1, key2) {
		t.Error("Same password and salt must derive the same key")
	}
}

func TestDeriveKeyIndependentSalts(t *testing.T) {
	password := []byte("Str0ng!Pass")

	key1, err := DeriveKey(password, "salt-one")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	key2, err := DeriveKey(password, "salt-two")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	if bytes.Equal(key1, key2) {
		t.Error("Different salts must derive independent keys")
	}
}

func TestVerify(t *testing.T) {
	password := []byte("Str0ng!Pass")
	salt := "fixed-test-salt"

	master, err := DeriveKey(password, salt)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	expected := Verifier(master)

	if !Verify(password, salt, expected) {
		t.Error("Verify must accept the password the verifier was derived from")
	}
	if Verify([]byte("Wr0ng!Pass"), salt, expected) {
		t.Error("Verify must reject a different password")
	}
	if Verify(password, "other-salt", expected) {
		t.Error("Verify must reject a different salt")
	}

	tampered := append([]byte(nil), expected...)
	tampered[0] ^= 0x01
	if Verify(password, salt, tampered) {
		t.Error("Verify must reject a tampered verifier")
	}
	if Verify(password, salt, expected[:16]) {
		t.Error("Verify must reject a truncated verifier")
	}
}

func TestSubkeysIndependent(t *testing.T) {
	master, err := DeriveKey([]byte("Str0ng!Pass"), "fixed-test-salt")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}

	verifier := Verifier(master)
	encKey := EncryptionKey(master)

	if bytes.Equal(verifier, encKey) {
		t.Error("Verifier and encryption key must be independent")
	}
	if bytes.Equal(verifier, master) || bytes.Equal(encKey, master) {
		t.Error("Subkeys must differ from the master credential")
	}
}

func TestClearBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	ClearBytes(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("ClearBytes left byte %d = %d", i, v)
		}
	}
}
