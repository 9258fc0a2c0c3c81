package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/live-labs/notevault/internal/credential"
)

func testVerifier() []byte {
	v := make([]byte, credential.KeySize)
	for i := range v {
		v[i] = byte(i)
	}
	return v
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	cfg := Initialize(dir, "test-salt")
	if cfg.HasVerifier() {
		t.Error("Fresh config must not have a verifier")
	}

	cfg.SetVerifier(testVerifier())
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if !Exists(dir) {
		t.Fatal("Config should exist after save")
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.PasswordSalt != "test-salt" {
		t.Errorf("Salt mismatch: got %q", loaded.PasswordSalt)
	}
	if loaded.StoragePath != dir {
		t.Errorf("Storage path mismatch: got %q, want %q", loaded.StoragePath, dir)
	}
	if !loaded.HasVerifier() || !bytes.Equal(loaded.Verifier(), testVerifier()) {
		t.Error("Verifier not preserved across save/load")
	}
}

func TestSaveWithoutVerifier(t *testing.T) {
	cfg := Initialize(t.TempDir(), "test-salt")
	if err := cfg.Save(); err == nil {
		t.Error("Save without a verifier must fail")
	}
}

func TestLoadMissingConfig(t *testing.T) {
	if _, err := Load(t.TempDir()); !errors.Is(err, ErrIO) {
		t.Errorf("Load of empty dir = %v, want ErrIO", err)
	}
}

func TestLoadMalformedConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{not json"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(dir); !errors.Is(err, ErrParse) {
		t.Errorf("Load of malformed config = %v, want ErrParse", err)
	}
}

func TestLoadMissingFields(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(`{"storage_path":""}`), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(dir); !errors.Is(err, ErrParse) {
		t.Errorf("Load with missing fields = %v, want ErrParse", err)
	}
}

func TestLoadVerifierMissing(t *testing.T) {
	dir := t.TempDir()

	cfg := Initialize(dir, "test-salt")
	cfg.SetVerifier(testVerifier())
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, VerifierFileName)); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	// Config without its companion verifier is a corrupt vault.
	if _, err := Load(dir); !errors.Is(err, ErrParse) {
		t.Errorf("Load without verifier file = %v, want ErrParse", err)
	}
}

func TestLoadVerifierWrongSize(t *testing.T) {
	dir := t.TempDir()

	cfg := Initialize(dir, "test-salt")
	cfg.SetVerifier(testVerifier())
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, VerifierFileName), []byte("short"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := Load(dir); !errors.Is(err, ErrParse) {
		t.Errorf("Load with truncated verifier = %v, want ErrParse", err)
	}
}

func TestSetVerifierOverwrites(t *testing.T) {
	dir := t.TempDir()

	cfg := Initialize(dir, "test-salt")
	cfg.SetVerifier(testVerifier())
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	replacement := make([]byte, credential.KeySize)
	for i := range replacement {
		replacement[i] = 0xFF
	}
	cfg.SetVerifier(replacement)
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !bytes.Equal(loaded.Verifier(), replacement) {
		t.Error("SetVerifier must overwrite the stored verifier")
	}
}

func TestReset(t *testing.T) {
	dir := t.TempDir()

	cfg := Initialize(dir, "test-salt")
	cfg.SetVerifier(testVerifier())
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := cfg.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if Exists(dir) {
		t.Error("Config file should be gone after reset")
	}
	if _, err := os.Stat(filepath.Join(dir, VerifierFileName)); !errors.Is(err, os.ErrNotExist) {
		t.Error("Verifier file should be gone after reset")
	}
	if cfg.HasVerifier() {
		t.Error("Reset must clear the in-memory verifier")
	}

	// Reset of an already-clean directory is not an error.
	if err := cfg.Reset(); err != nil {
		t.Errorf("Second reset failed: %v", err)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()

	cfg := Initialize(dir, "test-salt")
	cfg.SetVerifier(testVerifier())
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("Stray temp file left behind: %s", e.Name())
		}
	}
}

func TestEnsureFresh(t *testing.T) {
	dir := t.TempDir()

	if err := EnsureFresh(dir); err != nil {
		t.Errorf("EnsureFresh on an empty directory = %v, want nil", err)
	}

	// A stray verifier marks the directory as a corrupt vault, not a fresh
	// one; initializing over it would orphan the old records.
	if err := os.WriteFile(filepath.Join(dir, VerifierFileName), testVerifier(), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := EnsureFresh(dir); !errors.Is(err, ErrParse) {
		t.Errorf("EnsureFresh with stray verifier = %v, want ErrParse", err)
	}
}
