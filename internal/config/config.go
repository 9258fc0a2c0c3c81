// Package config persists the vault configuration: the KDF salt in a JSON
// record and the raw password verifier in a companion file.
//
// The two files exist together or not at all. A vault directory holding one
// without the other is corrupt. Saves go through a temporary file and rename
// so an interrupted write never loses the verifier.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/live-labs/notevault/internal/credential"
)

const (
	ConfigFileName   = "config.json"
	VerifierFileName = ".verifier"

	filePerm = 0600 // File: owner rw only
)

var (
	// ErrParse marks malformed or mutually inconsistent vault configuration.
	// Fatal: the vault is unusable without a valid configuration.
	ErrParse = errors.New("malformed vault configuration")
	// ErrIO marks configuration files that could not be read or written.
	ErrIO = errors.New("vault configuration inaccessible")
)

// Config is the persisted vault configuration. The verifier is kept out of the
// JSON record and stored as raw bytes beside it.
type Config struct {
	StoragePath  string `json:"storage_path"`
	PasswordSalt string `json:"password_salt"`

	verifier []byte
}

// Exists reports whether a vault configuration is present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// EnsureFresh verifies dir holds no remnant of an earlier vault before a new
// one is initialized. A verifier without its configuration record is the same
// corrupt-pair condition Load detects from the other side; initializing over
// it would silently orphan whatever the old verifier protected.
func EnsureFresh(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, VerifierFileName)); err == nil {
		return fmt.Errorf("%w: verifier present without configuration record", ErrParse)
	}
	return nil
}

// Initialize creates an in-memory configuration for a vault that has never had
// a password set. Nothing is written until Save.
func Initialize(dir string, salt string) *Config {
	return &Config{
		StoragePath:  dir,
		PasswordSalt: salt,
	}
}

// Load reads the configuration record and its companion verifier from dir.
// It never substitutes defaults: missing fields, unparseable JSON or a missing
// verifier file all fail with ErrParse, read failures with ErrIO.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if cfg.StoragePath == "" || cfg.PasswordSalt == "" {
		return nil, fmt.Errorf("%w: missing storage_path or password_salt", ErrParse)
	}
	// The record may have been copied from another location; the directory
	// it was loaded from is authoritative.
	cfg.StoragePath = dir

	verifier, err := os.ReadFile(filepath.Join(dir, VerifierFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: configuration present but verifier missing", ErrParse)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}
	if len(verifier) != credential.KeySize {
		return nil, fmt.Errorf("%w: verifier has wrong size %d", ErrParse, len(verifier))
	}
	cfg.verifier = verifier

	return &cfg, nil
}

// HasVerifier reports whether a password has ever been set for this vault.
func (c *Config) HasVerifier() bool {
	return c.verifier != nil
}

// Verifier returns the stored password verifier, or nil if none is set.
func (c *Config) Verifier() []byte {
	return c.verifier
}

// SetVerifier records a new password verifier. The transition from "no
// password set" is one-way; re-invocation overwrites, which is how the
// password-change flow updates it.
func (c *Config) SetVerifier(v []byte) {
	c.verifier = append([]byte(nil), v...)
}

// Save persists the configuration record and the verifier. Both writes use
// write-then-rename so a crash mid-save leaves the previous state intact.
func (c *Config) Save() error {
	if c.verifier == nil {
		return fmt.Errorf("%w: refusing to save without a verifier", ErrIO)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	if err := writeAtomic(filepath.Join(c.StoragePath, VerifierFileName), c.verifier); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(c.StoragePath, ConfigFileName), data)
}

// Reset removes both configuration files. Used only by the hard-reset flow,
// which destroys the record store as well.
func (c *Config) Reset() error {
	for _, name := range []string{ConfigFileName, VerifierFileName} {
		if err := os.Remove(filepath.Join(c.StoragePath, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
	}
	c.verifier = nil
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}
