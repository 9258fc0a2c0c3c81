// Package keyring stores the vault password in the OS keyring, keyed by the
// vault ID so multiple vaults can coexist.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "notevault"

// SavePassword stores the vault password under the vault's ID.
func SavePassword(vaultID string, password string) error {
	if err := keyring.Set(serviceName, vaultID, password); err != nil {
		return fmt.Errorf("keyring save: %w", err)
	}
	return nil
}

// GetPassword retrieves the stored vault password.
func GetPassword(vaultID string) (string, error) {
	password, err := keyring.Get(serviceName, vaultID)
	if err != nil {
		return "", fmt.Errorf("keyring read: %w", err)
	}
	return password, nil
}

// DeletePassword removes the stored vault password. Removing an absent entry
// is not an error.
func DeletePassword(vaultID string) error {
	err := keyring.Delete(serviceName, vaultID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}

// HasPassword reports whether a password is stored for the vault.
func HasPassword(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
