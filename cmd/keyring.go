package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/live-labs/notevault/internal/credential"
	"github.com/live-labs/notevault/internal/keyring"
	"github.com/live-labs/notevault/internal/logging"
)

var keyringCmd = &cobra.Command{
	Use:   "keyring",
	Short: "Manage the vault password stored in the OS keyring",
}

var keyringSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Store the vault password in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(verbosity)
		cfg, records, err := openVault(log)
		if err != nil {
			return err
		}
		defer records.Close()

		if !cfg.HasVerifier() {
			return fmt.Errorf("no password set for this vault yet")
		}

		password := PasswordFromEnv()
		if password == nil {
			password, err = ReadPassword("Enter password: ")
			if err != nil {
				return err
			}
		}
		defer credential.ClearBytes(password)

		if !credential.Verify(password, cfg.PasswordSalt, cfg.Verifier()) {
			return fmt.Errorf("wrong password")
		}

		vaultID, err := records.GetOrCreateVaultID()
		if err != nil {
			return err
		}
		if err := keyring.SavePassword(vaultID, string(password)); err != nil {
			return fmt.Errorf("failed to save to keyring: %w", err)
		}

		fmt.Println("Password saved to keyring")
		return nil
	},
}

var keyringStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a password is stored in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(verbosity)
		_, records, err := openVault(log)
		if err != nil {
			return err
		}
		defer records.Close()

		vaultID, err := records.VaultID()
		if err == nil && keyring.HasPassword(vaultID) {
			fmt.Println("Password: stored in keyring")
		} else {
			fmt.Println("Password: not stored")
		}
		return nil
	},
}

var keyringDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the vault password from the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(verbosity)
		_, records, err := openVault(log)
		if err != nil {
			return err
		}
		defer records.Close()

		vaultID, err := records.VaultID()
		if err != nil || !keyring.HasPassword(vaultID) {
			fmt.Println("No password stored in keyring")
			return nil
		}
		if err := keyring.DeletePassword(vaultID); err != nil {
			return err
		}

		fmt.Println("Password removed from keyring")
		return nil
	},
}

func init() {
	keyringCmd.AddCommand(keyringSaveCmd, keyringStatusCmd, keyringDeleteCmd)
	rootCmd.AddCommand(keyringCmd)
}
