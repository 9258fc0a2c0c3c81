// Package cmd implements the notevault command-line surface: the interactive
// shell on the root command and the keyring helpers.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/live-labs/notevault/internal/config"
	"github.com/live-labs/notevault/internal/credential"
	"github.com/live-labs/notevault/internal/logging"
	"github.com/live-labs/notevault/internal/store"
	"github.com/live-labs/notevault/internal/vault"
)

const AppName = "NoteVault"

var (
	storageDir string
	verbosity  int
)

var rootCmd = &cobra.Command{
	Use:           "notevault",
	Short:         "notevault - a minimalistic secure notes storage app",
	Long:          "notevault stores free-text notes encrypted under a password-derived key.\nRunning it without a subcommand opens the interactive shell.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New(verbosity)
		cfg, records, err := openVault(log)
		if err != nil {
			return err
		}
		defer records.Close()

		machine := vault.New(cfg, records, log)
		defer machine.Close()

		return runShell(cmd.Context(), machine, records, log)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storageDir, "storage-dir", "d", "",
		"alternative path to store application data, must be an existing directory")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"verbosity: -v for program state information, -vv for debug output")
}

// Execute runs the root command. The caller decides the process exit code.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// resolveStorageDir picks the vault directory: an explicit -d path must
// already exist, the default under the user config dir is created on demand.
func resolveStorageDir() (string, error) {
	if storageDir != "" {
		abs, err := filepath.Abs(storageDir)
		if err != nil {
			return "", err
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return "", fmt.Errorf("storage path %s is not a directory or does not exist", abs)
		}
		return abs, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("cannot create storage directory: %w", err)
	}
	return dir, nil
}

// openVault loads an existing configuration or prepares a fresh one with a
// newly generated salt, and opens the record store beside it. A directory
// holding vault remnants without the configuration record fails fast instead
// of being treated as a fresh vault.
func openVault(log *slog.Logger) (*config.Config, *store.Store, error) {
	dir, err := resolveStorageDir()
	if err != nil {
		return nil, nil, err
	}
	log.Log(context.Background(), logging.LevelVerbose, "selected app context", "dir", dir)

	var cfg *config.Config
	fresh := !config.Exists(dir)
	if fresh {
		if err := config.EnsureFresh(dir); err != nil {
			return nil, nil, err
		}
		log.Debug("setting up new configuration")
		salt, err := credential.GenerateSalt()
		if err != nil {
			return nil, nil, err
		}
		cfg = config.Initialize(dir, salt)
	} else {
		log.Debug("loading existing config")
		cfg, err = config.Load(dir)
		if err != nil {
			return nil, nil, err
		}
	}

	records, err := store.Open(dir)
	if err != nil {
		return nil, nil, err
	}
	if fresh {
		empty, err := records.Empty()
		if err != nil {
			records.Close()
			return nil, nil, err
		}
		if !empty {
			records.Close()
			return nil, nil, fmt.Errorf("%w: records present without vault configuration", config.ErrParse)
		}
	}
	return cfg, records, nil
}
