// Package cmd implements the timelocker CLI's cobra command tree, a thin
// adapter over internal/facade (C12).
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/auriora/timelocker/internal/facade"
	"github.com/auriora/timelocker/internal/platform"
	"github.com/auriora/timelocker/internal/vault"
	"github.com/auriora/timelocker/pkg/logger"
)

var (
	configDir    string
	engineBinary string
	logLevel     string

	theFacade *facade.Facade
)

var rootCmd = &cobra.Command{
	Use:   "timelocker",
	Short: "Orchestrate restic backups, restores, and repository maintenance",
	Long: `timelocker drives the restic backup engine: repositories, backup
targets, snapshots, and restores, all recorded to a local audit trail and
status event stream.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		f, err := facade.New(facade.Options{
			ConfigDir:    configDir,
			EngineBinary: engineBinary,
			Logger:       logger.NewLogger(logger.Config{Level: logLevel, Format: "text", Output: "stderr"}),
		})
		if err != nil {
			return err
		}
		theFacade = f
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	dirs := platform.NewResolver(nil).Resolve()
	defaultConfigDir := dirs.ConfigDir
	if dirs.ProjectOverlay != "" {
		defaultConfigDir = filepath.Dir(dirs.ProjectOverlay)
	}

	viper.SetEnvPrefix("timelocker")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.SetDefault("config_dir", defaultConfigDir)
	viper.SetDefault("engine_binary", "restic")
	viper.SetDefault("log_level", "info")

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", viper.GetString("config_dir"), "configuration directory (env TIMELOCKER_CONFIG_DIR)")
	rootCmd.PersistentFlags().StringVar(&engineBinary, "engine", viper.GetString("engine_binary"), "path to the restic binary (env TIMELOCKER_ENGINE_BINARY)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", viper.GetString("log_level"), "debug, info, warn, or error")
	_ = viper.BindPFlag("config_dir", rootCmd.PersistentFlags().Lookup("config-dir"))
	_ = viper.BindPFlag("engine_binary", rootCmd.PersistentFlags().Lookup("engine"))

	rootCmd.AddCommand(reposCmd, backupCmd, snapshotsCmd, vaultCmd, statusCmd)
}

// unlockVault is a small helper shared by commands that need a vault:
// auto-unlock first, then fall back to TIMELOCKER_MASTER_PASSWORD, matching
// the same chain vault.Vault.EnsureUnlocked implements for non-interactive
// callers.
func unlockVault(cmd *cobra.Command) (*vault.Vault, error) {
	v, err := vault.New(filepath.Join(configDir, "vault"), vault.DefaultConfig(), nil)
	if err != nil {
		return nil, err
	}
	if err := v.EnsureUnlocked(cmd.Context(), false); err != nil {
		return nil, fmt.Errorf("vault is locked: %w", err)
	}
	return v, nil
}
