package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/auriora/timelocker/internal/vault"
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage the encrypted credential vault",
}

var vaultUnlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Unlock the vault (auto-unlock, then TIMELOCKER_MASTER_PASSWORD, then prompt)",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vault.New(filepath.Join(configDir, "vault"), vault.DefaultConfig(), nil)
		if err != nil {
			return err
		}
		if err := v.EnsureUnlocked(cmd.Context(), true); err != nil {
			return err
		}
		if err := theFacade.AttachVault(v); err != nil {
			return err
		}
		fmt.Println("vault unlocked")
		return nil
	},
}

var vaultLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Lock the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vault.New(filepath.Join(configDir, "vault"), vault.DefaultConfig(), nil)
		if err != nil {
			return err
		}
		v.Lock()
		fmt.Println("vault locked")
		return nil
	},
}

var vaultLockdownCmd = &cobra.Command{
	Use:   "lockdown <reason>",
	Short: "Trigger an emergency lockdown: lock the vault and refuse further operations until cleared",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := unlockVault(cmd)
		if err != nil {
			return err
		}
		if err := theFacade.AttachVault(v); err != nil {
			return err
		}
		if err := theFacade.EmergencyLockdown(args[0]); err != nil {
			return err
		}
		fmt.Println("lockdown engaged:", args[0])
		return nil
	},
}

var vaultClearLockdownCmd = &cobra.Command{
	Use:   "clear-lockdown",
	Short: "Clear a prior emergency lockdown, resuming normal operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := vault.New(filepath.Join(configDir, "vault"), vault.DefaultConfig(), nil)
		if err != nil {
			return err
		}
		if err := theFacade.AttachVault(v); err != nil {
			return err
		}
		if err := theFacade.ClearLockdown(); err != nil {
			return err
		}
		fmt.Println("lockdown cleared")
		return nil
	},
}

func init() {
	vaultCmd.AddCommand(vaultUnlockCmd, vaultLockCmd, vaultLockdownCmd, vaultClearLockdownCmd)
}
