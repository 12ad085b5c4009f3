package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status: vault state, sink count, and configuration summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := theFacade.GetSystemStatus()
		if err != nil {
			return err
		}
		fmt.Printf("vault_unlocked=%t security_attached=%t locked_down=%t sinks=%d repositories=%d backup_targets=%d\n",
			st.VaultUnlocked, st.SecurityAttached, st.LockedDown, st.SinkCount, st.RepositoryCount, st.BackupTargetCount)
		return nil
	},
}
