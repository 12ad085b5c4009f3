package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run or inspect backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create <repository>",
	Short: "Back up one or more targets to a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targets, _ := cmd.Flags().GetStringSlice("target")
		tags, _ := cmd.Flags().GetStringSlice("tag")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		password, _ := cmd.Flags().GetString("password")

		result, err := theFacade.ExecuteBackup(cmd.Context(), args[0], targets, tags, dryRun, password)
		if err != nil {
			return err
		}
		fmt.Printf("status=%s snapshot_id=%s files_new=%d data_added=%d\n",
			result.Status, result.SnapshotID, result.FilesNew, result.DataAdded)
		for _, w := range result.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		return nil
	},
}

func init() {
	backupCreateCmd.Flags().StringSlice("target", nil, "backup target name(s), repeatable")
	backupCreateCmd.Flags().StringSlice("tag", nil, "tag(s) to attach to the resulting snapshot")
	backupCreateCmd.Flags().Bool("dry-run", false, "estimate the backup without invoking the engine")
	backupCreateCmd.Flags().String("password", "", "repository password (falls back to vault/environment)")
	_ = backupCreateCmd.MarkFlagRequired("target")
	backupCmd.AddCommand(backupCreateCmd)
}
