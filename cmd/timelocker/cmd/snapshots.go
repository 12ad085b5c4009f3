package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/restore"
	"github.com/auriora/timelocker/internal/snapshot"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List, inspect, and restore snapshots",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list <repository>",
	Short: "List snapshots in a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		handle, _, err := resolveRepositoryService(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		adapter := engine.NewAdapter(engineBinary, nil)
		snapSvc := snapshot.NewService(adapter, handle, nil)
		snaps, err := snapSvc.List(cmd.Context(), snapshot.Filter{})
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Printf("%s  %s  %v\n", s.ShortID, s.Time.Format("2006-01-02 15:04:05"), s.Paths)
		}
		return nil
	},
}

var snapshotsRestoreCmd = &cobra.Command{
	Use:   "restore <repository> <snapshot-id> <target-path>",
	Short: "Restore a snapshot to a target path",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		createDir, _ := cmd.Flags().GetBool("create-target")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		opts := restore.Options{
			TargetPath:            args[2],
			CreateTargetDirectory: createDir,
			ConflictResolution:    restore.ConflictOverwrite,
			DryRun:                dryRun,
		}
		result, err := theFacade.ExecuteRestore(cmd.Context(), args[0], args[1], opts, password)
		if err != nil {
			return err
		}
		fmt.Printf("status=%s files_restored=%d\n", result.Status, result.FilesRestored)
		for _, w := range result.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		return nil
	},
}

func init() {
	snapshotsListCmd.Flags().String("password", "", "repository password (falls back to vault/environment)")
	snapshotsRestoreCmd.Flags().String("password", "", "repository password (falls back to vault/environment)")
	snapshotsRestoreCmd.Flags().Bool("create-target", true, "create the target directory if it does not exist")
	snapshotsRestoreCmd.Flags().Bool("dry-run", false, "run pre-flight checks only")
	snapshotsCmd.AddCommand(snapshotsListCmd, snapshotsRestoreCmd)
}
