package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auriora/timelocker/internal/config"
	"github.com/auriora/timelocker/internal/engine"
	"github.com/auriora/timelocker/internal/errs"
	"github.com/auriora/timelocker/internal/repository"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage repositories",
}

var reposAddCmd = &cobra.Command{
	Use:   "add <name> <location>",
	Short: "Register a repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, location := args[0], args[1]
		uri, err := repository.ParseURI(location)
		if err != nil {
			return err
		}
		if uri.Scheme == "local" {
			return &errs.MissingLocalSchemeError{Path: location}
		}
		if err := uri.Validate(); err != nil {
			return fmt.Errorf("%w (hint: local paths need a file:// scheme, e.g. file://%s)", err, location)
		}
		return theFacade.Store().AddRepository(config.RepositoryDescriptor{Name: name, Location: location, Enabled: true})
	},
}

var reposInitCmd = &cobra.Command{
	Use:   "init <name>",
	Short: "Initialize a registered repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		handle, repoSvc, err := resolveRepositoryService(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		_ = handle
		return repoSvc.Initialize(cmd.Context())
	},
}

var reposCheckCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Run a repository integrity check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		readData, _ := cmd.Flags().GetBool("read-data")
		_, repoSvc, err := resolveRepositoryService(cmd.Context(), args[0], password)
		if err != nil {
			return err
		}
		var report *repository.CheckReport
		if readData {
			report, err = repoSvc.CheckWithReadData(cmd.Context())
		} else {
			report, err = repoSvc.Check(cmd.Context())
		}
		if err != nil {
			return err
		}
		fmt.Printf("errors found: %d\n", len(report.Errors))
		return nil
	},
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a registered repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return theFacade.Store().RemoveRepository(args[0])
	},
}

func init() {
	reposInitCmd.Flags().String("password", "", "repository password (falls back to vault/environment)")
	reposCheckCmd.Flags().String("password", "", "repository password (falls back to vault/environment)")
	reposCheckCmd.Flags().Bool("read-data", false, "verify pack contents, not just structure (slow)")
	reposCmd.AddCommand(reposAddCmd, reposInitCmd, reposCheckCmd, reposRemoveCmd)
}

// resolveRepositoryService resolves name against the config store, builds
// a repository.Handle through the facade's factory, and wraps it in a
// repository.Service — the same path ExecuteBackup/ExecuteRestore use
// internally, exposed here for repos/snapshots subcommands that operate
// outside the orchestrators.
func resolveRepositoryService(ctx context.Context, name, password string) (*repository.Handle, *repository.Service, error) {
	descriptor, err := theFacade.Store().GetRepository(name)
	if err != nil {
		return nil, nil, err
	}
	handle, err := theFacade.Factory().Create(name, descriptor.Location, repository.CreateOptions{Password: password, RequirePassword: true})
	if err != nil {
		return nil, nil, err
	}
	adapter := engine.NewAdapter(engineBinary, nil)
	return handle, repository.NewService(adapter, handle, nil), nil
}
