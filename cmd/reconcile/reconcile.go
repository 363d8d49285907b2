// Package reconcile implements the reconcile command: one cross-branch
// reconciliation cycle over the configured repositories.
package reconcile

import (
	"fmt"

	"github.com/alan/pr-tracker/internal/commands"
	"github.com/alan/pr-tracker/internal/config"
	"github.com/spf13/cobra"
)

// NewReconcileCmd creates and returns the reconcile command.
func NewReconcileCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	rc := &commands.BaseCommand{}

	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one cross-branch reconciliation cycle",
		Long: `Reconcile compares the primary and secondary branch of every configured
repository, and files a tracking issue on the board for each commit that has
not propagated to the secondary branch. Existing issues are reused; failed
units are retried on the next run.

Requires GITHUB_TOKEN and ZENHUB_TOKEN environment variables to be set.`,
		SilenceUsage: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			rc.ConfigFile = globalConfigFile
			rc.LoadConfig = loadConfig
			if err := rc.InitClients(); err != nil {
				return err
			}

			report, err := rc.NewReconciler().Run(cobraCmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Reconciled %d repositories: %d unsynced commits, %d resolved, %d failed\n",
				report.Repositories, report.UnsyncedCommits, report.Resolved, report.Failed)
			return nil
		},
	}
}
