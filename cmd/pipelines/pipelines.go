// Package pipelines implements the pipelines command for listing the
// tracking-board workspace pipelines and discovering ids.
package pipelines

import (
	"fmt"

	"github.com/alan/pr-tracker/internal/board"
	"github.com/alan/pr-tracker/internal/commands"
	"github.com/alan/pr-tracker/internal/config"
	"github.com/spf13/cobra"
)

// NewPipelinesCmd creates and returns the pipelines command.
func NewPipelinesCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	pc := &commands.BaseCommand{}
	var showViewer bool

	cobraCmd := &cobra.Command{
		Use:   "pipelines",
		Short: "List the tracking-board workspace pipelines",
		Long: `Pipelines queries the tracking board for the pipelines of the configured
workspace and prints their names and ids. With --viewer it prints the
authenticated user's id instead, which helps locate a workspace id.

Requires the ZENHUB_TOKEN environment variable to be set.`,
		SilenceUsage: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			pc.ConfigFile = globalConfigFile
			pc.LoadConfig = loadConfig
			if err := pc.Init(); err != nil {
				return err
			}

			token, err := config.BoardToken()
			if err != nil {
				return err
			}
			client := board.NewClient(pc.Config.BoardEndpoint, token, pc.Config.WorkspaceID, pc.Config.RequestTimeout())

			ctx := cobraCmd.Context()
			if showViewer {
				id, err := client.Viewer(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Viewer id: %s\n", id)
				return nil
			}

			if pc.Config.WorkspaceID == "" {
				return fmt.Errorf("workspace_id is not configured; try --viewer to discover one")
			}

			pipelines, err := client.ListPipelines(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Workspace %s pipelines:\n", pc.Config.WorkspaceID)
			for _, p := range pipelines {
				fmt.Printf("  %-25s %s\n", p.Name, p.ID)
			}
			return nil
		},
	}

	cobraCmd.Flags().BoolVar(&showViewer, "viewer", false, "Print the authenticated viewer id instead of pipelines")

	return cobraCmd
}
