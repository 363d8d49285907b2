// Package commands provides the shared bootstrap used by the CLI commands:
// loading configuration and constructing the external client adapters.
package commands

import (
	"fmt"

	"github.com/alan/pr-tracker/internal/board"
	"github.com/alan/pr-tracker/internal/config"
	"github.com/alan/pr-tracker/internal/github"
	"github.com/alan/pr-tracker/internal/resolver"
	"github.com/alan/pr-tracker/internal/sync"
)

// BaseCommand provides common fields and initialization for all commands.
type BaseCommand struct {
	ConfigFile *string
	LoadConfig func(string) (*config.Config, error)
	SaveConfig func(string, *config.Config) error

	Config *config.Config
	GitHub *github.Client
	Board  *board.Client

	resolver *resolver.Resolver
}

// Init loads the configuration.
func (bc *BaseCommand) Init() error {
	cfg, err := bc.LoadConfig(*bc.ConfigFile)
	if err != nil {
		return err
	}
	bc.Config = cfg
	return nil
}

// InitClients loads the configuration and builds both external clients
// from environment tokens.
func (bc *BaseCommand) InitClients() error {
	if bc.Config == nil {
		if err := bc.Init(); err != nil {
			return err
		}
	}

	if bc.Config.Organization == "" {
		return fmt.Errorf("organization is not configured; run 'pr-tracker config init' first")
	}
	if bc.Config.WorkspaceID == "" {
		return fmt.Errorf("workspace_id is not configured; run 'pr-tracker pipelines --viewer' to discover one")
	}

	ghToken, err := config.GitHubToken()
	if err != nil {
		return err
	}
	boardToken, err := config.BoardToken()
	if err != nil {
		return err
	}

	timeout := bc.Config.RequestTimeout()
	bc.GitHub = github.NewClient(ghToken, bc.Config.Organization, timeout)
	bc.Board = board.NewClient(bc.Config.BoardEndpoint, boardToken, bc.Config.WorkspaceID, timeout)
	return nil
}

// Resolver returns the shared issue resolver, building it on first use.
// All callers share one instance so the per-unit locks cover every
// resolution path in the process.
func (bc *BaseCommand) Resolver() *resolver.Resolver {
	if bc.resolver == nil {
		bc.resolver = resolver.New(bc.Board, bc.GitHub, bc.Config.StageNames())
	}
	return bc.resolver
}

// NewReconciler assembles the reconciliation pipeline from the initialized
// clients.
func (bc *BaseCommand) NewReconciler() *sync.Reconciler {
	return sync.NewReconciler(
		bc.GitHub,
		bc.Resolver(),
		bc.Config.Repositories,
		bc.Config.PrimaryBranch,
		bc.Config.SecondaryBranch,
		bc.Config.MaxConcurrent,
	)
}
