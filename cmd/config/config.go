// Package config implements the config command for initializing and
// inspecting the pr-tracker configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/alan/pr-tracker/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCmd creates and returns the config command with its init and
// show subcommands.
func NewConfigCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error), saveConfig func(string, *config.Config) error) *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "config",
		Short: "Initialize or inspect the pr-tracker configuration file",
	}

	cobraCmd.AddCommand(newInitCmd(globalConfigFile, loadConfig, saveConfig))
	cobraCmd.AddCommand(newShowCmd(globalConfigFile, loadConfig))

	return cobraCmd
}

func newInitCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error), saveConfig func(string, *config.Config) error) *cobra.Command {
	var (
		org             string
		repositories    string
		primaryBranch   string
		secondaryBranch string
		workspaceID     string
	)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create or update the configuration file",
		Long: `Init writes the configuration file with the specified organization,
repositories and branch pair. Existing settings are kept unless a flag
overrides them.`,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(*globalConfigFile, org, repositories, primaryBranch, secondaryBranch, workspaceID, loadConfig, saveConfig)
		},
	}

	initCmd.Flags().StringVarP(&org, "org", "o", "", "GitHub organization or username")
	initCmd.Flags().StringVarP(&repositories, "repos", "r", "", "Comma-separated repository names to track")
	initCmd.Flags().StringVar(&primaryBranch, "primary-branch", "", "Primary branch name (defaults to 'main')")
	initCmd.Flags().StringVar(&secondaryBranch, "secondary-branch", "", "Secondary branch checked for commit propagation")
	initCmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Tracking-board workspace id")

	return initCmd
}

func runInit(configFile, org, repositories, primaryBranch, secondaryBranch, workspaceID string, loadConfig func(string) (*config.Config, error), saveConfig func(string, *config.Config) error) error {
	cfg, isUpdate := loadOrCreateConfig(configFile, loadConfig)

	if org != "" {
		cfg.Organization = org
	}
	if repositories != "" {
		cfg.Repositories = splitRepos(repositories)
	}
	if primaryBranch != "" {
		cfg.PrimaryBranch = primaryBranch
	}
	if secondaryBranch != "" {
		cfg.SecondaryBranch = secondaryBranch
	}
	if workspaceID != "" {
		cfg.WorkspaceID = workspaceID
	}

	if cfg.Organization == "" {
		return fmt.Errorf("organization is required (use --org)")
	}

	if err := saveConfig(configFile, cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	action := "initialized"
	if isUpdate {
		action = "updated"
	}
	fmt.Printf("Successfully %s %s with:\n", action, configFile)
	fmt.Printf("  Organization: %s\n", cfg.Organization)
	fmt.Printf("  Repositories: %s\n", strings.Join(cfg.Repositories, ", "))
	fmt.Printf("  Primary Branch: %s\n", cfg.PrimaryBranch)
	fmt.Printf("  Secondary Branch: %s\n", cfg.SecondaryBranch)
	fmt.Printf("  Workspace: %s\n", cfg.WorkspaceID)
	return nil
}

func newShowCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:          "show",
		Short:        "Print the effective configuration",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*globalConfigFile)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}
}

// loadOrCreateConfig loads the existing config or starts a fresh default
// one.
func loadOrCreateConfig(configFile string, loadConfig func(string) (*config.Config, error)) (*config.Config, bool) {
	if cfg, err := loadConfig(configFile); err == nil {
		return cfg, true
	}
	return config.NewDefault(), false
}

func splitRepos(raw string) []string {
	var repos []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			repos = append(repos, r)
		}
	}
	return repos
}
