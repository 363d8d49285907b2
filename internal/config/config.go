// Package config provides loading and saving of the pr-tracker
// configuration file and lookup of API tokens from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/alan/pr-tracker/internal/model"
	"gopkg.in/yaml.v3"
)

// Default values applied when the file leaves settings unset.
const (
	DefaultPrimaryBranch   = "main"
	DefaultDataFile        = "pr-data.json"
	DefaultListenAddr      = ":3000"
	DefaultBoardEndpoint   = "https://api.zenhub.com/public/graphql"
	DefaultRefreshMinutes  = 5
	DefaultTimeoutSeconds  = 30
	DefaultMaxConcurrent   = 4
	DefaultDefaultPipeline = "New Issues"
	DefaultSyncPipeline    = "Sync Pending"
)

// Config is the structure of pr-tracker.yaml.
type Config struct {
	Organization    string   `yaml:"organization"`
	Repositories    []string `yaml:"repositories,omitempty"`
	PrimaryBranch   string   `yaml:"primary_branch,omitempty"`
	SecondaryBranch string   `yaml:"secondary_branch,omitempty"`

	WorkspaceID     string `yaml:"workspace_id,omitempty"`
	BoardEndpoint   string `yaml:"board_endpoint,omitempty"`
	DefaultPipeline string `yaml:"default_pipeline,omitempty"`
	SyncPipeline    string `yaml:"sync_pipeline,omitempty"`

	DataFile   string `yaml:"data_file,omitempty"`
	ListenAddr string `yaml:"listen_addr,omitempty"`

	RefreshIntervalMinutes int `yaml:"refresh_interval_minutes,omitempty"`
	RequestTimeoutSeconds  int `yaml:"request_timeout_seconds,omitempty"`
	MaxConcurrent          int `yaml:"max_concurrent,omitempty"`
}

// LoadConfig loads the configuration from the specified file and applies
// defaults for unset values.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // Config filename is from command-line flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// SaveConfig saves the configuration to the specified file.
func SaveConfig(filename string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.PrimaryBranch == "" {
		c.PrimaryBranch = DefaultPrimaryBranch
	}
	if c.BoardEndpoint == "" {
		c.BoardEndpoint = DefaultBoardEndpoint
	}
	if c.DefaultPipeline == "" {
		c.DefaultPipeline = DefaultDefaultPipeline
	}
	if c.SyncPipeline == "" {
		c.SyncPipeline = DefaultSyncPipeline
	}
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.RefreshIntervalMinutes <= 0 {
		c.RefreshIntervalMinutes = DefaultRefreshMinutes
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
}

// NewDefault returns a config with only defaults applied, suitable for
// `config init`.
func NewDefault() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// RequestTimeout returns the bounded timeout applied to each external call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// RefreshInterval returns the scheduled reconciliation interval.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// StageNames returns the stage-key to board-pipeline-name mapping with the
// configured overrides applied.
func (c *Config) StageNames() map[model.PipelineStage]string {
	names := model.DefaultStageNames()
	if c.DefaultPipeline != "" {
		names[model.StageNewIssue] = c.DefaultPipeline
	}
	if c.SyncPipeline != "" {
		names[model.StageSyncPending] = c.SyncPipeline
	}
	return names
}

// GitHubToken retrieves and validates the GitHub token.
func GitHubToken() (string, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return "", fmt.Errorf("GITHUB_TOKEN environment variable is required")
	}
	return token, nil
}

// BoardToken retrieves and validates the tracking-board token.
func BoardToken() (string, error) {
	token := os.Getenv("ZENHUB_TOKEN")
	if token == "" {
		return "", fmt.Errorf("ZENHUB_TOKEN environment variable is required")
	}
	return token, nil
}
