// Package status implements the status command for displaying tracked PR
// records and their derived statistics.
package status

import (
	"fmt"
	"sort"

	"github.com/alan/pr-tracker/internal/config"
	"github.com/alan/pr-tracker/internal/model"
	"github.com/alan/pr-tracker/internal/stats"
	"github.com/alan/pr-tracker/internal/store"
	"github.com/spf13/cobra"
)

// NewStatusCmd creates and returns the status command.
func NewStatusCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	var statusFilter string
	var repoFilter string

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show tracked PR records and statistics",
		Long: `Display the PR records held in the local data file, grouped by
repository, with a statistics summary.`,
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runStatus(*globalConfigFile, loadConfig, statusFilter, repoFilter)
		},
	}

	statusCmd.Flags().StringVar(&statusFilter, "status", "", "Only show PRs with this status (Open, Closed, Merged, Draft)")
	statusCmd.Flags().StringVar(&repoFilter, "repo", "", "Only show PRs from this repository")

	return statusCmd
}

func runStatus(configFile string, loadConfig func(string) (*config.Config, error), statusFilter, repoFilter string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.Open(cfg.DataFile)
	if err != nil {
		return err
	}

	records := st.List(store.Filter{Status: statusFilter, Repository: repoFilter})
	if len(records) == 0 {
		fmt.Println("No PR records tracked yet.")
		return nil
	}

	sortRecords(records)
	displayRecords(records)
	displaySummary(st.Snapshot())
	return nil
}

// sortRecords orders records by repository then PR number for consistent
// output.
func sortRecords(records []model.PRRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Repository != records[j].Repository {
			return records[i].Repository < records[j].Repository
		}
		return records[i].Number < records[j].Number
	})
}

func displayRecords(records []model.PRRecord) {
	currentRepo := ""
	for i := range records {
		rec := &records[i]
		if rec.Repository != currentRepo {
			currentRepo = rec.Repository
			fmt.Printf("%s\n", currentRepo)
		}
		displayRecord(rec)
	}
}

func displayRecord(rec *model.PRRecord) {
	fmt.Printf("  #%-5d %-7s %s", rec.Number, rec.Status(), rec.Title)
	if rec.Author != "" {
		fmt.Printf(" (@%s)", rec.Author)
	}
	fmt.Println()

	if len(rec.Reviews) > 0 || len(rec.Commits) > 0 {
		fmt.Printf("         %d reviews, %d commits", len(rec.Reviews), len(rec.Commits))
		if rec.LastEventAt != nil {
			fmt.Printf(", last event %s", rec.LastEventAt.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}
}

func displaySummary(records []model.PRRecord) {
	s := stats.Aggregate(records)
	fmt.Printf("\n%d tracked: %d open, %d closed, %d merged (merge rate %d%%, avg %.2f days to merge)\n",
		s.Total, s.Open, s.Closed, s.Merged, s.MergeRatePct, s.AvgMergeDays)
}
