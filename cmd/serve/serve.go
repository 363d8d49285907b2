// Package serve implements the serve command: the webhook/API server plus
// the scheduled reconciliation loop.
package serve

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alan/pr-tracker/internal/commands"
	"github.com/alan/pr-tracker/internal/config"
	"github.com/alan/pr-tracker/internal/events"
	"github.com/alan/pr-tracker/internal/github"
	"github.com/alan/pr-tracker/internal/model"
	"github.com/alan/pr-tracker/internal/server"
	"github.com/alan/pr-tracker/internal/store"
	"github.com/spf13/cobra"
)

// NewServeCmd creates and returns the serve command.
func NewServeCmd(globalConfigFile *string, loadConfig func(string) (*config.Config, error)) *cobra.Command {
	sc := &commands.BaseCommand{}
	var noReconcile bool

	cobraCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook and read-API server",
		Long: `Serve starts the HTTP server that ingests lifecycle events on /webhook
and exposes the tracked PR records on /api/prs, /api/statistics and
/api/filters. Unless disabled, a background loop runs a cross-branch
reconciliation cycle at the configured refresh interval.

Requires GITHUB_TOKEN and ZENHUB_TOKEN environment variables unless
--no-reconcile is set.`,
		SilenceUsage: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			sc.ConfigFile = globalConfigFile
			sc.LoadConfig = loadConfig
			return runServe(cobraCmd.Context(), sc, noReconcile)
		},
	}

	cobraCmd.Flags().BoolVar(&noReconcile, "no-reconcile", false, "Disable the scheduled reconciliation loop")

	return cobraCmd
}

func runServe(ctx context.Context, sc *commands.BaseCommand, noReconcile bool) error {
	if err := sc.Init(); err != nil {
		return err
	}

	st, err := store.Open(sc.Config.DataFile)
	if err != nil {
		return err
	}

	srv := server.New(st, events.NewDispatcher(st))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !noReconcile {
		if err := sc.InitClients(); err != nil {
			return err
		}
		go reconcileLoop(ctx, sc, st)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(sc.Config.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down")
		return srv.Shutdown()
	}
}

// reconcileLoop runs a cycle immediately, then every refresh interval until
// the context is canceled. Cycle failures are logged, never fatal.
func reconcileLoop(ctx context.Context, sc *commands.BaseCommand, st *store.Store) {
	rec := sc.NewReconciler()
	res := sc.Resolver()

	run := func() {
		if _, err := rec.Run(ctx); err != nil {
			slog.Warn("Reconciliation cycle failed", "error", err)
		}
		refreshRecords(ctx, sc.GitHub, res, st)
	}

	run()
	ticker := time.NewTicker(sc.Config.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

type prFetcher interface {
	GetPullRequest(ctx context.Context, repo string, number int) (*github.PRDetails, error)
}

type issueResolver interface {
	Resolve(ctx context.Context, unit model.UnitOfWork, target model.PipelineStage) (*model.TrackingIssue, error)
}

// refreshRecords polls the host for the latest snapshot of every tracked
// PR that is still open, applies it as a scheduled_update event, and keeps
// the PR's board issue in the stage matching its state. Per-record failures
// are logged and retried on the next cycle.
func refreshRecords(ctx context.Context, gh prFetcher, res issueResolver, st *store.Store) {
	for _, rec := range st.Snapshot() {
		if rec.Status() == model.StatusMerged || rec.Status() == model.StatusClosed {
			continue
		}

		details, err := gh.GetPullRequest(ctx, rec.Repository, rec.Number)
		if err != nil {
			slog.Warn("Failed to refresh PR", "key", rec.Key().String(), "error", err)
			continue
		}

		updated, err := st.Apply(model.LifecycleEvent{
			Kind:         model.EventScheduledUpdate,
			Action:       "refresh",
			Number:       rec.Number,
			Repository:   rec.Repository,
			Organization: rec.Organization,
			Title:        details.Title,
			State:        details.State,
			Merged:       details.Merged,
			Draft:        details.Draft,
			Author:       details.Author,
			URL:          details.URL,
			CreatedAt:    details.CreatedAt,
			UpdatedAt:    details.UpdatedAt,
			MergedAt:     details.MergedAt,
			TrackingRef:  rec.TrackingRef,
		})
		if err != nil {
			slog.Warn("Failed to store refreshed PR", "key", rec.Key().String(), "error", err)
			continue
		}

		// A closed-unmerged PR keeps its issue wherever it sits.
		if updated.Status() == model.StatusClosed {
			continue
		}

		unit := model.PRUnit{
			Repo:   updated.Repository,
			Number: updated.Number,
			Title:  updated.Title,
			Author: updated.Author,
			State:  updated.State,
			URL:    updated.URL,
		}
		if _, err := res.Resolve(ctx, unit, stageForRecord(updated)); err != nil {
			slog.Warn("Failed to resolve PR tracking issue", "unit", unit.SourceUnitID(), "error", err)
		}
	}
}

// stageForRecord maps a PR record to its board pipeline stage.
func stageForRecord(rec *model.PRRecord) model.PipelineStage {
	switch rec.Status() {
	case model.StatusMerged:
		return model.StageDone
	case model.StatusDraft:
		return model.StageInProgress
	default:
		if len(rec.Reviews) > 0 {
			return model.StageReview
		}
		return model.StageNewIssue
	}
}
