package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"

	"github.com/alan/pr-tracker/internal/model"
)

// VCS is the slice of the version-control host the reconciler needs.
type VCS interface {
	ListCommits(ctx context.Context, repo, branch string) ([]model.Commit, error)
}

// IssueResolver places units of work on the tracking board.
type IssueResolver interface {
	Resolve(ctx context.Context, unit model.UnitOfWork, target model.PipelineStage) (*model.TrackingIssue, error)
}

// Reconciler runs one cross-branch reconciliation cycle: snapshot both
// branches per repository, diff the commit sets, and resolve a tracking
// issue for every unsynced commit. A failed unit is logged and skipped;
// the next cycle naturally retries it.
type Reconciler struct {
	vcs      VCS
	resolver IssueResolver

	repositories    []string
	primaryBranch   string
	secondaryBranch string
	maxConcurrent   int
}

// Report summarizes one reconciliation cycle.
type Report struct {
	Repositories    int
	UnsyncedCommits int
	Resolved        int
	Failed          int
}

// NewReconciler builds a reconciler over the given repositories and branch
// pair. maxConcurrent bounds how many repositories are processed at once.
func NewReconciler(vcs VCS, resolver IssueResolver, repositories []string, primaryBranch, secondaryBranch string, maxConcurrent int) *Reconciler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Reconciler{
		vcs:             vcs,
		resolver:        resolver,
		repositories:    repositories,
		primaryBranch:   primaryBranch,
		secondaryBranch: secondaryBranch,
		maxConcurrent:   maxConcurrent,
	}
}

// Run executes one cycle. Independent repositories run concurrently up to
// the configured cap; failures within a repository never abort the cycle.
func (r *Reconciler) Run(ctx context.Context) (Report, error) {
	if r.secondaryBranch == "" {
		return Report{}, fmt.Errorf("no secondary branch configured")
	}

	var (
		mu     stdsync.Mutex
		report Report
		wg     stdsync.WaitGroup
	)
	sem := make(chan struct{}, r.maxConcurrent)

	for _, repo := range r.repositories {
		wg.Add(1)
		sem <- struct{}{}
		go func(repo string) {
			defer wg.Done()
			defer func() { <-sem }()

			repoReport, err := r.reconcileRepo(ctx, repo)
			if err != nil {
				slog.Warn("Skipping repository", "repo", repo, "error", err)
			}

			mu.Lock()
			report.Repositories++
			report.UnsyncedCommits += repoReport.UnsyncedCommits
			report.Resolved += repoReport.Resolved
			report.Failed += repoReport.Failed
			mu.Unlock()
		}(repo)
	}
	wg.Wait()

	slog.Info("Reconciliation cycle finished",
		"repositories", report.Repositories,
		"unsynced", report.UnsyncedCommits,
		"resolved", report.Resolved,
		"failed", report.Failed)
	return report, nil
}

// reconcileRepo diffs one repository's branch pair and resolves the
// unsynced commits sequentially; resolver calls for the same unit are
// already serialized per source-unit id.
func (r *Reconciler) reconcileRepo(ctx context.Context, repo string) (Report, error) {
	primary, err := r.vcs.ListCommits(ctx, repo, r.primaryBranch)
	if err != nil {
		return Report{}, fmt.Errorf("snapshot %s: %w", r.primaryBranch, err)
	}
	secondary, err := r.vcs.ListCommits(ctx, repo, r.secondaryBranch)
	if err != nil {
		return Report{}, fmt.Errorf("snapshot %s: %w", r.secondaryBranch, err)
	}

	unsynced := Diff(primary, secondary)
	report := Report{UnsyncedCommits: len(unsynced)}
	if len(unsynced) == 0 {
		slog.Debug("Branches in sync", "repo", repo)
		return report, nil
	}

	slog.Info("Found unsynced commits", "repo", repo, "count", len(unsynced))

	for _, commit := range unsynced {
		unit := model.CommitUnit{
			Repo:            repo,
			Commit:          commit,
			SecondaryBranch: r.secondaryBranch,
		}
		if _, err := r.resolver.Resolve(ctx, unit, model.StageSyncPending); err != nil {
			// Per-unit failures are retried on the next cycle.
			slog.Warn("Failed to resolve tracking issue", "unit", unit.SourceUnitID(), "error", err)
			report.Failed++
			continue
		}
		report.Resolved++
	}

	return report, nil
}
