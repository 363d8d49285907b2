// Package resolver maps units of work to tracking issues. It owns the
// idempotence guarantee: repeated calls for the same source-unit id never
// create a second issue. Enforcement is lookup-before-create, serialized
// per source-unit id within this process; the board API offers no atomic
// create-if-absent, so cross-process races remain possible.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alan/pr-tracker/internal/board"
	"github.com/alan/pr-tracker/internal/model"
)

// Board is the slice of the tracking-board adapter the resolver uses.
type Board interface {
	FindIssueBySourceUnit(ctx context.Context, sourceUnitID string) (*board.Issue, error)
	CreateIssue(ctx context.Context, in board.CreateIssueInput) (*board.Issue, error)
	MoveIssue(ctx context.Context, issueID, pipelineID string, position int) error
	PipelineIDByName(ctx context.Context, name string) (string, error)
}

// RepoIDLookup resolves repository names to the numeric host id the board
// keys repositories by.
type RepoIDLookup interface {
	GetRepositoryID(ctx context.Context, repo string) (int64, error)
}

// Resolver finds or creates tracking issues and moves them to their
// target pipeline stage.
type Resolver struct {
	board      Board
	repos      RepoIDLookup
	stageNames map[model.PipelineStage]string
	labels     []string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a resolver. stageNames maps stage keys to board pipeline
// display names.
func New(b Board, repos RepoIDLookup, stageNames map[model.PipelineStage]string) *Resolver {
	return &Resolver{
		board:      b,
		repos:      repos,
		stageNames: stageNames,
		labels:     []string{"Pull Request Tracker"},
		locks:      make(map[string]*sync.Mutex),
	}
}

// Resolve finds the tracking issue for the unit or creates exactly one,
// then ensures it sits in the target stage.
//
// On MoveFailed the found/created issue is still returned alongside the
// error, carrying its pre-move stage, so the caller can retry the move
// without re-creating anything.
func (r *Resolver) Resolve(ctx context.Context, unit model.UnitOfWork, target model.PipelineStage) (*model.TrackingIssue, error) {
	id := unit.SourceUnitID()

	// Serialize lookup+create per source-unit id to close the in-process
	// race window.
	lock := r.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	issue, err := r.board.FindIssueBySourceUnit(ctx, id)
	if err != nil {
		return nil, err
	}

	created := false
	if issue == nil {
		issue, err = r.create(ctx, unit)
		if err != nil {
			return nil, &model.ResolverError{Kind: model.CreationFailed, SourceUnitID: id, Err: err}
		}
		created = true
		slog.Info("Created tracking issue", "unit", id, "issue", issue.ID)
	}

	tracking := &model.TrackingIssue{
		ExternalID:   issue.ID,
		SourceUnitID: id,
		Stage:        r.stageForName(issue.Pipeline.Name),
		StageName:    issue.Pipeline.Name,
		CreatedAt:    time.Now().UTC(),
	}

	targetName, ok := r.stageNames[target]
	if !ok {
		return tracking, &model.ResolverError{
			Kind:         model.MoveFailed,
			SourceUnitID: id,
			Err:          fmt.Errorf("unknown pipeline stage %q", target),
		}
	}

	// A freshly created issue lands in the board's default pipeline and
	// always needs the move.
	if !created && issue.Pipeline.Name == targetName {
		tracking.Stage = target
		return tracking, nil
	}

	if err := r.move(ctx, issue.ID, targetName); err != nil {
		return tracking, &model.ResolverError{Kind: model.MoveFailed, SourceUnitID: id, Err: err}
	}

	tracking.Stage = target
	tracking.StageName = targetName
	return tracking, nil
}

func (r *Resolver) create(ctx context.Context, unit model.UnitOfWork) (*board.Issue, error) {
	ghID, err := r.repos.GetRepositoryID(ctx, unit.Repository())
	if err != nil {
		return nil, err
	}

	return r.board.CreateIssue(ctx, board.CreateIssueInput{
		RepositoryGhID: ghID,
		Title:          unit.IssueTitle(),
		Body:           unit.IssueBody(),
		Labels:         r.labels,
	})
}

func (r *Resolver) move(ctx context.Context, issueID, pipelineName string) error {
	pipelineID, err := r.board.PipelineIDByName(ctx, pipelineName)
	if err != nil {
		return err
	}
	return r.board.MoveIssue(ctx, issueID, pipelineID, 0)
}

// stageForName maps a board pipeline display name back to a stage key.
// Unrecognized names stay as the zero stage; StageName keeps the truth.
func (r *Resolver) stageForName(name string) model.PipelineStage {
	for stage, display := range r.stageNames {
		if display == name {
			return stage
		}
	}
	return ""
}

func (r *Resolver) lockFor(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}
