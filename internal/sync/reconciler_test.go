package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"testing"

	"github.com/alan/pr-tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVCS serves canned commit lists keyed by "repo/branch".
type fakeVCS struct {
	branches map[string][]model.Commit
	errors   map[string]error
}

func (f *fakeVCS) ListCommits(_ context.Context, repo, branch string) ([]model.Commit, error) {
	key := repo + "/" + branch
	if err := f.errors[key]; err != nil {
		return nil, err
	}
	return f.branches[key], nil
}

// fakeResolver records every resolved unit and can fail selected ones.
type fakeResolver struct {
	mu       stdsync.Mutex
	resolved []string
	targets  []model.PipelineStage
	failFor  map[string]error
}

func (f *fakeResolver) Resolve(_ context.Context, unit model.UnitOfWork, target model.PipelineStage) (*model.TrackingIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := unit.SourceUnitID()
	if err := f.failFor[id]; err != nil {
		return nil, err
	}
	f.resolved = append(f.resolved, id)
	f.targets = append(f.targets, target)
	return &model.TrackingIssue{ExternalID: "issue-" + id, SourceUnitID: id, Stage: target}, nil
}

func TestReconcilerRun(t *testing.T) {
	vcs := &fakeVCS{
		branches: map[string][]model.Commit{
			"repo-a/main":    {{Hash: "a1"}, {Hash: "a2"}, {Hash: "a3"}},
			"repo-a/release": {{Hash: "a1"}, {Hash: "a3"}},
			"repo-b/main":    {{Hash: "b1"}},
			"repo-b/release": {{Hash: "b1"}},
		},
	}
	resolver := &fakeResolver{}

	rec := NewReconciler(vcs, resolver, []string{"repo-a", "repo-b"}, "main", "release", 2)
	report, err := rec.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Repositories)
	assert.Equal(t, 1, report.UnsyncedCommits)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, []string{"repo-a#a2"}, resolver.resolved)
	assert.Equal(t, []model.PipelineStage{model.StageSyncPending}, resolver.targets)
}

func TestReconcilerRunRequiresSecondaryBranch(t *testing.T) {
	rec := NewReconciler(&fakeVCS{}, &fakeResolver{}, []string{"repo-a"}, "main", "", 1)

	_, err := rec.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "secondary branch")
}

func TestReconcilerRunUnitFailureDoesNotAbortCycle(t *testing.T) {
	vcs := &fakeVCS{
		branches: map[string][]model.Commit{
			"repo-a/main":    {{Hash: "a1"}, {Hash: "a2"}},
			"repo-a/release": nil,
		},
	}
	resolver := &fakeResolver{
		failFor: map[string]error{
			"repo-a#a1": &model.ResolverError{Kind: model.CreationFailed, SourceUnitID: "repo-a#a1", Err: errors.New("boom")},
		},
	}

	rec := NewReconciler(vcs, resolver, []string{"repo-a"}, "main", "release", 1)
	report, err := rec.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.UnsyncedCommits)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"repo-a#a2"}, resolver.resolved)
}

func TestReconcilerRunRepoSnapshotFailureSkipsRepo(t *testing.T) {
	vcs := &fakeVCS{
		branches: map[string][]model.Commit{
			"repo-b/main":    {{Hash: "b1"}},
			"repo-b/release": nil,
		},
		errors: map[string]error{
			"repo-a/main": &model.AdapterError{System: "github", Op: "list commits", Err: errors.New("rate limited")},
		},
	}
	resolver := &fakeResolver{}

	rec := NewReconciler(vcs, resolver, []string{"repo-a", "repo-b"}, "main", "release", 2)
	report, err := rec.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Repositories)
	assert.Equal(t, 1, report.Resolved)
	assert.Equal(t, []string{"repo-b#b1"}, resolver.resolved)
}
