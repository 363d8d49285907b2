// Package model defines the core data types shared across the tracker:
// commits, PR records, tracking issues, pipeline stages, lifecycle events
// and the error taxonomy.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Commit is a single commit observed on a branch. Identity is the hash.
type Commit struct {
	Hash        string `json:"hash"`
	Message     string `json:"message"`
	AuthorEmail string `json:"author_email"`
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	if i := strings.IndexByte(c.Message, '\n'); i >= 0 {
		return c.Message[:i]
	}
	return c.Message
}

// PipelineStage identifies a position on the tracking board. The value is a
// stable key; the display name shown on the board may change without
// breaking identity.
type PipelineStage string

const (
	// StageNewIssue is the default stage for freshly created issues.
	StageNewIssue PipelineStage = "new_issue"
	// StageInProgress marks work that has started.
	StageInProgress PipelineStage = "in_progress"
	// StageReview marks work awaiting review.
	StageReview PipelineStage = "review"
	// StageDone marks finished work.
	StageDone PipelineStage = "done"
	// StageSyncPending marks commits that have not propagated to the
	// secondary branch yet.
	StageSyncPending PipelineStage = "sync_pending"
)

// DefaultStageNames maps stage keys to their default board display names.
func DefaultStageNames() map[PipelineStage]string {
	return map[PipelineStage]string{
		StageNewIssue:    "New Issues",
		StageInProgress:  "In Progress",
		StageReview:      "Review",
		StageDone:        "Done",
		StageSyncPending: "Sync Pending",
	}
}

// TrackingIssue is an external board entry representing one unit of work.
// At most one tracking issue exists per SourceUnitID.
type TrackingIssue struct {
	ExternalID   string        `json:"external_id"`
	SourceUnitID string        `json:"source_unit_id"`
	Stage        PipelineStage `json:"pipeline_stage"`
	StageName    string        `json:"pipeline_stage_name,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// sourceUnitMarker prefixes the durable marker line embedded in issue
// bodies so a unit of work can be found again on later cycles.
const sourceUnitMarker = "Tracked-Unit:"

// SourceUnitMarker renders the marker line for an issue body.
func SourceUnitMarker(sourceUnitID string) string {
	return sourceUnitMarker + " " + sourceUnitID
}

// BodyContainsSourceUnit reports whether an issue body carries the marker
// for the given source unit id.
func BodyContainsSourceUnit(body, sourceUnitID string) bool {
	return strings.Contains(body, SourceUnitMarker(sourceUnitID))
}

// UnitOfWork is a commit or pull request being tracked for reconciliation.
type UnitOfWork interface {
	// SourceUnitID is the stable identifier for the unit, e.g.
	// "repo#commitHash" or "repo#prNumber".
	SourceUnitID() string
	// Repository is the short repository name the unit belongs to.
	Repository() string
	// IssueTitle is the title for the tracking issue representing the unit.
	IssueTitle() string
	// IssueBody is the body for the tracking issue; it must embed the
	// source-unit marker.
	IssueBody() string
}

// CommitUnit is a commit on the primary branch that has not propagated to
// the secondary branch.
type CommitUnit struct {
	Repo            string
	Commit          Commit
	SecondaryBranch string
}

// SourceUnitID implements UnitOfWork.
func (u CommitUnit) SourceUnitID() string { return u.Repo + "#" + u.Commit.Hash }

// Repository implements UnitOfWork.
func (u CommitUnit) Repository() string { return u.Repo }

// IssueTitle implements UnitOfWork.
func (u CommitUnit) IssueTitle() string {
	return "[SYNC NEEDED] " + u.Commit.Subject()
}

// IssueBody implements UnitOfWork.
func (u CommitUnit) IssueBody() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Commit `%s` on the primary branch has not been synced to `%s`.\n\n", u.Commit.Hash, u.SecondaryBranch)
	fmt.Fprintf(&b, "**Message:** %s\n", u.Commit.Subject())
	if u.Commit.AuthorEmail != "" {
		fmt.Fprintf(&b, "**Author:** %s\n", u.Commit.AuthorEmail)
	}
	fmt.Fprintf(&b, "\n%s\n", SourceUnitMarker(u.SourceUnitID()))
	return b.String()
}

// PRUnit is a pull request tracked on the board.
type PRUnit struct {
	Repo   string
	Number int
	Title  string
	Author string
	State  string
	URL    string
}

// SourceUnitID implements UnitOfWork.
func (u PRUnit) SourceUnitID() string { return fmt.Sprintf("%s#%d", u.Repo, u.Number) }

// Repository implements UnitOfWork.
func (u PRUnit) Repository() string { return u.Repo }

// IssueTitle implements UnitOfWork.
func (u PRUnit) IssueTitle() string {
	return fmt.Sprintf("[PR #%d] %s", u.Number, u.Title)
}

// IssueBody implements UnitOfWork.
func (u PRUnit) IssueBody() string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Pull Request:** #%d\n", u.Number)
	if u.Author != "" {
		fmt.Fprintf(&b, "**Author:** @%s\n", u.Author)
	}
	if u.State != "" {
		fmt.Fprintf(&b, "**Status:** %s\n", u.State)
	}
	if u.URL != "" {
		fmt.Fprintf(&b, "**Link:** %s\n", u.URL)
	}
	fmt.Fprintf(&b, "\n%s\n", SourceUnitMarker(u.SourceUnitID()))
	return b.String()
}

// PRStatus is the derived lifecycle status of a pull request.
type PRStatus string

const (
	// StatusOpen means the PR is open and not a draft.
	StatusOpen PRStatus = "Open"
	// StatusClosed means the PR was closed without merging.
	StatusClosed PRStatus = "Closed"
	// StatusMerged means the PR was merged.
	StatusMerged PRStatus = "Merged"
	// StatusDraft means the PR is an open draft.
	StatusDraft PRStatus = "Draft"
)

// PRKey uniquely identifies a PR record.
type PRKey struct {
	Repository string
	Number     int
}

func (k PRKey) String() string { return fmt.Sprintf("%s#%d", k.Repository, k.Number) }

// Review is an append-only review entry on a PR record. Ordering is arrival
// order, not necessarily the chronological order of the underlying event.
type Review struct {
	Reviewer  string     `json:"reviewer"`
	State     string     `json:"state"`
	Body      string     `json:"body,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// CommitRef is an append-only commit entry on a PR record.
type CommitRef struct {
	SHA       string     `json:"sha"`
	Message   string     `json:"message"`
	Author    string     `json:"author,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// PRRecord is the persisted unit of the PR state store, keyed by
// (Repository, Number). Scalar fields are overwritten by pull_request
// events; Reviews and Commits only ever grow.
type PRRecord struct {
	Number       int         `json:"pr_number"`
	Repository   string      `json:"repository"`
	Organization string      `json:"organization,omitempty"`
	Title        string      `json:"pr_title"`
	State        string      `json:"pr_state"`
	Merged       bool        `json:"pr_merged"`
	Draft        bool        `json:"pr_draft,omitempty"`
	Author       string      `json:"author"`
	URL          string      `json:"html_url,omitempty"`
	CreatedAt    *time.Time  `json:"created_at,omitempty"`
	UpdatedAt    *time.Time  `json:"updated_at,omitempty"`
	MergedAt     *time.Time  `json:"merged_at,omitempty"`
	TrackingRef  string      `json:"tracking_ref,omitempty"`
	LastEvent    string      `json:"last_event,omitempty"`
	LastEventAt  *time.Time  `json:"last_event_at,omitempty"`
	LastReviewAt *time.Time  `json:"last_review_time,omitempty"`
	LastCommitAt *time.Time  `json:"last_commit_time,omitempty"`
	Reviews      []Review    `json:"reviews,omitempty"`
	Commits      []CommitRef `json:"commits,omitempty"`
}

// Key returns the record's unique key.
func (r *PRRecord) Key() PRKey { return PRKey{Repository: r.Repository, Number: r.Number} }

// Status derives the lifecycle status: merged wins, then draft, then open.
func (r *PRRecord) Status() PRStatus {
	switch {
	case r.Merged:
		return StatusMerged
	case r.Draft && r.State == "open":
		return StatusDraft
	case r.State == "open":
		return StatusOpen
	default:
		return StatusClosed
	}
}

// Stats is a derived statistics snapshot over all PR records.
type Stats struct {
	Total        int     `json:"total"`
	Open         int     `json:"open"`
	Closed       int     `json:"closed"`
	Merged       int     `json:"merged"`
	MergeRatePct int     `json:"merge_rate_pct"`
	AvgMergeDays float64 `json:"avg_merge_days"`
}
