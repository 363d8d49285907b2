package model

import "time"

// EventKind discriminates the lifecycle event union.
type EventKind string

const (
	// EventPullRequest carries a full PR snapshot (open/close/merge/edit).
	EventPullRequest EventKind = "pull_request"
	// EventReview carries one review submission.
	EventReview EventKind = "pull_request_review"
	// EventPush carries one commit pushed to the PR branch.
	EventPush EventKind = "push"
	// EventScheduledUpdate is a poller-originated PR snapshot, applied with
	// pull_request semantics.
	EventScheduledUpdate EventKind = "scheduled_update"
)

// KnownEventKind reports whether k is part of the recognized union.
func KnownEventKind(k EventKind) bool {
	switch k {
	case EventPullRequest, EventReview, EventPush, EventScheduledUpdate:
		return true
	}
	return false
}

// LifecycleEvent is the inbound event envelope. It is a tagged union on
// Kind; only the fields relevant to the declared kind are consulted.
type LifecycleEvent struct {
	Kind         EventKind `json:"event_type"`
	Action       string    `json:"action,omitempty"`
	Number       int       `json:"pr_number"`
	Repository   string    `json:"repository"`
	Organization string    `json:"organization,omitempty"`

	// pull_request / scheduled_update fields.
	Title       string     `json:"pr_title,omitempty"`
	State       string     `json:"pr_state,omitempty"`
	Merged      bool       `json:"pr_merged,omitempty"`
	Draft       bool       `json:"pr_draft,omitempty"`
	Author      string     `json:"author,omitempty"`
	URL         string     `json:"html_url,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	MergedAt    *time.Time `json:"merged_at,omitempty"`
	TrackingRef string     `json:"tracking_ref,omitempty"`

	// pull_request_review fields.
	Reviewer    string `json:"reviewer,omitempty"`
	ReviewState string `json:"review_state,omitempty"`
	ReviewBody  string `json:"review_body,omitempty"`

	// push fields.
	CommitSHA     string `json:"commit_sha,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`

	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Key returns the PR key the event addresses.
func (e LifecycleEvent) Key() PRKey { return PRKey{Repository: e.Repository, Number: e.Number} }
