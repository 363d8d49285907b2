// Package github wraps the GitHub API for the operations the tracker
// needs: branch commit listings, pull request details and repository ids.
// It carries no business logic; transport failures are classified into
// model.AdapterError before they leave this package.
package github

import (
	"context"
	"time"

	"github.com/alan/pr-tracker/internal/model"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Client wraps the GitHub API client.
type Client struct {
	client  *github.Client
	org     string
	timeout time.Duration
}

// PRDetails is a pull request snapshot from GitHub.
type PRDetails struct {
	Number    int
	Title     string
	Body      string
	State     string
	Merged    bool
	Draft     bool
	Author    string
	URL       string
	CreatedAt *time.Time
	UpdatedAt *time.Time
	MergedAt  *time.Time
}

// NewClient creates a new GitHub client with token authentication. Every
// call is bounded by the given timeout.
func NewClient(token, org string, timeout time.Duration) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{
		client:  github.NewClient(tc),
		org:     org,
		timeout: timeout,
	}
}

// ListCommits fetches the commits of a branch, newest first, as a branch
// snapshot for the differ.
func (c *Client) ListCommits(ctx context.Context, repo, branch string) ([]model.Commit, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := &github.CommitsListOptions{
		SHA: branch,
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var all []model.Commit
	for {
		commits, resp, err := c.client.Repositories.ListCommits(ctx, c.org, repo, opts)
		if err != nil {
			return nil, classify("list commits", err)
		}

		for _, commit := range commits {
			all = append(all, model.Commit{
				Hash:        commit.GetSHA(),
				Message:     commit.GetCommit().GetMessage(),
				AuthorEmail: commit.GetCommit().GetAuthor().GetEmail(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetPullRequest fetches details for a specific PR by number.
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (*PRDetails, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pr, _, err := c.client.PullRequests.Get(ctx, c.org, repo, number)
	if err != nil {
		return nil, classify("get pull request", err)
	}

	details := &PRDetails{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		State:  pr.GetState(),
		Merged: pr.MergedAt != nil,
		Draft:  pr.GetDraft(),
		Author: pr.GetUser().GetLogin(),
		URL:    pr.GetHTMLURL(),
	}
	if t := pr.GetCreatedAt(); !t.IsZero() {
		tt := t.Time
		details.CreatedAt = &tt
	}
	if t := pr.GetUpdatedAt(); !t.IsZero() {
		tt := t.Time
		details.UpdatedAt = &tt
	}
	if pr.MergedAt != nil {
		tt := pr.MergedAt.Time
		details.MergedAt = &tt
	}

	return details, nil
}

// GetRepositoryID fetches the numeric GitHub id for a repository. The
// tracking board keys repositories by this id.
func (c *Client) GetRepositoryID(ctx context.Context, repo string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	repository, _, err := c.client.Repositories.Get(ctx, c.org, repo)
	if err != nil {
		return 0, classify("get repository", err)
	}

	return repository.GetID(), nil
}

// classify wraps a transport error into the adapter taxonomy.
func classify(op string, err error) error {
	return &model.AdapterError{System: "github", Op: op, Err: err}
}
