// Package board is the tracking-board adapter. All calls go through a
// single GraphQL endpoint with a {query, variables} request envelope and a
// {data, errors} response envelope; the errors list is checked before data
// is trusted. Failures are classified into model.AdapterError.
package board

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/alan/pr-tracker/internal/model"
)

// Client talks to the tracking-board GraphQL API.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	token       string
	workspaceID string

	mu        sync.Mutex
	pipelines map[string]string // display name -> pipeline id
}

// Pipeline is one workspace pipeline (a board column).
type Pipeline struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issue is a board issue as returned by queries and mutations.
type Issue struct {
	ID       string
	Number   int
	Title    string
	Body     string
	Pipeline Pipeline
}

// CreateIssueInput carries the fields for a new board issue.
type CreateIssueInput struct {
	RepositoryGhID int64
	Title          string
	Body           string
	Labels         []string
}

// NewClient creates a board client. Every call is bounded by the given
// timeout via the underlying HTTP client.
func NewClient(endpoint, token, workspaceID string, timeout time.Duration) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		endpoint:    endpoint,
		token:       token,
		workspaceID: workspaceID,
		pipelines:   make(map[string]string),
	}
}

// graphQLError is one entry of the response errors list.
type graphQLError struct {
	Message string `json:"message"`
}

// do posts one {query, variables} envelope and decodes data into out.
func (c *Client) do(ctx context.Context, op, query string, variables map[string]any, out any) error {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return classify(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return classify(op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classify(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return classify(op, fmt.Errorf("decode response: %w", err))
	}

	// The API reports failures in-band; check before trusting data.
	if len(envelope.Errors) > 0 {
		return classify(op, fmt.Errorf("graphql error: %s", envelope.Errors[0].Message))
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return classify(op, fmt.Errorf("decode data: %w", err))
		}
	}
	return nil
}

const searchIssuesQuery = `
query searchIssues($workspaceId: ID!, $query: String!) {
  searchIssuesByPipeline: workspace(id: $workspaceId) {
    searchIssues(query: $query, first: 20) {
      nodes {
        id
        number
        title
        body
        pipelineIssue(workspaceId: $workspaceId) {
          pipeline {
            id
            name
          }
        }
      }
    }
  }
}`

// FindIssueBySourceUnit looks up the tracking issue carrying the durable
// source-unit marker. Returns (nil, nil) when no issue matches.
func (c *Client) FindIssueBySourceUnit(ctx context.Context, sourceUnitID string) (*Issue, error) {
	var data struct {
		Workspace struct {
			SearchIssues struct {
				Nodes []issueNode `json:"nodes"`
			} `json:"searchIssues"`
		} `json:"searchIssuesByPipeline"`
	}

	variables := map[string]any{
		"workspaceId": c.workspaceID,
		"query":       sourceUnitID,
	}
	if err := c.do(ctx, "search issues", searchIssuesQuery, variables, &data); err != nil {
		return nil, err
	}

	// Text search is fuzzy; only the marker line is authoritative.
	for _, node := range data.Workspace.SearchIssues.Nodes {
		if model.BodyContainsSourceUnit(node.Body, sourceUnitID) {
			issue := node.toIssue()
			return &issue, nil
		}
	}
	return nil, nil
}

type issueNode struct {
	ID            string `json:"id"`
	Number        int    `json:"number"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	PipelineIssue struct {
		Pipeline Pipeline `json:"pipeline"`
	} `json:"pipelineIssue"`
}

func (n issueNode) toIssue() Issue {
	return Issue{
		ID:       n.ID,
		Number:   n.Number,
		Title:    n.Title,
		Body:     n.Body,
		Pipeline: n.PipelineIssue.Pipeline,
	}
}

const createIssueMutation = `
mutation createIssue($input: CreateIssueInput!) {
  createIssue(input: $input) {
    issue {
      id
      number
      title
      body
    }
  }
}`

// CreateIssue creates a new board issue.
func (c *Client) CreateIssue(ctx context.Context, in CreateIssueInput) (*Issue, error) {
	labels := make([]map[string]string, 0, len(in.Labels))
	for _, l := range in.Labels {
		labels = append(labels, map[string]string{"name": l})
	}

	var data struct {
		CreateIssue struct {
			Issue issueNode `json:"issue"`
		} `json:"createIssue"`
	}

	variables := map[string]any{
		"input": map[string]any{
			"repositoryGhId": in.RepositoryGhID,
			"title":          in.Title,
			"body":           in.Body,
			"labels":         labels,
		},
	}
	if err := c.do(ctx, "create issue", createIssueMutation, variables, &data); err != nil {
		return nil, err
	}

	if data.CreateIssue.Issue.ID == "" {
		return nil, classify("create issue", fmt.Errorf("no issue in response"))
	}
	issue := data.CreateIssue.Issue.toIssue()
	return &issue, nil
}

const moveIssueMutation = `
mutation moveIssue($input: MoveIssueInput!, $workspaceId: ID!) {
  moveIssue(input: $input) {
    issue {
      id
      pipelineIssue(workspaceId: $workspaceId) {
        pipeline {
          id
          name
        }
      }
    }
  }
}`

// MoveIssue moves an issue to the given pipeline at the given position.
func (c *Client) MoveIssue(ctx context.Context, issueID, pipelineID string, position int) error {
	variables := map[string]any{
		"workspaceId": c.workspaceID,
		"input": map[string]any{
			"issueId":    issueID,
			"pipelineId": pipelineID,
			"position":   position,
		},
	}
	return c.do(ctx, "move issue", moveIssueMutation, variables, nil)
}

const workspacePipelinesQuery = `
query getWorkspacePipelines($workspaceId: ID!) {
  workspace(id: $workspaceId) {
    id
    name
    pipelines {
      id
      name
    }
  }
}`

// ListPipelines fetches the workspace pipelines.
func (c *Client) ListPipelines(ctx context.Context) ([]Pipeline, error) {
	var data struct {
		Workspace struct {
			Pipelines []Pipeline `json:"pipelines"`
		} `json:"workspace"`
	}

	variables := map[string]any{"workspaceId": c.workspaceID}
	if err := c.do(ctx, "list pipelines", workspacePipelinesQuery, variables, &data); err != nil {
		return nil, err
	}
	return data.Workspace.Pipelines, nil
}

// PipelineIDByName resolves a pipeline display name to its id, caching the
// workspace pipeline listing after the first call.
func (c *Client) PipelineIDByName(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	id, ok := c.pipelines[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	pipelines, err := c.ListPipelines(ctx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	for _, p := range pipelines {
		c.pipelines[p.Name] = p.ID
	}
	id, ok = c.pipelines[name]
	c.mu.Unlock()

	if !ok {
		return "", classify("resolve pipeline", fmt.Errorf("pipeline %q not found in workspace", name))
	}
	return id, nil
}

const viewerQuery = `
query {
  viewer {
    id
  }
}`

// Viewer returns the id of the authenticated user, used as a fallback when
// no workspace id is configured.
func (c *Client) Viewer(ctx context.Context) (string, error) {
	var data struct {
		Viewer struct {
			ID string `json:"id"`
		} `json:"viewer"`
	}
	if err := c.do(ctx, "viewer", viewerQuery, nil, &data); err != nil {
		return "", err
	}
	return data.Viewer.ID, nil
}

func classify(op string, err error) error {
	return &model.AdapterError{System: "board", Op: op, Err: err}
}
