package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alan/pr-tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// graphQLHandler answers each request from a queue of canned responses and
// records the envelopes it received.
type graphQLHandler struct {
	t         *testing.T
	responses []string
	status    int
	requests  []map[string]any
}

func (h *graphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.t.Helper()

	assert.Equal(h.t, http.MethodPost, r.Method)
	assert.Equal(h.t, "Bearer test-token", r.Header.Get("Authorization"))
	assert.Equal(h.t, "application/json", r.Header.Get("Content-Type"))

	var envelope map[string]any
	require.NoError(h.t, json.NewDecoder(r.Body).Decode(&envelope))
	assert.Contains(h.t, envelope, "query")
	h.requests = append(h.requests, envelope)

	if h.status != 0 {
		w.WriteHeader(h.status)
		return
	}

	resp := `{"data": {}}`
	if len(h.responses) > 0 {
		resp = h.responses[0]
		h.responses = h.responses[1:]
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(resp))
}

func testClient(t *testing.T, h *graphQLHandler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token", "ws-1", 5*time.Second)
}

func searchResponse(nodes string) string {
	return `{"data": {"searchIssuesByPipeline": {"searchIssues": {"nodes": [` + nodes + `]}}}}`
}

func TestFindIssueBySourceUnit(t *testing.T) {
	h := &graphQLHandler{t: t, responses: []string{searchResponse(`
		{
			"id": "Z1",
			"number": 101,
			"title": "[SYNC NEEDED] Fix login",
			"body": "details\n\nTracked-Unit: web#abc123\n",
			"pipelineIssue": {"pipeline": {"id": "p1", "name": "Sync Pending"}}
		}`)}}
	c := testClient(t, h)

	issue, err := c.FindIssueBySourceUnit(context.Background(), "web#abc123")

	require.NoError(t, err)
	require.NotNil(t, issue)
	assert.Equal(t, "Z1", issue.ID)
	assert.Equal(t, "Sync Pending", issue.Pipeline.Name)
}

func TestFindIssueBySourceUnitIgnoresFuzzyMatches(t *testing.T) {
	// The search endpoint is a text search; only the marker line counts.
	h := &graphQLHandler{t: t, responses: []string{searchResponse(`
		{
			"id": "Z9",
			"number": 9,
			"title": "mentions web#abc123 in the title only",
			"body": "no marker here",
			"pipelineIssue": {"pipeline": {"id": "p1", "name": "New Issues"}}
		}`)}}
	c := testClient(t, h)

	issue, err := c.FindIssueBySourceUnit(context.Background(), "web#abc123")

	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestFindIssueBySourceUnitNoMatch(t *testing.T) {
	h := &graphQLHandler{t: t, responses: []string{searchResponse("")}}
	c := testClient(t, h)

	issue, err := c.FindIssueBySourceUnit(context.Background(), "web#missing")

	require.NoError(t, err)
	assert.Nil(t, issue)
}

func TestCreateIssue(t *testing.T) {
	h := &graphQLHandler{t: t, responses: []string{`{
		"data": {"createIssue": {"issue": {"id": "Z2", "number": 102, "title": "[PR #7] Add caching", "body": "..."}}}
	}`}}
	c := testClient(t, h)

	issue, err := c.CreateIssue(context.Background(), CreateIssueInput{
		RepositoryGhID: 1234,
		Title:          "[PR #7] Add caching",
		Body:           "...",
		Labels:         []string{"Pull Request Tracker"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Z2", issue.ID)
	assert.Equal(t, 102, issue.Number)

	// The mutation input carries the repository id and label objects.
	require.Len(t, h.requests, 1)
	variables := h.requests[0]["variables"].(map[string]any)
	input := variables["input"].(map[string]any)
	assert.Equal(t, float64(1234), input["repositoryGhId"])
	labels := input["labels"].([]any)
	require.Len(t, labels, 1)
	assert.Equal(t, "Pull Request Tracker", labels[0].(map[string]any)["name"])
}

func TestCreateIssueEmptyResponseIsAdapterError(t *testing.T) {
	h := &graphQLHandler{t: t, responses: []string{`{"data": {"createIssue": {"issue": {}}}}`}}
	c := testClient(t, h)

	_, err := c.CreateIssue(context.Background(), CreateIssueInput{Title: "x"})

	var adapterErr *model.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "board", adapterErr.System)
}

func TestGraphQLErrorsAreChecked(t *testing.T) {
	h := &graphQLHandler{t: t, responses: []string{`{
		"data": null,
		"errors": [{"message": "workspace not found"}]
	}`}}
	c := testClient(t, h)

	_, err := c.ListPipelines(context.Background())

	var adapterErr *model.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Contains(t, adapterErr.Error(), "workspace not found")
}

func TestNonOKStatusIsAdapterError(t *testing.T) {
	h := &graphQLHandler{t: t, status: http.StatusServiceUnavailable}
	c := testClient(t, h)

	err := c.MoveIssue(context.Background(), "Z1", "p1", 0)

	var adapterErr *model.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Contains(t, adapterErr.Error(), "503")
}

func TestPipelineIDByNameCachesListing(t *testing.T) {
	pipelines := `{"data": {"workspace": {"pipelines": [
		{"id": "p1", "name": "New Issues"},
		{"id": "p2", "name": "Sync Pending"}
	]}}}`
	h := &graphQLHandler{t: t, responses: []string{pipelines}}
	c := testClient(t, h)
	ctx := context.Background()

	id, err := c.PipelineIDByName(ctx, "Sync Pending")
	require.NoError(t, err)
	assert.Equal(t, "p2", id)

	// Second lookup hits the cache, not the server.
	id, err = c.PipelineIDByName(ctx, "New Issues")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.Len(t, h.requests, 1)
}

func TestPipelineIDByNameUnknownPipeline(t *testing.T) {
	h := &graphQLHandler{t: t, responses: []string{`{"data": {"workspace": {"pipelines": []}}}`}}
	c := testClient(t, h)

	_, err := c.PipelineIDByName(context.Background(), "Nope")

	var adapterErr *model.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Contains(t, adapterErr.Error(), "not found")
}

func TestViewer(t *testing.T) {
	h := &graphQLHandler{t: t, responses: []string{`{"data": {"viewer": {"id": "user-1"}}}`}}
	c := testClient(t, h)

	id, err := c.Viewer(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "user-1", id)
}
