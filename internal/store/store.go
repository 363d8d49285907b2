// Package store is the PR state store: the single source of truth for PR
// records, updated by lifecycle events with field-level merge semantics and
// persisted as one JSON document replaced atomically on every change.
package store

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alan/pr-tracker/internal/model"
	"github.com/natefinch/atomic"
)

// Store holds PR records keyed by (repository, prNumber). Events for the
// same key are applied strictly in arrival order; events for different
// keys are independent.
type Store struct {
	path  string
	clock func() time.Time

	mu          sync.Mutex
	records     map[model.PRKey]*model.PRRecord
	order       []model.PRKey
	keyLocks    map[model.PRKey]*sync.Mutex
	lastUpdated time.Time

	// Serializes writes of the persisted file process-wide.
	fileMu sync.Mutex
}

// document is the persisted JSON layout.
type document struct {
	PullRequests []*model.PRRecord `json:"pullRequests"`
	LastUpdated  time.Time         `json:"lastUpdated"`
}

// Open loads the store from path. A missing file yields an empty store;
// any other read or parse failure is a PersistenceError.
func Open(path string) (*Store, error) {
	s := &Store{
		path:     path,
		clock:    time.Now,
		records:  make(map[model.PRKey]*model.PRRecord),
		keyLocks: make(map[model.PRKey]*sync.Mutex),
	}

	data, err := os.ReadFile(path) //nolint:gosec // Data file path comes from configuration
	if err != nil {
		if os.IsNotExist(err) {
			s.lastUpdated = s.clock().UTC()
			return s, nil
		}
		return nil, &model.PersistenceError{Op: "read", Path: path, Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.PersistenceError{Op: "parse", Path: path, Err: err}
	}

	for _, rec := range doc.PullRequests {
		key := rec.Key()
		if _, exists := s.records[key]; exists {
			// Keys are unique; a duplicate in the file keeps the last copy.
			slog.Warn("Duplicate PR record in data file", "key", key.String())
			s.records[key] = rec
			continue
		}
		s.records[key] = rec
		s.order = append(s.order, key)
	}
	s.lastUpdated = doc.LastUpdated

	return s, nil
}

// Apply merges one lifecycle event into the record it names, creating the
// record on first sight of the key. The mutated record is persisted before
// Apply returns; on persistence failure the in-memory state is already
// updated and the returned error asks the caller to retry the operation.
func (s *Store) Apply(ev model.LifecycleEvent) (*model.PRRecord, error) {
	key := ev.Key()

	lock := s.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	now := s.clock().UTC()

	s.mu.Lock()
	rec, exists := s.records[key]

	// Not an error: tolerated and logged, nothing merged and no record
	// created.
	if !model.KnownEventKind(ev.Kind) {
		slog.Warn("Ignoring unrecognized event kind", "event_type", ev.Kind, "key", key.String())
		var out *model.PRRecord
		if exists {
			out = cloneRecord(rec)
		}
		s.mu.Unlock()
		return out, nil
	}

	if !exists {
		rec = &model.PRRecord{Number: ev.Number, Repository: ev.Repository}
		s.records[key] = rec
		s.order = append(s.order, key)
	}

	switch ev.Kind {
	case model.EventPullRequest, model.EventScheduledUpdate:
		applyPullRequest(rec, ev)
	case model.EventReview:
		applyReview(rec, ev)
	case model.EventPush:
		applyPush(rec, ev)
	}

	ts := ev.Timestamp
	if ts == nil {
		ts = &now
	}
	rec.LastEventAt = ts

	s.lastUpdated = now
	out := cloneRecord(rec)
	s.mu.Unlock()

	if err := s.persist(); err != nil {
		return out, err
	}
	return out, nil
}

// applyPullRequest overwrites the scalar fields with the event's values.
// Last write wins by arrival order, not by event timestamp.
func applyPullRequest(rec *model.PRRecord, ev model.LifecycleEvent) {
	rec.Title = ev.Title
	rec.State = ev.State
	rec.Merged = ev.Merged
	rec.Draft = ev.Draft
	rec.Author = ev.Author
	rec.Organization = ev.Organization
	rec.URL = ev.URL
	rec.CreatedAt = ev.CreatedAt
	rec.UpdatedAt = ev.UpdatedAt
	rec.MergedAt = ev.MergedAt
	rec.TrackingRef = ev.TrackingRef
	rec.LastEvent = ev.Action
}

func applyReview(rec *model.PRRecord, ev model.LifecycleEvent) {
	rec.Reviews = append(rec.Reviews, model.Review{
		Reviewer:  ev.Reviewer,
		State:     ev.ReviewState,
		Body:      ev.ReviewBody,
		Timestamp: ev.Timestamp,
	})
	rec.LastReviewAt = ev.Timestamp
}

func applyPush(rec *model.PRRecord, ev model.LifecycleEvent) {
	rec.Commits = append(rec.Commits, model.CommitRef{
		SHA:       ev.CommitSHA,
		Message:   ev.CommitMessage,
		Author:    ev.Author,
		Timestamp: ev.Timestamp,
	})
	rec.LastCommitAt = ev.Timestamp
}

// Filter narrows List results. Empty or "all" values match everything.
type Filter struct {
	Status     string
	Author     string
	Repository string
	Search     string
}

// List returns copies of the records matching the filter, in arrival order.
func (s *Store) List(f Filter) []model.PRRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.PRRecord
	for _, key := range s.order {
		rec := s.records[key]
		if !matches(rec, f) {
			continue
		}
		out = append(out, *cloneRecord(rec))
	}
	return out
}

func matches(rec *model.PRRecord, f Filter) bool {
	if f.Status != "" && f.Status != "all" && !strings.EqualFold(string(rec.Status()), f.Status) {
		return false
	}
	if f.Author != "" && f.Author != "all" && rec.Author != f.Author {
		return false
	}
	if f.Repository != "" && f.Repository != "all" && rec.Repository != f.Repository {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(rec.Title), needle) &&
			!strings.Contains(strings.ToLower(rec.Author), needle) {
			return false
		}
	}
	return true
}

// Snapshot returns copies of all records in arrival order.
func (s *Store) Snapshot() []model.PRRecord {
	return s.List(Filter{})
}

// Get returns a copy of one record, or nil if the key is unknown.
func (s *Store) Get(key model.PRKey) *model.PRRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil
	}
	return cloneRecord(rec)
}

// LastUpdated reports when the store last changed.
func (s *Store) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

// FilterValues enumerates the distinct filterable values over all records.
type FilterValues struct {
	Authors      []string `json:"authors"`
	Repositories []string `json:"repositories"`
	Statuses     []string `json:"statuses"`
}

// FilterValues returns the sorted distinct authors, repositories and
// derived statuses of the current records.
func (s *Store) FilterValues() FilterValues {
	s.mu.Lock()
	defer s.mu.Unlock()

	authors := make(map[string]bool)
	repos := make(map[string]bool)
	statuses := make(map[string]bool)
	for _, rec := range s.records {
		if rec.Author != "" {
			authors[rec.Author] = true
		}
		repos[rec.Repository] = true
		statuses[string(rec.Status())] = true
	}

	return FilterValues{
		Authors:      sortedKeys(authors),
		Repositories: sortedKeys(repos),
		Statuses:     sortedKeys(statuses),
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// documentLocked builds the persisted document. Caller holds s.mu.
func (s *Store) documentLocked() document {
	doc := document{
		PullRequests: make([]*model.PRRecord, 0, len(s.order)),
		LastUpdated:  s.lastUpdated,
	}
	for _, key := range s.order {
		doc.PullRequests = append(doc.PullRequests, cloneRecord(s.records[key]))
	}
	return doc
}

// persist replaces the whole data file atomically. The document is
// captured and written under fileMu as one critical section, so concurrent
// Apply calls can never write their snapshots out of order: whichever
// write lands last carries every change made before it.
func (s *Store) persist() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	s.mu.Lock()
	doc := s.documentLocked()
	s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &model.PersistenceError{Op: "marshal", Path: s.path, Err: err}
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return &model.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

func (s *Store) lockFor(key model.PRKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.keyLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.keyLocks[key] = lock
	}
	return lock
}

func cloneRecord(rec *model.PRRecord) *model.PRRecord {
	out := *rec
	if rec.Reviews != nil {
		out.Reviews = append([]model.Review(nil), rec.Reviews...)
	}
	if rec.Commits != nil {
		out.Commits = append([]model.CommitRef(nil), rec.Commits...)
	}
	return &out
}
