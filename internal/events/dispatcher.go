// Package events validates inbound lifecycle events and routes them to the
// PR state store. The raw envelope is a tagged union on event_type; nothing
// reaches the store until the declared kind and its minimum fields check out.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/alan/pr-tracker/internal/model"
	"github.com/alan/pr-tracker/internal/store"
)

// Dispatcher routes validated events to store mutations.
type Dispatcher struct {
	store *store.Store
}

// NewDispatcher builds a dispatcher over the given store.
func NewDispatcher(s *store.Store) *Dispatcher {
	return &Dispatcher{store: s}
}

// Dispatch parses and validates one raw event envelope and applies it.
// Validation failures return a DispatchError and leave the store untouched.
func (d *Dispatcher) Dispatch(raw []byte) (*model.PRRecord, error) {
	var ev model.LifecycleEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, malformed(fmt.Sprintf("invalid JSON: %v", err))
	}

	if err := Validate(ev); err != nil {
		return nil, err
	}

	return d.store.Apply(ev)
}

// Validate checks the declared kind and the minimum required fields for it.
// pr_number and repository are always required.
func Validate(ev model.LifecycleEvent) error {
	if ev.Kind == "" {
		return malformed("missing event_type")
	}
	if !model.KnownEventKind(ev.Kind) {
		return malformed(fmt.Sprintf("unrecognized event_type %q", ev.Kind))
	}
	if ev.Repository == "" {
		return malformed("missing repository")
	}
	if ev.Number <= 0 {
		return malformed("missing or invalid pr_number")
	}

	switch ev.Kind {
	case model.EventReview:
		if ev.Reviewer == "" {
			return malformed("missing reviewer for pull_request_review event")
		}
	case model.EventPush:
		if ev.CommitSHA == "" {
			return malformed("missing commit_sha for push event")
		}
	}
	return nil
}

func malformed(reason string) error {
	return &model.DispatchError{Kind: model.MalformedEvent, Reason: reason}
}
