package model

import "fmt"

// AdapterError classifies a failure talking to an external system (network,
// auth, rate limit, API-level errors). Always recoverable by retrying on a
// later cycle; never fatal to the process.
type AdapterError struct {
	System string // "github" or "board"
	Op     string
	Err    error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s adapter: %s: %v", e.System, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// ResolverErrorKind discriminates resolver failures.
type ResolverErrorKind string

const (
	// CreationFailed means no issue exists and creation failed; the unit is
	// left unresolved for this cycle.
	CreationFailed ResolverErrorKind = "creation_failed"
	// MoveFailed means the issue exists (and is returned) but the stage move
	// failed; the move can be retried without re-creating the issue.
	MoveFailed ResolverErrorKind = "move_failed"
)

// ResolverError reports a partial or failed resolution of a unit of work.
type ResolverError struct {
	Kind         ResolverErrorKind
	SourceUnitID string
	Err          error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolver %s for %s: %v", e.Kind, e.SourceUnitID, e.Err)
}

func (e *ResolverError) Unwrap() error { return e.Err }

// DispatchErrorKind discriminates dispatcher failures.
type DispatchErrorKind string

// MalformedEvent means the inbound event failed validation; the store was
// not touched and the sender gets a client error.
const MalformedEvent DispatchErrorKind = "malformed_event"

// DispatchError reports a rejected inbound event.
type DispatchError struct {
	Kind   DispatchErrorKind
	Reason string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %s", e.Kind, e.Reason)
}

// PersistenceError reports a failure reading or writing the durable store.
// Fatal to the current operation, not to the process; the operation should
// be retried.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
