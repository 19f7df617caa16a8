package storage

import (
	"errors"
	"fmt"
)

// ErrVectorSearchUnavailable is returned by similarity queries when no
// embedding backend is loaded or the vector store has degraded. Callers
// may fall back to non-vector queries; it is never fatal.
var ErrVectorSearchUnavailable = errors.New("vector search unavailable")

// NotFoundError is returned when a node id exists nowhere: not resident
// and not in any persistent backend.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "node not found"
	}
	return "node not found: " + e.ID
}

// PersistenceError reports a backend write or read that failed after
// bounded retries. The in-memory graph still holds the authoritative copy,
// so callers surface it as a warning unless strict mode is configured.
type PersistenceError struct {
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed on backend %s: %v", e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
