// Package storage composes the in-memory knowledge graph with its
// persistent backends: the StorageManager facade, the write-through
// PersistenceCoordinator, and the Backend capability interface every
// durable sink implements.
package storage

import (
	"context"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
)

// Backend is the capability set a persistent sink must provide. Any
// implementation can be plugged into the coordinator; the relational and
// triple backends in the subpackages are the two shipped here.
type Backend interface {
	// Name identifies the backend in logs and errors.
	Name() string

	// Write upserts a node and its edges idempotently. Replaying the same
	// write leaves exactly one row per table for the node id, with the
	// later write's fields taking precedence.
	Write(ctx context.Context, node *kg.Node, edges []kg.Edge) error

	// QueryNode retrieves a node by id, or a NotFoundError.
	QueryNode(ctx context.Context, id string) (*kg.Node, error)

	// Close releases the backend connection.
	Close() error
}
