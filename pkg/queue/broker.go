// Package queue defines the broker contract that delivers claims produced
// by remote workers to the storage manager. Any implementation with
// put/get semantics satisfies it, keeping the ingestion logic
// broker-agnostic.
package queue

import (
	"context"
	"errors"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
)

// ErrClosed is returned by Get once a closed broker has been drained.
var ErrClosed = errors.New("broker closed")

// Message is the wire format for one distributed claim.
type Message struct {
	Node  *kg.Node  `json:"node"`
	Edges []kg.Edge `json:"edges,omitempty"`
}

// Broker is the put/get contract for distributed claim channels.
//
// Ordering: messages for the same node id are delivered in publish order
// per producer; across producers, only last-write-wins by Node.Version is
// guaranteed. Nothing stronger (cross-id causal ordering, exactly-once) is
// promised by any implementation.
type Broker interface {
	// Put publishes a message. Blocks until accepted or ctx is done.
	Put(ctx context.Context, msg Message) error

	// Get returns the next message. Blocks until one is available, ctx is
	// done, or the broker is closed and drained (ErrClosed).
	Get(ctx context.Context) (Message, error)

	// Close stops the broker. Buffered messages remain retrievable.
	Close() error
}
