// Package vector provides interfaces and implementations for storing and
// querying node embeddings.
package vector

import "context"

// Document represents a stored embedding keyed by node id.
type Document struct {
	// ID is the node id the embedding belongs to.
	ID string

	// Embedding is the vector representation of the node content.
	Embedding []float32
}

// QueryResult is a similarity search hit.
type QueryResult struct {
	Document

	// Score is the similarity score (higher = more similar).
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
type Driver interface {
	// Add stores documents with their embeddings. A document with an
	// existing ID is updated in place.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK most similar documents to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Get retrieves documents by their IDs.
	Get(ctx context.Context, ids []string) ([]Document, error)

	// Delete removes documents by their IDs.
	Delete(ctx context.Context, ids []string) error

	// Close releases any resources held by the driver.
	Close() error
}
