package storage_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage"
	"github.com/ravenoak/autoresearch-sub001/pkg/vector"
)

// fakeBackend records writes in memory and can be told to fail a number
// of write attempts before succeeding, or to stall each write past the
// coordinator's per-attempt deadline.
type fakeBackend struct {
	mu           sync.Mutex
	name         string
	failuresLeft int
	writeDelay   time.Duration
	writeCalls   int
	nodes        map[string]*kg.Node
	edges        map[string][]kg.Edge
	closed       bool
}

func newFakeBackend(name string) *fakeBackend {
	return &fakeBackend{
		name:  name,
		nodes: make(map[string]*kg.Node),
		edges: make(map[string][]kg.Edge),
	}
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Write(ctx context.Context, node *kg.Node, edges []kg.Edge) error {
	f.mu.Lock()
	f.writeCalls++
	fail := f.failuresLeft > 0
	if fail {
		f.failuresLeft--
	}
	delay := f.writeDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	if fail {
		return errors.New("transient backend failure")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[node.ID] = node
	f.edges[node.ID] = append([]kg.Edge(nil), edges...)
	return nil
}

func (f *fakeBackend) QueryNode(_ context.Context, id string) (*kg.Node, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.nodes[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}
	return n, nil
}

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeBackend) has(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.nodes[id]
	return ok
}

func (f *fakeBackend) node(id string) *kg.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nodes[id]
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeCalls
}

// fakeVector is an in-memory vector.Driver with injectable failures.
type fakeVector struct {
	mu       sync.Mutex
	docs     map[string][]float32
	addErr   error
	queryErr error
	hits     []vector.QueryResult
}

func newFakeVector() *fakeVector {
	return &fakeVector{docs: make(map[string][]float32)}
}

func (f *fakeVector) Add(_ context.Context, docs []vector.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	for _, d := range docs {
		f.docs[d.ID] = d.Embedding
	}
	return nil
}

func (f *fakeVector) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if topK > len(f.hits) {
		topK = len(f.hits)
	}
	return f.hits[:topK], nil
}

func (f *fakeVector) Get(_ context.Context, ids []string) ([]vector.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []vector.Document
	for _, id := range ids {
		if emb, ok := f.docs[id]; ok {
			out = append(out, vector.Document{ID: id, Embedding: emb})
		}
	}
	return out, nil
}

func (f *fakeVector) Delete(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		delete(f.docs, id)
	}
	return nil
}

func (f *fakeVector) Close() error { return nil }

func (f *fakeVector) stored(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.docs[id]
	return ok
}
