package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/utils"
	"github.com/ravenoak/autoresearch-sub001/pkg/vector"
)

const (
	defaultMaxRetries   = 3
	defaultRetryDelay   = 100 * time.Millisecond
	defaultWriteTimeout = 5 * time.Second
)

// CoordinatorConfig configures the write-through persistence layer.
type CoordinatorConfig struct {
	// Backends are the durable sinks every mutation mirrors into.
	Backends []Backend

	// Vector is the optional embedding store. Nil disables vector search.
	Vector vector.Driver

	// MaxRetries bounds write attempts per backend.
	MaxRetries int

	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration

	// WriteTimeout bounds each individual backend write. A timed-out
	// write counts as a transient failure, not a permanent one.
	WriteTimeout time.Duration
}

// Coordinator mirrors in-memory graph mutations into every configured
// backend and the vector store. Backend unavailability degrades features
// instead of failing: vector write failures flip a sticky degraded flag,
// and exhausted relational/triple retries surface as a PersistenceError
// that the caller treats as a warning (the graph holds the authoritative
// copy until the next successful flush).
type Coordinator struct {
	backends     []Backend
	vec          vector.Driver
	vecDegraded  atomic.Bool
	maxRetries   int
	retryDelay   time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewCoordinator builds a coordinator; zero config values use defaults.
func NewCoordinator(cfg CoordinatorConfig, logger *zap.Logger) *Coordinator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	c := &Coordinator{
		backends:     cfg.Backends,
		vec:          cfg.Vector,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger,
	}
	if c.vec == nil {
		c.vecDegraded.Store(true)
	}
	return c
}

// Write mirrors a node and its edges into every backend, retrying each with
// bounded backoff. Failures on one backend do not stop writes to the
// others; exhausted retries are joined into the returned error as
// PersistenceError values.
func (c *Coordinator) Write(ctx context.Context, node *kg.Node, edges []kg.Edge) error {
	var errs []error
	for _, b := range c.backends {
		err := utils.RetryWithBackoff(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
			wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
			defer cancel()
			return b.Write(wctx, node, edges)
		})
		if err != nil {
			c.logger.Warn("backend write failed after retries",
				zap.String("backend", b.Name()),
				zap.String("node_id", node.ID),
				zap.Error(err),
			)
			errs = append(errs, &PersistenceError{Backend: b.Name(), Err: err})
		}
	}

	c.writeEmbedding(ctx, node)

	return errors.Join(errs...)
}

// writeEmbedding mirrors the node embedding into the vector store. Errors
// degrade vector search rather than failing the write.
func (c *Coordinator) writeEmbedding(ctx context.Context, node *kg.Node) {
	if c.vec == nil || c.vecDegraded.Load() || len(node.Embedding) == 0 {
		return
	}

	doc := vector.Document{ID: node.ID, Embedding: node.Embedding}
	if err := c.vec.Add(ctx, []vector.Document{doc}); err != nil {
		c.vecDegraded.Store(true)
		c.logger.Warn("vector store write failed, disabling vector search",
			zap.String("node_id", node.ID),
			zap.Error(err),
		)
	}
}

// QueryNode retrieves a node by falling through the backends in order.
// The relational backend is listed first and carries the full row; later
// backends only answer when earlier ones are unreachable.
func (c *Coordinator) QueryNode(ctx context.Context, id string) (*kg.Node, error) {
	var lastErr error = NotFoundError{ID: id}
	for _, b := range c.backends {
		node, err := b.QueryNode(ctx, id)
		if err == nil {
			return node, nil
		}
		var nf NotFoundError
		if errors.As(err, &nf) {
			lastErr = err
			continue
		}
		c.logger.Warn("backend query failed",
			zap.String("backend", b.Name()),
			zap.String("node_id", id),
			zap.Error(err),
		)
		lastErr = &PersistenceError{Backend: b.Name(), Err: err}
	}
	return nil, lastErr
}

// QuerySimilar runs a vector similarity search.
func (c *Coordinator) QuerySimilar(ctx context.Context, embedding []float32, k int) ([]vector.QueryResult, error) {
	if !c.VectorAvailable() {
		return nil, ErrVectorSearchUnavailable
	}
	results, err := c.vec.Query(ctx, embedding, k)
	if err != nil {
		c.vecDegraded.Store(true)
		c.logger.Warn("vector store query failed, disabling vector search", zap.Error(err))
		return nil, ErrVectorSearchUnavailable
	}
	return results, nil
}

// VectorAvailable reports whether similarity search is currently usable.
func (c *Coordinator) VectorAvailable() bool {
	return !c.vecDegraded.Load()
}

// Close releases every backend and the vector store.
func (c *Coordinator) Close() error {
	var errs []error
	for _, b := range c.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.vec != nil {
		if err := c.vec.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
