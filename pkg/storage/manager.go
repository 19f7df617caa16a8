package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/eviction"
	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/queue"
	"github.com/ravenoak/autoresearch-sub001/pkg/ram"
)

// ManagerConfig configures a StorageManager instance. Budget state is
// explicit per instance so independent stores (tests included) never
// interfere.
type ManagerConfig struct {
	// Eviction carries the RAM budget, safety margin, resident floor
	// and policy selection.
	Eviction eviction.Config

	// Strict makes persistence-backend failures fatal to PersistClaim
	// instead of a logged warning.
	Strict bool

	// Now overrides the clock, for deterministic operation. Defaults to
	// time.Now.
	Now func() time.Time
}

// Manager is the storage facade: it owns the in-memory graph and the
// single RWMutex serializing structural mutations, mirrors every mutation
// through the coordinator, and keeps usage under budget via the eviction
// engine.
type Manager struct {
	mu      sync.RWMutex
	graph   *kg.Graph
	coord   *Coordinator
	monitor *ram.Monitor
	engine  *eviction.Engine
	strict  bool
	now     func() time.Time
	logger  *zap.Logger
}

// NewManager builds a manager around the given coordinator.
func NewManager(cfg ManagerConfig, coord *Coordinator, logger *zap.Logger) *Manager {
	monitor := ram.NewMonitor()
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		graph:   kg.NewGraph(),
		coord:   coord,
		monitor: monitor,
		engine:  eviction.NewEngine(cfg.Eviction, monitor, logger),
		strict:  cfg.Strict,
		now:     cfg.Now,
		logger:  logger,
	}
}

// PersistClaim inserts or updates a node and its edges. The in-memory
// mutation always succeeds; backend failures degrade (logged warning,
// returned only in strict mode) and never roll the graph back. Returns the
// resulting node id.
func (m *Manager) PersistClaim(ctx context.Context, node *kg.Node, edges []kg.Edge) (string, error) {
	if node == nil {
		return "", errors.New("cannot persist nil node")
	}
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	now := m.now()

	m.mu.Lock()
	res := m.graph.Upsert(node, now)
	for _, e := range edges {
		m.graph.AddEdge(e)
	}
	// Snapshot under the lock: the coordinator writes outside it, and a
	// concurrent upsert of the same id mutates the resident node's fields.
	snap := res.Node.Snapshot()
	m.mu.Unlock()

	if res.TypeConflict {
		m.logger.Warn("node re-persisted with conflicting type, keeping resident type",
			zap.String("node_id", res.Node.ID),
			zap.String("resident_type", string(res.Node.Type)),
			zap.String("incoming_type", string(node.Type)),
		)
	}
	if res.Stale {
		m.logger.Debug("stale versioned write ignored",
			zap.String("node_id", res.Node.ID),
			zap.Int64("resident_version", res.Node.Version),
			zap.Int64("incoming_version", node.Version),
		)
		return res.Node.ID, nil
	}

	err := m.coord.Write(ctx, snap, edges)
	if err != nil {
		m.logger.Warn("claim persisted in memory only; backend flush pending",
			zap.String("node_id", snap.ID),
			zap.Error(err),
		)
		if !m.strict {
			err = nil
		}
	}

	m.EvictIfNeeded()
	return res.Node.ID, err
}

// GetNode returns a node by id, refreshing its access metadata. Evicted
// nodes are served from the persistent backends without re-inserting them
// into memory.
func (m *Manager) GetNode(ctx context.Context, id string) (*kg.Node, error) {
	m.mu.RLock()
	node, ok := m.graph.Node(id)
	m.mu.RUnlock()

	if ok {
		node.Touch(m.now())
		return node, nil
	}
	return m.coord.QueryNode(ctx, id)
}

// QueryByRelation returns resident nodes reachable from id over outgoing
// edges with the given relation (empty relation matches all), refreshing
// access metadata on every hit.
func (m *Manager) QueryByRelation(ctx context.Context, id, relation string) ([]*kg.Node, error) {
	m.mu.RLock()
	nodes := m.graph.Neighbors(id, relation)
	m.mu.RUnlock()

	now := m.now()
	for _, n := range nodes {
		n.Touch(now)
	}
	return nodes, nil
}

// QuerySimilar returns the k nodes most similar to the given embedding.
// Fails with ErrVectorSearchUnavailable when no embedding backend is
// loaded; callers may fall back to non-vector queries.
func (m *Manager) QuerySimilar(ctx context.Context, embedding []float32, k int) ([]*kg.Node, error) {
	results, err := m.coord.QuerySimilar(ctx, embedding, k)
	if err != nil {
		return nil, err
	}

	now := m.now()
	nodes := make([]*kg.Node, 0, len(results))
	for _, r := range results {
		m.mu.RLock()
		node, ok := m.graph.Node(r.ID)
		m.mu.RUnlock()
		if !ok {
			// Evicted from memory; the relational backend still has it.
			node, err = m.coord.QueryNode(ctx, r.ID)
			if err != nil {
				m.logger.Debug("similarity hit not retrievable",
					zap.String("node_id", r.ID),
					zap.Error(err),
				)
				continue
			}
		}
		node.Touch(now)
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// EvictIfNeeded measures current usage and, when over budget, runs the
// eviction engine. The engine takes the exclusive lock per batch, so
// concurrent inserts are never starved for a whole sweep.
func (m *Manager) EvictIfNeeded() eviction.Result {
	res := m.engine.Sweep(m.graph, &m.mu)
	if res.FloorReached {
		m.logger.Info("eviction stopped at resident floor",
			zap.Int("floor", m.engine.Floor()),
			zap.Float64("usage_mb", res.FinalUsageMB),
			zap.Float64("target_mb", m.engine.Target()),
		)
	}
	return res
}

// UsageMB returns the current modeled memory usage of the graph.
func (m *Manager) UsageMB() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.monitor.Measure(m.graph)
}

// ResidentCount returns the number of nodes currently held in memory.
func (m *Manager) ResidentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.graph.Len()
}

// IngestDistributed drains claims produced by remote workers from the
// broker and applies each via PersistClaim in arrival order. Per-node-id
// last-write-wins holds across producers when they tag updates with a
// monotonic version; untagged updates apply in arrival order. Returns nil
// when ctx is done or the broker closes.
func (m *Manager) IngestDistributed(ctx context.Context, broker queue.Broker) error {
	for {
		msg, err := broker.Get(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if msg.Node == nil {
			m.logger.Warn("dropping distributed message without node")
			continue
		}
		if _, err := m.PersistClaim(ctx, msg.Node, msg.Edges); err != nil {
			m.logger.Warn("distributed claim persisted with degraded backends",
				zap.String("node_id", msg.Node.ID),
				zap.Error(err),
			)
		}
	}
}

// Close releases the coordinator's backends and vector store.
func (m *Manager) Close() error {
	return m.coord.Close()
}
