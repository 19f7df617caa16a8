package eviction

import (
	"sync"

	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/ram"
)

const (
	// DefaultSafetyMargin keeps post-eviction usage 10% under budget.
	DefaultSafetyMargin = 0.10

	// DefaultResidentFloor is the minimum node count a sweep must leave
	// resident. Overrides below this clamp up, never down.
	DefaultResidentFloor = 2

	defaultBatchFraction = 0.10
	defaultMaxBatches    = 64
	defaultHybridWeight  = 0.5

	// defaultAdaptiveThreshold is the gap variance (seconds²) above which
	// the adaptive policy treats the access pattern as bursty.
	defaultAdaptiveThreshold = 100.0
)

// DefaultPriorityOrder evicts sources before entities before claims.
var DefaultPriorityOrder = []kg.NodeType{kg.TypeSource, kg.TypeEntity, kg.TypeClaim}

// Config controls a sweep. Zero values resolve to defaults in NewEngine.
type Config struct {
	// BudgetMB is the hard RAM budget. Usage at or under it is a no-op.
	BudgetMB float64

	// SafetyMargin m sets the sweep target T = BudgetMB × (1 − m).
	SafetyMargin float64

	// ResidentFloor is the minimum resident node count; never below
	// DefaultResidentFloor.
	ResidentFloor int

	// Policy selects the scoring strategy.
	Policy Policy

	// BatchFraction sizes each batch as a fraction of live node count
	// (at least one node per batch).
	BatchFraction float64

	// MaxBatches bounds a single sweep.
	MaxBatches int

	// HybridRecencyWeight / HybridConfidenceWeight weight the hybrid
	// policy's rank combination.
	HybridRecencyWeight    float64
	HybridConfidenceWeight float64

	// AdaptiveVarianceThreshold (seconds²) switches adaptive between
	// lru and score.
	AdaptiveVarianceThreshold float64

	// PriorityOrder lists node types in eviction order for the priority
	// policy.
	PriorityOrder []kg.NodeType
}

func (c Config) withDefaults() Config {
	if c.SafetyMargin <= 0 || c.SafetyMargin >= 1 {
		c.SafetyMargin = DefaultSafetyMargin
	}
	if c.ResidentFloor < DefaultResidentFloor {
		c.ResidentFloor = DefaultResidentFloor
	}
	if !c.Policy.Valid() {
		c.Policy = PolicyLRU
	}
	if c.BatchFraction <= 0 || c.BatchFraction > 1 {
		c.BatchFraction = defaultBatchFraction
	}
	if c.MaxBatches <= 0 {
		c.MaxBatches = defaultMaxBatches
	}
	if c.HybridRecencyWeight <= 0 {
		c.HybridRecencyWeight = defaultHybridWeight
	}
	if c.HybridConfidenceWeight <= 0 {
		c.HybridConfidenceWeight = defaultHybridWeight
	}
	if c.AdaptiveVarianceThreshold <= 0 {
		c.AdaptiveVarianceThreshold = defaultAdaptiveThreshold
	}
	if len(c.PriorityOrder) == 0 {
		c.PriorityOrder = DefaultPriorityOrder
	}
	return c
}

// Result describes what a sweep did.
type Result struct {
	// Evicted is the number of nodes removed from memory.
	Evicted int

	// Batches is the number of eviction batches run.
	Batches int

	// FinalUsageMB is the measured usage when the sweep stopped.
	FinalUsageMB float64

	// FloorReached is true when the resident floor, not the usage target,
	// bounded the sweep. This is a recorded condition, not an error.
	FloorReached bool

	// Policy is the scoring strategy that ran (adaptive reports the
	// policy it resolved to).
	Policy Policy
}

// Engine removes nodes from the in-memory graph until usage falls under
// the target, respecting the resident floor. It never writes to backends.
type Engine struct {
	cfg     Config
	monitor *ram.Monitor
	logger  *zap.Logger
}

// NewEngine builds an engine with cfg's zero values resolved to defaults.
func NewEngine(cfg Config, monitor *ram.Monitor, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:     cfg.withDefaults(),
		monitor: monitor,
		logger:  logger,
	}
}

// Target returns the usage the sweep drives toward: BudgetMB × (1 − margin).
func (e *Engine) Target() float64 {
	return e.cfg.BudgetMB * (1 - e.cfg.SafetyMargin)
}

// Floor returns the effective resident floor.
func (e *Engine) Floor() int {
	return e.cfg.ResidentFloor
}

// Sweep evicts in bounded batches. locker guards the graph and is held
// for one batch at a time (measure + score + remove), so concurrent
// inserts are blocked for at most one batch's duration.
func (e *Engine) Sweep(g *kg.Graph, locker sync.Locker) Result {
	target := e.Target()
	res := Result{Policy: e.cfg.Policy}

	for {
		locker.Lock()
		usage := e.monitor.Measure(g)

		// Step 1 of the algorithm: at or under budget is a no-op.
		if res.Batches == 0 && usage <= e.cfg.BudgetMB {
			res.FinalUsageMB = usage
			locker.Unlock()
			return res
		}

		if usage <= target {
			res.FinalUsageMB = usage
			locker.Unlock()
			e.logResult(res, "target reached")
			return res
		}

		live := g.Len()
		if live <= e.cfg.ResidentFloor {
			res.FloorReached = true
			res.FinalUsageMB = usage
			locker.Unlock()
			e.logResult(res, "resident floor bounded the sweep")
			return res
		}

		if res.Batches >= e.cfg.MaxBatches {
			res.FinalUsageMB = usage
			locker.Unlock()
			e.logResult(res, "batch bound reached")
			return res
		}

		policy := e.cfg.Policy
		if policy == PolicyAdaptive {
			policy = resolveAdaptive(g.Nodes(), e.cfg.AdaptiveVarianceThreshold)
		}
		res.Policy = policy

		batch := int(e.cfg.BatchFraction * float64(live))
		if batch < 1 {
			batch = 1
		}
		if room := live - e.cfg.ResidentFloor; batch > room {
			batch = room
		}

		victims := rank(g.Nodes(), policy, e.cfg)
		for i := 0; i < batch && i < len(victims); i++ {
			g.Remove(victims[i].ID)
			res.Evicted++
		}
		res.Batches++
		res.FinalUsageMB = e.monitor.Measure(g)
		locker.Unlock()
	}
}

func (e *Engine) logResult(res Result, reason string) {
	if e.logger == nil {
		return
	}
	e.logger.Debug("eviction sweep finished",
		zap.String("reason", reason),
		zap.String("policy", string(res.Policy)),
		zap.Int("evicted", res.Evicted),
		zap.Int("batches", res.Batches),
		zap.Float64("final_usage_mb", res.FinalUsageMB),
		zap.Bool("floor_reached", res.FloorReached),
	)
}
