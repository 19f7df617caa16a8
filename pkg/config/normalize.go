package config

import (
	"go.uber.org/zap"
)

// validPolicies mirrors the eviction policies the engine accepts. Kept
// here so config validation does not import the eviction package.
var validPolicies = map[string]bool{
	"lru":      true,
	"score":    true,
	"hybrid":   true,
	"adaptive": true,
	"priority": true,
}

// Normalize clamps invalid values back to defaults, logging a warning
// for each correction. Bad config never aborts startup.
func (c *Config) Normalize(logger *zap.Logger) {
	if c.RAM.BudgetMB <= 0 {
		logger.Warn("invalid ram budget, using default",
			zap.Float64("budget_mb", c.RAM.BudgetMB),
			zap.Float64("default", DefaultBudgetMB))
		c.RAM.BudgetMB = DefaultBudgetMB
	}

	if c.RAM.SafetyMargin <= 0 || c.RAM.SafetyMargin >= 1 {
		logger.Warn("safety margin outside (0,1), using default",
			zap.Float64("safety_margin", c.RAM.SafetyMargin),
			zap.Float64("default", DefaultSafetyMargin))
		c.RAM.SafetyMargin = DefaultSafetyMargin
	}

	if c.RAM.ResidentFloor != nil && *c.RAM.ResidentFloor < DefaultResidentFloor {
		logger.Warn("resident floor below minimum, clamping",
			zap.Int("resident_floor", *c.RAM.ResidentFloor),
			zap.Int("minimum", DefaultResidentFloor))
		floor := DefaultResidentFloor
		c.RAM.ResidentFloor = &floor
	}

	if !validPolicies[c.RAM.Policy] {
		logger.Warn("unknown eviction policy, using default",
			zap.String("policy", c.RAM.Policy),
			zap.String("default", defaultPolicy))
		c.RAM.Policy = defaultPolicy
	}

	if c.RAM.MaxBatches <= 0 {
		c.RAM.MaxBatches = defaultMaxBatches
	}

	if c.Broker.QueueSize <= 0 {
		c.Broker.QueueSize = defaultQueueSize
	}

	if c.Persistence.MaxRetries <= 0 {
		c.Persistence.MaxRetries = defaultMaxRetries
	}
	if c.Persistence.RetryDelayMS <= 0 {
		c.Persistence.RetryDelayMS = defaultRetryDelayMS
	}
	if c.Persistence.WriteTimeoutMS <= 0 {
		c.Persistence.WriteTimeoutMS = defaultWriteTimeoutMS
	}
}
