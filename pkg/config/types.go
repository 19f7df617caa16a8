// Package config loads and validates the store configuration: RAM budget,
// eviction policy, backend selection and broker settings.
package config

// Config is the full configuration surface consumed by the store.
// The TOML layout uses sections for logical grouping.
type Config struct {
	Debug       bool              `toml:"debug"`
	Storage     StorageConfig     `toml:"storage"`
	RAM         RAMConfig         `toml:"ram"`
	Vector      VectorConfig      `toml:"vector"`
	Broker      BrokerConfig      `toml:"broker"`
	Persistence PersistenceConfig `toml:"persistence"`
}

// StorageConfig selects and locates the relational and triple backends.
type StorageConfig struct {
	// Provider is the relational backend: "sqlite" or "postgres".
	Provider string `toml:"provider,omitempty"`

	// SQLitePath is the relational database path (":memory:" for
	// ephemeral mode).
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// PostgresDSN is the connection string for the postgres provider.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`

	// TriplePath is the triple-store database path.
	TriplePath string `toml:"triple_path,omitempty"`
}

// RAMConfig bounds in-memory graph growth.
type RAMConfig struct {
	// BudgetMB is the hard RAM budget for the in-memory graph.
	BudgetMB float64 `toml:"budget_mb,omitempty"`

	// SafetyMargin sets the post-eviction target below the budget.
	SafetyMargin float64 `toml:"safety_margin,omitempty"`

	// Policy names the eviction policy: lru, score, hybrid, adaptive,
	// priority.
	Policy string `toml:"policy,omitempty"`

	// ResidentFloor overrides the minimum resident node count. Nil or
	// omitted resolves to the built-in default; values below the default
	// clamp up, never to zero or negative.
	ResidentFloor *int `toml:"resident_floor,omitempty"`

	// MaxBatches bounds a single eviction sweep.
	MaxBatches int `toml:"max_batches,omitempty"`
}

// VectorConfig selects the embedding backend.
type VectorConfig struct {
	// Provider is "sqlitevec", "qdrant" or "none".
	Provider string `toml:"provider,omitempty"`

	// Path is the sqlite-vec database path.
	Path string `toml:"path,omitempty"`

	// Host/Port locate the qdrant endpoint.
	Host string `toml:"host,omitempty"`
	Port int    `toml:"port,omitempty"`

	// Collection is the qdrant collection name.
	Collection string `toml:"collection,omitempty"`

	// Dimensions is the embedding vector length.
	Dimensions uint `toml:"dimensions,omitempty"`
}

// BrokerConfig selects the distributed claim channel.
type BrokerConfig struct {
	// Provider is "channel" (in-process) or "kafka".
	Provider string `toml:"provider,omitempty"`

	// QueueSize is the channel broker's buffer capacity.
	QueueSize int `toml:"queue_size,omitempty"`

	Kafka KafkaConfig `toml:"kafka"`
}

// KafkaConfig holds kafka broker settings.
type KafkaConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
	GroupID string   `toml:"group_id,omitempty"`
}

// PersistenceConfig tunes the write-through coordinator.
type PersistenceConfig struct {
	// Strict makes exhausted backend retries fatal instead of a warning.
	Strict bool `toml:"strict,omitempty"`

	// MaxRetries bounds write attempts per backend.
	MaxRetries int `toml:"max_retries,omitempty"`

	// RetryDelayMS is the initial backoff between attempts.
	RetryDelayMS int `toml:"retry_delay_ms,omitempty"`

	// WriteTimeoutMS bounds each individual backend write.
	WriteTimeoutMS int `toml:"write_timeout_ms,omitempty"`
}
