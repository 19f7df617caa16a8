package config

const (
	defaultStorageProvider = "sqlite"
	defaultSQLitePath      = "arstore.db"
	defaultTriplePath      = "arstore-triples.db"

	// DefaultBudgetMB is the RAM budget applied when none is configured.
	DefaultBudgetMB = 512.0

	// DefaultSafetyMargin keeps post-eviction usage 10% under budget.
	DefaultSafetyMargin = 0.10

	// DefaultResidentFloor is the built-in minimum resident node count.
	// A nil/omitted override resolves here, never to zero or negative.
	DefaultResidentFloor = 2

	defaultPolicy     = "lru"
	defaultMaxBatches = 64

	defaultVectorProvider   = "sqlitevec"
	defaultVectorPath       = "arstore-vec.db"
	defaultVectorDimensions = 768
	defaultQdrantPort       = 6334
	defaultQdrantCollection = "arstore"

	defaultBrokerProvider = "channel"
	defaultQueueSize      = 256
	defaultKafkaTopic     = "arstore-claims"
	defaultKafkaGroupID   = "arstore"

	defaultMaxRetries     = 3
	defaultRetryDelayMS   = 100
	defaultWriteTimeoutMS = 5000
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Provider:   defaultStorageProvider,
			SQLitePath: defaultSQLitePath,
			TriplePath: defaultTriplePath,
		},
		RAM: RAMConfig{
			BudgetMB:     DefaultBudgetMB,
			SafetyMargin: DefaultSafetyMargin,
			Policy:       defaultPolicy,
			MaxBatches:   defaultMaxBatches,
		},
		Vector: VectorConfig{
			Provider:   defaultVectorProvider,
			Path:       defaultVectorPath,
			Port:       defaultQdrantPort,
			Collection: defaultQdrantCollection,
			Dimensions: defaultVectorDimensions,
		},
		Broker: BrokerConfig{
			Provider:  defaultBrokerProvider,
			QueueSize: defaultQueueSize,
			Kafka: KafkaConfig{
				Topic:   defaultKafkaTopic,
				GroupID: defaultKafkaGroupID,
			},
		},
		Persistence: PersistenceConfig{
			MaxRetries:     defaultMaxRetries,
			RetryDelayMS:   defaultRetryDelayMS,
			WriteTimeoutMS: defaultWriteTimeoutMS,
		},
	}
}
