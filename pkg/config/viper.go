package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads config.toml from
// configDir (if present), and binds environment variables with the
// ARSTORE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the command)
//  2. Environment variables (ARSTORE_RAM_BUDGET_MB, ARSTORE_STORAGE_PROVIDER, ...)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("ARSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() using
// dotted-key notation. Keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("debug", d.Debug)

	// Storage
	v.SetDefault("storage.provider", d.Storage.Provider)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)
	v.SetDefault("storage.triple_path", d.Storage.TriplePath)

	// RAM budget
	v.SetDefault("ram.budget_mb", d.RAM.BudgetMB)
	v.SetDefault("ram.safety_margin", d.RAM.SafetyMargin)
	v.SetDefault("ram.policy", d.RAM.Policy)
	v.SetDefault("ram.max_batches", d.RAM.MaxBatches)

	// Vector store
	v.SetDefault("vector.provider", d.Vector.Provider)
	v.SetDefault("vector.path", d.Vector.Path)
	v.SetDefault("vector.host", d.Vector.Host)
	v.SetDefault("vector.port", d.Vector.Port)
	v.SetDefault("vector.collection", d.Vector.Collection)
	v.SetDefault("vector.dimensions", d.Vector.Dimensions)

	// Broker
	v.SetDefault("broker.provider", d.Broker.Provider)
	v.SetDefault("broker.queue_size", d.Broker.QueueSize)
	v.SetDefault("broker.kafka.brokers", d.Broker.Kafka.Brokers)
	v.SetDefault("broker.kafka.topic", d.Broker.Kafka.Topic)
	v.SetDefault("broker.kafka.group_id", d.Broker.Kafka.GroupID)

	// Persistence
	v.SetDefault("persistence.strict", d.Persistence.Strict)
	v.SetDefault("persistence.max_retries", d.Persistence.MaxRetries)
	v.SetDefault("persistence.retry_delay_ms", d.Persistence.RetryDelayMS)
	v.SetDefault("persistence.write_timeout_ms", d.Persistence.WriteTimeoutMS)
}

// FromViper materializes a Config from the viper instance.
func FromViper(v *viper.Viper) *Config {
	floor := v.GetInt("ram.resident_floor")
	var floorOverride *int
	if v.IsSet("ram.resident_floor") {
		floorOverride = &floor
	}

	return &Config{
		Debug: v.GetBool("debug"),
		Storage: StorageConfig{
			Provider:    v.GetString("storage.provider"),
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
			TriplePath:  v.GetString("storage.triple_path"),
		},
		RAM: RAMConfig{
			BudgetMB:      v.GetFloat64("ram.budget_mb"),
			SafetyMargin:  v.GetFloat64("ram.safety_margin"),
			Policy:        v.GetString("ram.policy"),
			ResidentFloor: floorOverride,
			MaxBatches:    v.GetInt("ram.max_batches"),
		},
		Vector: VectorConfig{
			Provider:   v.GetString("vector.provider"),
			Path:       v.GetString("vector.path"),
			Host:       v.GetString("vector.host"),
			Port:       v.GetInt("vector.port"),
			Collection: v.GetString("vector.collection"),
			Dimensions: v.GetUint("vector.dimensions"),
		},
		Broker: BrokerConfig{
			Provider:  v.GetString("broker.provider"),
			QueueSize: v.GetInt("broker.queue_size"),
			Kafka: KafkaConfig{
				Brokers: v.GetStringSlice("broker.kafka.brokers"),
				Topic:   v.GetString("broker.kafka.topic"),
				GroupID: v.GetString("broker.kafka.group_id"),
			},
		},
		Persistence: PersistenceConfig{
			Strict:         v.GetBool("persistence.strict"),
			MaxRetries:     v.GetInt("persistence.max_retries"),
			RetryDelayMS:   v.GetInt("persistence.retry_delay_ms"),
			WriteTimeoutMS: v.GetInt("persistence.write_timeout_ms"),
		},
	}
}
