// Package ingestcmder provides the ingest command that consumes claims
// from the configured broker into the store.
package ingestcmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/config"
	"github.com/ravenoak/autoresearch-sub001/pkg/eviction"
	"github.com/ravenoak/autoresearch-sub001/pkg/logger"
	"github.com/ravenoak/autoresearch-sub001/pkg/queue"
	channelbroker "github.com/ravenoak/autoresearch-sub001/pkg/queue/channel"
	kafkabroker "github.com/ravenoak/autoresearch-sub001/pkg/queue/kafka"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage/postgres"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage/rdf"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage/sqlite"
	vectorutils "github.com/ravenoak/autoresearch-sub001/pkg/vector/utils"
)

type IngestCommander struct {
	debug     bool
	configDir string
	logger    *zap.Logger
}

const ingestLongDesc string = `Run the claim ingest worker.

Consumes claim messages from the configured broker (in-process channel or
kafka), persists each into the in-memory graph and the durable backends,
and evicts nodes whenever RAM usage crosses the configured budget. Runs
until SIGINT/SIGTERM.`

const ingestShortDesc string = "Consume claims from the broker into the store"

func NewIngestCmd() *cobra.Command {
	cmder := &IngestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("could not get config flag: %v", err)
			}
			return cmder.run()
		},
	}

	return cmd
}

func (c *IngestCommander) run() error {
	v, err := config.InitViper(c.configDir)
	if err != nil {
		return err
	}
	cfg := config.FromViper(v)

	c.logger = logger.NewLogger(c.debug || cfg.Debug)
	defer c.logger.Sync()

	cfg.Normalize(c.logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backends, err := c.createBackends(ctx, cfg)
	if err != nil {
		return err
	}

	vec, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.Vector.Provider,
		Path:         cfg.Vector.Path,
		Host:         cfg.Vector.Host,
		Port:         cfg.Vector.Port,
		Collection:   cfg.Vector.Collection,
		Dimensions:   cfg.Vector.Dimensions,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}

	coord := storage.NewCoordinator(storage.CoordinatorConfig{
		Backends:     backends,
		Vector:       vec,
		MaxRetries:   cfg.Persistence.MaxRetries,
		RetryDelay:   time.Duration(cfg.Persistence.RetryDelayMS) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Persistence.WriteTimeoutMS) * time.Millisecond,
	}, c.logger)

	floor := 0
	if cfg.RAM.ResidentFloor != nil {
		floor = *cfg.RAM.ResidentFloor
	}
	manager := storage.NewManager(storage.ManagerConfig{
		Eviction: eviction.Config{
			BudgetMB:      cfg.RAM.BudgetMB,
			SafetyMargin:  cfg.RAM.SafetyMargin,
			ResidentFloor: floor,
			Policy:        eviction.Policy(cfg.RAM.Policy),
			MaxBatches:    cfg.RAM.MaxBatches,
		},
		Strict: cfg.Persistence.Strict,
	}, coord, c.logger)
	defer manager.Close()

	broker, err := c.createBroker(cfg)
	if err != nil {
		return err
	}
	defer broker.Close()

	c.logger.Info("starting ingest worker",
		zap.String("storage", cfg.Storage.Provider),
		zap.String("vector", cfg.Vector.Provider),
		zap.String("broker", cfg.Broker.Provider),
		zap.Float64("budget_mb", cfg.RAM.BudgetMB),
		zap.String("policy", cfg.RAM.Policy),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := manager.IngestDistributed(ctx, broker); err != nil {
			errChan <- fmt.Errorf("ingest error: %w", err)
		}
		close(errChan)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
		<-errChan
		return nil
	}
}

func (c *IngestCommander) createBackends(ctx context.Context, cfg *config.Config) ([]storage.Backend, error) {
	var backends []storage.Backend

	switch cfg.Storage.Provider {
	case "sqlite":
		b, err := sqlite.NewBackend(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("creating sqlite backend: %w", err)
		}
		backends = append(backends, b)
	case "postgres":
		b, err := postgres.NewBackend(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("creating postgres backend: %w", err)
		}
		backends = append(backends, b)
	default:
		return nil, fmt.Errorf("unknown storage provider: %q", cfg.Storage.Provider)
	}

	triples, err := rdf.NewBackend(cfg.Storage.TriplePath)
	if err != nil {
		return nil, fmt.Errorf("creating triple backend: %w", err)
	}
	backends = append(backends, triples)

	return backends, nil
}

func (c *IngestCommander) createBroker(cfg *config.Config) (queue.Broker, error) {
	switch cfg.Broker.Provider {
	case "channel":
		return channelbroker.NewBroker(cfg.Broker.QueueSize), nil
	case "kafka":
		return kafkabroker.NewBroker(kafkabroker.Config{
			Brokers: cfg.Broker.Kafka.Brokers,
			Topic:   cfg.Broker.Kafka.Topic,
			GroupID: cfg.Broker.Kafka.GroupID,
		}, c.logger)
	default:
		return nil, fmt.Errorf("unknown broker provider: %q", cfg.Broker.Provider)
	}
}
