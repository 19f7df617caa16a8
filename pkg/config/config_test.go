package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/config"
)

var _ = Describe("NewDefaultConfig", func() {
	It("fills every section with usable defaults", func() {
		cfg := config.NewDefaultConfig()

		Expect(cfg.Storage.Provider).To(Equal("sqlite"))
		Expect(cfg.RAM.BudgetMB).To(Equal(config.DefaultBudgetMB))
		Expect(cfg.RAM.SafetyMargin).To(Equal(config.DefaultSafetyMargin))
		Expect(cfg.RAM.Policy).To(Equal("lru"))
		Expect(cfg.Vector.Provider).To(Equal("sqlitevec"))
		Expect(cfg.Broker.Provider).To(Equal("channel"))
		Expect(cfg.Persistence.MaxRetries).To(BeNumerically(">", 0))
	})
})

var _ = Describe("InitViper", func() {
	It("applies defaults when no config file exists", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.RAM.BudgetMB).To(Equal(config.DefaultBudgetMB))
		Expect(cfg.RAM.ResidentFloor).To(BeNil())
	})

	It("reads overrides from config.toml", func() {
		dir := GinkgoT().TempDir()
		toml := `
debug = true

[ram]
budget_mb = 256.0
policy = "score"
resident_floor = 4

[broker]
provider = "kafka"

[broker.kafka]
brokers = ["localhost:9092"]
`
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644)).To(Succeed())

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Debug).To(BeTrue())
		Expect(cfg.RAM.BudgetMB).To(Equal(256.0))
		Expect(cfg.RAM.Policy).To(Equal("score"))
		Expect(cfg.RAM.ResidentFloor).To(HaveValue(Equal(4)))
		Expect(cfg.Broker.Provider).To(Equal("kafka"))
		Expect(cfg.Broker.Kafka.Brokers).To(Equal([]string{"localhost:9092"}))
		// Unset keys keep their defaults.
		Expect(cfg.Storage.Provider).To(Equal("sqlite"))
	})

	It("lets environment variables override file values", func() {
		GinkgoT().Setenv("ARSTORE_RAM_POLICY", "hybrid")

		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.RAM.Policy).To(Equal("hybrid"))
	})
})

var _ = Describe("Normalize", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	It("clamps a non-positive budget to the default", func() {
		cfg := config.NewDefaultConfig()
		cfg.RAM.BudgetMB = -10

		cfg.Normalize(logger)
		Expect(cfg.RAM.BudgetMB).To(Equal(config.DefaultBudgetMB))
	})

	It("clamps a safety margin outside (0,1) to the default", func() {
		cfg := config.NewDefaultConfig()
		cfg.RAM.SafetyMargin = 1.5

		cfg.Normalize(logger)
		Expect(cfg.RAM.SafetyMargin).To(Equal(config.DefaultSafetyMargin))
	})

	It("clamps a resident floor below the minimum up, never down", func() {
		cfg := config.NewDefaultConfig()
		floor := 0
		cfg.RAM.ResidentFloor = &floor

		cfg.Normalize(logger)
		Expect(cfg.RAM.ResidentFloor).To(HaveValue(Equal(config.DefaultResidentFloor)))
	})

	It("keeps a floor override above the minimum", func() {
		cfg := config.NewDefaultConfig()
		floor := 10
		cfg.RAM.ResidentFloor = &floor

		cfg.Normalize(logger)
		Expect(cfg.RAM.ResidentFloor).To(HaveValue(Equal(10)))
	})

	It("replaces an unknown policy with the default", func() {
		cfg := config.NewDefaultConfig()
		cfg.RAM.Policy = "fancy"

		cfg.Normalize(logger)
		Expect(cfg.RAM.Policy).To(Equal("lru"))
	})
})
