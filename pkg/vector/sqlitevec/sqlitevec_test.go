package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/vector"
	"github.com/ravenoak/autoresearch-sub001/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
			}, logger)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("operations", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given empty docs", func() {
			Expect(driver.Add(context.Background(), nil)).To(Succeed())
		})

		It("should round-trip a document through Add and Get", func() {
			docs := []vector.Document{
				{ID: "claim-1", Embedding: []float32{0.1, 0.2, 0.3, 0.4}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())

			got, err := driver.Get(context.Background(), []string{"claim-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal("claim-1"))
			Expect(got[0].Embedding).To(Equal([]float32{0.1, 0.2, 0.3, 0.4}))
		})

		It("should update an existing document in place", func() {
			ctx := context.Background()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "claim-1", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "claim-1", Embedding: []float32{0, 1, 0, 0}},
			})).To(Succeed())

			got, err := driver.Get(ctx, []string{"claim-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].Embedding).To(Equal([]float32{0, 1, 0, 0}))
		})

		It("should rank the closest embedding first", func() {
			ctx := context.Background()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "near", Embedding: []float32{1, 0, 0, 0}},
				{ID: "far", Embedding: []float32{0, 0, 0, 1}},
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{0.9, 0.1, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("near"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("should delete documents by id", func() {
			ctx := context.Background()
			Expect(driver.Add(ctx, []vector.Document{
				{ID: "claim-1", Embedding: []float32{1, 0, 0, 0}},
			})).To(Succeed())

			Expect(driver.Delete(ctx, []string{"claim-1"})).To(Succeed())

			got, err := driver.Get(ctx, []string{"claim-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})
	})
})
