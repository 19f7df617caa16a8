package storage_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage"
	"github.com/ravenoak/autoresearch-sub001/pkg/vector"
)

var _ = Describe("Coordinator", func() {
	var (
		ctx        context.Context
		logger     *zap.Logger
		now        time.Time
		relational *fakeBackend
		triples    *fakeBackend
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = zap.NewNop()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		relational = newFakeBackend("relational")
		triples = newFakeBackend("triples")
	})

	newCoord := func(vec vector.Driver) *storage.Coordinator {
		return storage.NewCoordinator(storage.CoordinatorConfig{
			Backends:   []storage.Backend{relational, triples},
			Vector:     vec,
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		}, logger)
	}

	Describe("Write", func() {
		It("mirrors the node into every backend", func() {
			coord := newCoord(nil)
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)

			Expect(coord.Write(ctx, n, nil)).To(Succeed())
			Expect(relational.has("claim-1")).To(BeTrue())
			Expect(triples.has("claim-1")).To(BeTrue())
		})

		It("retries transient failures until a write lands", func() {
			relational.failuresLeft = 2
			coord := newCoord(nil)
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)

			Expect(coord.Write(ctx, n, nil)).To(Succeed())
			Expect(relational.calls()).To(Equal(3))
			Expect(relational.has("claim-1")).To(BeTrue())
		})

		It("retries timed-out writes up to the attempt bound", func() {
			relational.writeDelay = 50 * time.Millisecond
			coord := storage.NewCoordinator(storage.CoordinatorConfig{
				Backends:     []storage.Backend{relational},
				MaxRetries:   3,
				RetryDelay:   time.Millisecond,
				WriteTimeout: 5 * time.Millisecond,
			}, logger)
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)

			err := coord.Write(ctx, n, nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(relational.calls()).To(Equal(3))
		})

		It("stops retrying a slow backend when the caller's context is cancelled", func() {
			relational.writeDelay = time.Hour
			coord := storage.NewCoordinator(storage.CoordinatorConfig{
				Backends:     []storage.Backend{relational},
				MaxRetries:   5,
				RetryDelay:   time.Millisecond,
				WriteTimeout: time.Hour,
			}, logger)
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)

			cctx, cancel := context.WithCancel(ctx)
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()

			err := coord.Write(cctx, n, nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
			Expect(relational.calls()).To(Equal(1))
		})

		It("keeps writing the healthy backend when another exhausts retries", func() {
			relational.failuresLeft = 10
			coord := newCoord(nil)
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)

			err := coord.Write(ctx, n, nil)
			Expect(err).To(HaveOccurred())

			var pe *storage.PersistenceError
			Expect(errors.As(err, &pe)).To(BeTrue())
			Expect(pe.Backend).To(Equal("relational"))
			Expect(triples.has("claim-1")).To(BeTrue())
		})

		It("mirrors embeddings into the vector store", func() {
			vec := newFakeVector()
			coord := newCoord(vec)
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)
			n.Embedding = []float32{0.1, 0.2}

			Expect(coord.Write(ctx, n, nil)).To(Succeed())
			Expect(vec.stored("claim-1")).To(BeTrue())
		})

		It("degrades vector search on embedding write failure without failing the write", func() {
			vec := newFakeVector()
			vec.addErr = errors.New("vector store down")
			coord := newCoord(vec)
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)
			n.Embedding = []float32{0.1, 0.2}

			Expect(coord.Write(ctx, n, nil)).To(Succeed())
			Expect(coord.VectorAvailable()).To(BeFalse())
		})
	})

	Describe("QueryNode", func() {
		It("falls through to a later backend when the first misses", func() {
			coord := newCoord(nil)
			triples.nodes["only-here"] = kg.NewNode("only-here", kg.TypeEntity, "e", now)

			n, err := coord.QueryNode(ctx, "only-here")
			Expect(err).NotTo(HaveOccurred())
			Expect(n.ID).To(Equal("only-here"))
		})

		It("returns NotFoundError when no backend has the id", func() {
			coord := newCoord(nil)

			_, err := coord.QueryNode(ctx, "ghost")
			var nf storage.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
			Expect(nf.ID).To(Equal("ghost"))
		})
	})

	Describe("QuerySimilar", func() {
		It("reports unavailable when no vector store is configured", func() {
			coord := newCoord(nil)

			_, err := coord.QuerySimilar(ctx, []float32{0.1}, 5)
			Expect(err).To(MatchError(storage.ErrVectorSearchUnavailable))
			Expect(coord.VectorAvailable()).To(BeFalse())
		})

		It("returns hits from the vector store", func() {
			vec := newFakeVector()
			vec.hits = []vector.QueryResult{
				{Document: vector.Document{ID: "claim-1"}, Score: 0.9},
				{Document: vector.Document{ID: "claim-2"}, Score: 0.4},
			}
			coord := newCoord(vec)

			results, err := coord.QuerySimilar(ctx, []float32{0.1}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("claim-1"))
		})

		It("degrades permanently after a query failure", func() {
			vec := newFakeVector()
			vec.queryErr = errors.New("connection refused")
			coord := newCoord(vec)

			_, err := coord.QuerySimilar(ctx, []float32{0.1}, 5)
			Expect(err).To(MatchError(storage.ErrVectorSearchUnavailable))

			// The failure is sticky even if the store recovers.
			vec.queryErr = nil
			_, err = coord.QuerySimilar(ctx, []float32{0.1}, 5)
			Expect(err).To(MatchError(storage.ErrVectorSearchUnavailable))
		})
	})
})
