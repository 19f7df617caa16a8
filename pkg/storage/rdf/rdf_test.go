package rdf_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage/rdf"
)

func ptr(f float64) *float64 { return &f }

var _ = Describe("Backend", func() {
	var (
		ctx     context.Context
		backend *rdf.Backend
		now     time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		var err error
		backend, err = rdf.NewBackend(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(backend.Close()).To(Succeed())
	})

	Describe("Write", func() {
		It("stores type and confidence as attribute triples", func() {
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)
			n.Confidence = ptr(0.6)

			Expect(backend.Write(ctx, n, nil)).To(Succeed())

			got, err := backend.QueryNode(ctx, "claim-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Type).To(Equal(kg.TypeClaim))
			Expect(got.Confidence).To(HaveValue(Equal(0.6)))
		})

		It("replaces attributes instead of accumulating them", func() {
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)
			n.Confidence = ptr(0.3)
			Expect(backend.Write(ctx, n, nil)).To(Succeed())

			n.Confidence = ptr(0.9)
			Expect(backend.Write(ctx, n, nil)).To(Succeed())

			// One type triple and one confidence triple.
			count, err := backend.CountTriples(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))

			got, err := backend.QueryNode(ctx, "claim-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Confidence).To(HaveValue(Equal(0.9)))
		})

		It("stores edges as relation triples, ignoring duplicates", func() {
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)
			edges := []kg.Edge{{SrcID: "claim-1", DstID: "source-1", Relation: "cites"}}

			Expect(backend.Write(ctx, n, edges)).To(Succeed())
			Expect(backend.Write(ctx, n, edges)).To(Succeed())

			targets, err := backend.QueryObjects(ctx, "claim-1", "cites")
			Expect(err).NotTo(HaveOccurred())
			Expect(targets).To(Equal([]string{"source-1"}))
		})
	})

	Describe("QueryNode", func() {
		It("returns NotFoundError for a subject with no type triple", func() {
			_, err := backend.QueryNode(ctx, "ghost")

			var nf storage.NotFoundError
			Expect(errors.As(err, &nf)).To(BeTrue())
		})
	})

	Describe("QueryObjects", func() {
		It("returns every object for a subject and predicate", func() {
			n := kg.NewNode("claim-1", kg.TypeClaim, "c", now)
			edges := []kg.Edge{
				{SrcID: "claim-1", DstID: "entity-1", Relation: "mentions"},
				{SrcID: "claim-1", DstID: "entity-2", Relation: "mentions"},
			}
			Expect(backend.Write(ctx, n, edges)).To(Succeed())

			targets, err := backend.QueryObjects(ctx, "claim-1", "mentions")
			Expect(err).NotTo(HaveOccurred())
			Expect(targets).To(ConsistOf("entity-1", "entity-2"))
		})
	})
})
