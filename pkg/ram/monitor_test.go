package ram_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/ram"
)

var _ = Describe("Monitor", func() {
	var (
		m   *ram.Monitor
		now time.Time
	)

	BeforeEach(func() {
		m = ram.NewMonitor()
		now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	Describe("NodeSize", func() {
		It("grows with content length", func() {
			small := kg.NewNode("a", kg.TypeClaim, "short", now)
			large := kg.NewNode("a", kg.TypeClaim, strings.Repeat("x", 1000), now)
			Expect(m.NodeSize(large)).To(Equal(m.NodeSize(small) + 1000 - len("short")))
		})

		It("charges four bytes per embedding dimension", func() {
			plain := kg.NewNode("a", kg.TypeClaim, "c", now)
			embedded := kg.NewNode("a", kg.TypeClaim, "c", now)
			embedded.Embedding = make([]float32, 768)
			Expect(m.NodeSize(embedded)).To(Equal(m.NodeSize(plain) + 4*768))
		})
	})

	Describe("Measure", func() {
		It("returns zero for an empty graph", func() {
			Expect(m.Measure(kg.NewGraph())).To(BeZero())
		})

		It("is deterministic for the same graph", func() {
			g := kg.NewGraph()
			g.Upsert(kg.NewNode("a", kg.TypeClaim, strings.Repeat("x", 4096), now), now)
			g.Upsert(kg.NewNode("b", kg.TypeSource, strings.Repeat("y", 4096), now), now)
			g.AddEdge(kg.Edge{SrcID: "a", DstID: "b", Relation: "cites"})

			first := m.Measure(g)
			Expect(first).To(BeNumerically(">", 0))
			Expect(m.Measure(g)).To(Equal(first))
		})

		It("drops when nodes are removed", func() {
			g := kg.NewGraph()
			g.Upsert(kg.NewNode("a", kg.TypeClaim, strings.Repeat("x", 1<<20), now), now)
			g.Upsert(kg.NewNode("b", kg.TypeClaim, "tiny", now), now)

			before := m.Measure(g)
			g.Remove("a")
			Expect(m.Measure(g)).To(BeNumerically("<", before))
		})
	})
})
