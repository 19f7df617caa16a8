// Package ram estimates the in-memory footprint of the knowledge graph.
//
// The monitor uses a fixed arithmetic cost model over the live graph
// structure rather than process RSS: measurements must be reproducible in
// deterministic mode, and they must reflect only the graph this store owns,
// not whatever else shares the process.
package ram

import "github.com/ravenoak/autoresearch-sub001/pkg/kg"

const (
	// nodeOverheadBytes covers the Node struct, map slot and adjacency
	// bookkeeping for one resident node.
	nodeOverheadBytes = 160

	// edgeOverheadBytes covers one Edge entry in both adjacency maps.
	edgeOverheadBytes = 48

	bytesPerMB = 1 << 20
)

// Monitor measures graph memory usage on demand. It is stateless; every
// call walks the live structure so eviction never acts on stale numbers.
type Monitor struct{}

// NewMonitor creates a monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// NodeSize returns the modeled footprint of a single node in bytes.
func (m *Monitor) NodeSize(n *kg.Node) int {
	size := nodeOverheadBytes
	size += len(n.ID)
	size += len(n.Content)
	size += 4 * len(n.Embedding)
	return size
}

// EdgeSize returns the modeled footprint of a single edge in bytes.
func (m *Monitor) EdgeSize(e kg.Edge) int {
	return edgeOverheadBytes + len(e.SrcID) + len(e.DstID) + len(e.Relation)
}

// Measure returns the graph's modeled footprint in MB. Synchronous and
// side-effect free; callers hold whatever lock guards the graph.
func (m *Monitor) Measure(g *kg.Graph) float64 {
	total := 0
	for _, n := range g.Nodes() {
		total += m.NodeSize(n)
	}
	for _, e := range g.Edges() {
		total += m.EdgeSize(e)
	}
	return float64(total) / bytesPerMB
}
