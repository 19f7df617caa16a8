package kg

import (
	"sort"
	"time"
)

// Graph is the in-memory knowledge graph: nodes keyed by id plus
// directed adjacency in both directions.
//
// Graph performs no locking of its own. The StorageManager owns the single
// RWMutex that serializes structural mutations; only node access metadata
// (atomics on Node) may change under the shared lock.
type Graph struct {
	nodes map[string]*Node
	out   map[string][]Edge
	in    map[string][]Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string][]Edge),
		in:    make(map[string][]Edge),
	}
}

// UpsertResult reports what an Upsert did to the resident graph.
type UpsertResult struct {
	// Node is the resident node after the operation.
	Node *Node

	// Inserted is true when the id was not previously resident.
	Inserted bool

	// Stale is true when the incoming write carried an older version than
	// the resident node and was ignored.
	Stale bool

	// TypeConflict is true when the incoming type differed from the
	// resident type. The resident type is kept.
	TypeConflict bool
}

// Upsert inserts a node or updates it in place, last-write-wins.
//
// A versioned write older than the resident version is ignored (access
// metadata still refreshes). Untagged writes (version 0) always apply in
// arrival order. Re-persisting never duplicates an id.
func (g *Graph) Upsert(n *Node, now time.Time) UpsertResult {
	n.Confidence = clampConfidence(n.Confidence)

	existing, ok := g.nodes[n.ID]
	if !ok {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.Touch(now)
		g.nodes[n.ID] = n
		return UpsertResult{Node: n, Inserted: true}
	}

	res := UpsertResult{Node: existing}
	if n.Type != "" && n.Type != existing.Type {
		res.TypeConflict = true
	}

	if n.Version != 0 && existing.Version != 0 && n.Version < existing.Version {
		res.Stale = true
		existing.Touch(now)
		return res
	}

	existing.Content = n.Content
	if n.Confidence != nil {
		existing.Confidence = n.Confidence
	}
	if n.Embedding != nil {
		existing.Embedding = n.Embedding
	}
	if n.Version != 0 {
		existing.Version = n.Version
	}
	existing.Touch(now)
	return res
}

// AddEdge records a directed edge. Edges are mirrored only where both
// endpoints are resident; duplicates are ignored. Reports whether the edge
// was added.
func (g *Graph) AddEdge(e Edge) bool {
	if _, ok := g.nodes[e.SrcID]; !ok {
		return false
	}
	if _, ok := g.nodes[e.DstID]; !ok {
		return false
	}
	for _, have := range g.out[e.SrcID] {
		if have == e {
			return false
		}
	}
	g.out[e.SrcID] = append(g.out[e.SrcID], e)
	g.in[e.DstID] = append(g.in[e.DstID], e)
	return true
}

// Node returns the resident node for id, if any.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Remove deletes a node and cascades removal of its incident edges.
// Returns the number of edges removed. Persistent backends are untouched.
func (g *Graph) Remove(id string) int {
	if _, ok := g.nodes[id]; !ok {
		return 0
	}
	removed := 0

	for _, e := range g.out[id] {
		g.in[e.DstID] = dropEdge(g.in[e.DstID], e)
		removed++
	}
	delete(g.out, id)

	for _, e := range g.in[id] {
		g.out[e.SrcID] = dropEdge(g.out[e.SrcID], e)
		removed++
	}
	delete(g.in, id)

	delete(g.nodes, id)
	return removed
}

func dropEdge(edges []Edge, e Edge) []Edge {
	for i, have := range edges {
		if have == e {
			return append(edges[:i], edges[i+1:]...)
		}
	}
	return edges
}

// Neighbors returns nodes reachable from id over outgoing edges with the
// given relation. An empty relation matches every label.
func (g *Graph) Neighbors(id, relation string) []*Node {
	var result []*Node
	for _, e := range g.out[id] {
		if relation != "" && e.Relation != relation {
			continue
		}
		if n, ok := g.nodes[e.DstID]; ok {
			result = append(result, n)
		}
	}
	return result
}

// Len returns the resident node count.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// EdgeCount returns the number of resident edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, edges := range g.out {
		total += len(edges)
	}
	return total
}

// Nodes returns all resident nodes in id order. The order is stable so
// eviction scoring and tests are deterministic.
func (g *Graph) Nodes() []*Node {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Edges returns all resident edges grouped by source id order.
func (g *Graph) Edges() []Edge {
	srcs := make([]string, 0, len(g.out))
	for src := range g.out {
		srcs = append(srcs, src)
	}
	sort.Strings(srcs)

	var edges []Edge
	for _, src := range srcs {
		edges = append(edges, g.out[src]...)
	}
	return edges
}
