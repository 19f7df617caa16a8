// Package eviction bounds the in-memory graph to a RAM budget by removing
// low-value nodes in small batches. Persistent backends are never touched.
package eviction

import (
	"sort"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
)

// Policy names a scoring strategy for choosing eviction victims.
type Policy string

const (
	// PolicyLRU evicts least-recently-accessed nodes first.
	PolicyLRU Policy = "lru"

	// PolicyScore evicts least-confident nodes first; nodes without a
	// confidence score rank lowest.
	PolicyScore Policy = "score"

	// PolicyHybrid combines recency and confidence ranks with
	// configurable weights.
	PolicyHybrid Policy = "hybrid"

	// PolicyAdaptive picks lru when the access pattern is bursty
	// (high variance of access-time gaps) and score otherwise.
	PolicyAdaptive Policy = "adaptive"

	// PolicyPriority evicts tier-by-tier on node type, breaking ties
	// within a tier by confidence.
	PolicyPriority Policy = "priority"
)

// Valid reports whether p names a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyLRU, PolicyScore, PolicyHybrid, PolicyAdaptive, PolicyPriority:
		return true
	}
	return false
}

// confidenceValue orders nodes by confidence with unscored nodes lowest.
func confidenceValue(n *kg.Node) float64 {
	if n.Confidence == nil {
		return -1
	}
	return *n.Confidence
}

// byIDAsc is the deterministic tie-break shared by every policy.
func byIDAsc(a, b *kg.Node) bool {
	return a.ID < b.ID
}

// rankLRU sorts oldest access first.
func rankLRU(nodes []*kg.Node) []*kg.Node {
	out := append([]*kg.Node(nil), nodes...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].LastAccessed(), out[j].LastAccessed()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return byIDAsc(out[i], out[j])
	})
	return out
}

// rankScore sorts least-confident first.
func rankScore(nodes []*kg.Node) []*kg.Node {
	out := append([]*kg.Node(nil), nodes...)
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := confidenceValue(out[i]), confidenceValue(out[j])
		if ci != cj {
			return ci < cj
		}
		return byIDAsc(out[i], out[j])
	})
	return out
}

// rankHybrid combines the positional ranks of the lru and score orderings.
func rankHybrid(nodes []*kg.Node, recencyWeight, confidenceWeight float64) []*kg.Node {
	recRank := make(map[string]int, len(nodes))
	for i, n := range rankLRU(nodes) {
		recRank[n.ID] = i
	}
	confRank := make(map[string]int, len(nodes))
	for i, n := range rankScore(nodes) {
		confRank[n.ID] = i
	}

	out := append([]*kg.Node(nil), nodes...)
	combined := func(n *kg.Node) float64 {
		return recencyWeight*float64(recRank[n.ID]) + confidenceWeight*float64(confRank[n.ID])
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := combined(out[i]), combined(out[j])
		if si != sj {
			return si < sj
		}
		return byIDAsc(out[i], out[j])
	})
	return out
}

// rankPriority evicts tier-by-tier on node type, confidence within a tier.
// Types missing from the order land in the last tier.
func rankPriority(nodes []*kg.Node, order []kg.NodeType) []*kg.Node {
	tier := make(map[kg.NodeType]int, len(order))
	for i, t := range order {
		tier[t] = i
	}
	tierOf := func(n *kg.Node) int {
		if t, ok := tier[n.Type]; ok {
			return t
		}
		return len(order)
	}

	out := append([]*kg.Node(nil), nodes...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := tierOf(out[i]), tierOf(out[j])
		if ti != tj {
			return ti < tj
		}
		ci, cj := confidenceValue(out[i]), confidenceValue(out[j])
		if ci != cj {
			return ci < cj
		}
		return byIDAsc(out[i], out[j])
	})
	return out
}

// accessGapVariance returns the variance (seconds²) of the gaps between
// consecutive access times across the node set. Fewer than three nodes
// yields zero: there is no meaningful gap distribution to classify.
func accessGapVariance(nodes []*kg.Node) float64 {
	if len(nodes) < 3 {
		return 0
	}
	times := make([]float64, len(nodes))
	for i, n := range nodes {
		times[i] = float64(n.LastAccessed().UnixNano()) / 1e9
	}
	sort.Float64s(times)

	gaps := make([]float64, len(times)-1)
	var mean float64
	for i := 1; i < len(times); i++ {
		gaps[i-1] = times[i] - times[i-1]
		mean += gaps[i-1]
	}
	mean /= float64(len(gaps))

	var variance float64
	for _, gap := range gaps {
		d := gap - mean
		variance += d * d
	}
	return variance / float64(len(gaps))
}

// resolveAdaptive classifies the access pattern: bursty/recency-driven
// access (high gap variance) favors lru, steady access favors score.
func resolveAdaptive(nodes []*kg.Node, threshold float64) Policy {
	if accessGapVariance(nodes) > threshold {
		return PolicyLRU
	}
	return PolicyScore
}

// rank returns nodes in eviction order (first element evicted first)
// under the given policy. Adaptive must be resolved before calling.
func rank(nodes []*kg.Node, policy Policy, cfg Config) []*kg.Node {
	switch policy {
	case PolicyScore:
		return rankScore(nodes)
	case PolicyHybrid:
		return rankHybrid(nodes, cfg.HybridRecencyWeight, cfg.HybridConfidenceWeight)
	case PolicyPriority:
		return rankPriority(nodes, cfg.PriorityOrder)
	default:
		return rankLRU(nodes)
	}
}
