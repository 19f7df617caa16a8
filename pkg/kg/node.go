// Package kg holds the knowledge-graph data model: claim/source/entity
// nodes, directed labeled edges, and the in-memory graph they live in.
package kg

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// NodeType identifies the kind of record a node holds.
type NodeType string

const (
	// TypeClaim is a factual assertion produced by the research loop.
	TypeClaim NodeType = "claim"

	// TypeSource is an external document or citation a claim derives from.
	TypeSource NodeType = "source"

	// TypeEntity is a named thing claims and sources refer to.
	TypeEntity NodeType = "entity"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case TypeClaim, TypeSource, TypeEntity:
		return true
	}
	return false
}

// Node is a single record in the knowledge graph.
//
// Content, Confidence, Embedding and Version change only under the
// StorageManager's exclusive lock. Access metadata (last access time,
// access count) is kept in atomics so read paths can refresh it while
// holding only the shared lock.
type Node struct {
	// ID is the stable unique identifier, unique across the in-memory
	// graph and every persistent backend.
	ID string

	// Type is the record kind. Conflicting types on re-persist keep the
	// resident type.
	Type NodeType

	// Content is the opaque payload (claim text, structured data).
	Content string

	// Confidence is an optional score in [0,1]. Nil means unscored.
	Confidence *float64

	// Embedding is an optional fixed-length vector for similarity search.
	Embedding []float32

	// Version is the producer-assigned monotonic version used for
	// last-write-wins across distributed writers. Zero means untagged.
	Version int64

	// CreatedAt is set on first insert and never changes.
	CreatedAt time.Time

	lastAccessedNs atomic.Int64
	accessCount    atomic.Uint64
}

// NewNode builds a node with its access metadata initialized to now.
func NewNode(id string, typ NodeType, content string, now time.Time) *Node {
	n := &Node{
		ID:        id,
		Type:      typ,
		Content:   content,
		CreatedAt: now,
	}
	n.Touch(now)
	return n
}

// Touch refreshes the access metadata. Safe to call concurrently.
func (n *Node) Touch(now time.Time) {
	n.lastAccessedNs.Store(now.UnixNano())
	n.accessCount.Add(1)
}

// LastAccessed returns the time of the most recent read or write.
func (n *Node) LastAccessed() time.Time {
	ns := n.lastAccessedNs.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// AccessCount returns the monotonically increasing access counter.
func (n *Node) AccessCount() uint64 {
	return n.accessCount.Load()
}

// nodeJSON is the wire form of a Node. The atomics flatten into plain
// fields so nodes survive broker transport and backend rows unchanged.
type nodeJSON struct {
	ID             string    `json:"id"`
	Type           NodeType  `json:"type"`
	Content        string    `json:"content"`
	Confidence     *float64  `json:"confidence,omitempty"`
	Embedding      []float32 `json:"embedding,omitempty"`
	Version        int64     `json:"version,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
	AccessCount    uint64    `json:"access_count"`
}

// MarshalJSON implements json.Marshaler.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		ID:             n.ID,
		Type:           n.Type,
		Content:        n.Content,
		Confidence:     n.Confidence,
		Embedding:      n.Embedding,
		Version:        n.Version,
		CreatedAt:      n.CreatedAt,
		LastAccessedAt: n.LastAccessed(),
		AccessCount:    n.AccessCount(),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.ID = w.ID
	n.Type = w.Type
	n.Content = w.Content
	n.Confidence = w.Confidence
	n.Embedding = w.Embedding
	n.Version = w.Version
	n.CreatedAt = w.CreatedAt
	if !w.LastAccessedAt.IsZero() {
		n.lastAccessedNs.Store(w.LastAccessedAt.UnixNano())
	}
	n.accessCount.Store(w.AccessCount)
	return nil
}

// clampConfidence bounds a confidence score to [0,1]. Nil stays nil.
func clampConfidence(c *float64) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return &v
}

// Snapshot returns a detached copy of the node. Callers hold the graph's
// exclusive lock while taking it, so Content, Confidence, Embedding and
// Version are read consistently even with concurrent writers on the same
// id. The copy shares nothing with the original.
func (n *Node) Snapshot() *Node {
	c := &Node{
		ID:        n.ID,
		Type:      n.Type,
		Content:   n.Content,
		Embedding: append([]float32(nil), n.Embedding...),
		Version:   n.Version,
		CreatedAt: n.CreatedAt,
	}
	if n.Confidence != nil {
		v := *n.Confidence
		c.Confidence = &v
	}
	c.lastAccessedNs.Store(n.lastAccessedNs.Load())
	c.accessCount.Store(n.accessCount.Load())
	return c
}

// SetAccess overwrites the access metadata wholesale. Backends use it when
// rehydrating rows; it is not part of the read path.
func (n *Node) SetAccess(last time.Time, count uint64) {
	if last.IsZero() {
		n.lastAccessedNs.Store(0)
	} else {
		n.lastAccessedNs.Store(last.UnixNano())
	}
	n.accessCount.Store(count)
}

// Edge is a directed, labeled relation between two node ids.
type Edge struct {
	SrcID    string `json:"src_id"`
	DstID    string `json:"dst_id"`
	Relation string `json:"relation"`
}
