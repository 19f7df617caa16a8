// Package sqlite provides the SQLite relational backend: nodes, edges,
// embeddings and metadata tables mirroring the in-memory graph.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage"
	"github.com/ravenoak/autoresearch-sub001/pkg/vector"
)

const schemaVersion = "1"

// Backend implements storage.Backend on SQLite.
type Backend struct {
	db *sql.DB
}

// NewBackend opens (or creates) the database at dbPath and runs migration.
// Use ":memory:" for the ephemeral mode used in tests: the schema is
// recreated fresh and nothing survives the session.
func NewBackend(dbPath string) (*Backend, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	b := &Backend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return b, nil
}

// migrate creates the tables if they don't exist.
func (b *Backend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		confidence REAL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		last_accessed_at DATETIME NOT NULL,
		access_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS edges (
		src_id TEXT NOT NULL,
		dst_id TEXT NOT NULL,
		relation TEXT NOT NULL,
		PRIMARY KEY (src_id, dst_id, relation)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(src_id);

	CREATE TABLE IF NOT EXISTS embeddings (
		node_id TEXT PRIMARY KEY,
		vector BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := b.db.Exec(schema); err != nil {
		return err
	}

	_, err := b.db.Exec(
		`INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		schemaVersion,
	)
	return err
}

// Name identifies the backend in logs and errors.
func (b *Backend) Name() string {
	return "sqlite"
}

// Write upserts the node row, its embedding and its edges. Replaying the
// same write leaves one row per table for the id; the later write's fields
// win.
func (b *Backend) Write(ctx context.Context, node *kg.Node, edges []kg.Edge) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var confidence any
	if node.Confidence != nil {
		confidence = *node.Confidence
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO nodes (id, type, content, confidence, version, created_at, last_accessed_at, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			content = excluded.content,
			confidence = excluded.confidence,
			version = excluded.version,
			last_accessed_at = excluded.last_accessed_at,
			access_count = excluded.access_count
	`, node.ID, string(node.Type), node.Content, confidence, node.Version,
		node.CreatedAt.UTC(), node.LastAccessed().UTC(), node.AccessCount())
	if err != nil {
		return fmt.Errorf("upserting node %s: %w", node.ID, err)
	}

	if len(node.Embedding) > 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO embeddings (node_id, vector) VALUES (?, ?)
			ON CONFLICT(node_id) DO UPDATE SET vector = excluded.vector
		`, node.ID, vector.SerializeFloat32(node.Embedding))
		if err != nil {
			return fmt.Errorf("upserting embedding for node %s: %w", node.ID, err)
		}
	}

	for _, e := range edges {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO edges (src_id, dst_id, relation) VALUES (?, ?, ?)`,
			e.SrcID, e.DstID, e.Relation,
		)
		if err != nil {
			return fmt.Errorf("inserting edge %s-[%s]->%s: %w", e.SrcID, e.Relation, e.DstID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// QueryNode retrieves a node row and its embedding by id.
func (b *Backend) QueryNode(ctx context.Context, id string) (*kg.Node, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, type, content, confidence, version, created_at, last_accessed_at, access_count
		FROM nodes WHERE id = ?
	`, id)

	var (
		node        kg.Node
		typ         string
		confidence  sql.NullFloat64
		createdAt   time.Time
		accessedAt  time.Time
		accessCount uint64
	)
	err := row.Scan(&node.ID, &typ, &node.Content, &confidence, &node.Version,
		&createdAt, &accessedAt, &accessCount)
	if err == sql.ErrNoRows {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scanning node %s: %w", id, err)
	}

	node.Type = kg.NodeType(typ)
	node.CreatedAt = createdAt
	node.SetAccess(accessedAt, accessCount)
	if confidence.Valid {
		node.Confidence = &confidence.Float64
	}

	var blob []byte
	err = b.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE node_id = ?`, id,
	).Scan(&blob)
	if err == nil && len(blob) > 0 {
		node.Embedding, err = vector.DeserializeFloat32(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for node %s: %w", id, err)
		}
	} else if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("querying embedding for node %s: %w", id, err)
	}

	return &node, nil
}

// QueryEdges returns all persisted edges originating at src.
func (b *Backend) QueryEdges(ctx context.Context, src string) ([]kg.Edge, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT src_id, dst_id, relation FROM edges WHERE src_id = ?`, src,
	)
	if err != nil {
		return nil, fmt.Errorf("querying edges for %s: %w", src, err)
	}
	defer rows.Close()

	var edges []kg.Edge
	for rows.Next() {
		var e kg.Edge
		if err := rows.Scan(&e.SrcID, &e.DstID, &e.Relation); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// CountNodes returns the node row count.
func (b *Backend) CountNodes(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n)
	return n, err
}

// CountEdges returns the edge row count.
func (b *Backend) CountEdges(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&n)
	return n, err
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}
