// Package rdf provides the triple-store backend: a SQLite table of
// (subject, predicate, object) records mirroring the same node attributes
// and relations the relational backend holds as rows.
package rdf

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ravenoak/autoresearch-sub001/pkg/kg"
	"github.com/ravenoak/autoresearch-sub001/pkg/storage"
)

// Attribute predicates mirrored per node. Edge relations are used as
// predicates verbatim.
const (
	PredicateType       = "type"
	PredicateConfidence = "confidence"
)

// Backend implements storage.Backend as a triple store.
type Backend struct {
	db *sql.DB
}

// NewBackend opens (or creates) the triple database at dbPath.
// Use ":memory:" for ephemeral mode; the schema is recreated fresh.
func NewBackend(dbPath string) (*Backend, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	b := &Backend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return b, nil
}

func (b *Backend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS triples (
		subject TEXT NOT NULL,
		predicate TEXT NOT NULL,
		object TEXT NOT NULL,
		PRIMARY KEY (subject, predicate, object)
	);

	CREATE INDEX IF NOT EXISTS idx_triples_subject ON triples(subject);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Name identifies the backend in logs and errors.
func (b *Backend) Name() string {
	return "rdf"
}

// Write mirrors the node and its edges as triples. Attribute predicates
// are replace-on-write (one object per subject+predicate); edge triples
// are insert-or-ignore so the store keeps relation history.
func (b *Backend) Write(ctx context.Context, node *kg.Node, edges []kg.Edge) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceAttribute(ctx, tx, node.ID, PredicateType, string(node.Type)); err != nil {
		return err
	}
	if node.Confidence != nil {
		conf := strconv.FormatFloat(*node.Confidence, 'f', -1, 64)
		if err := replaceAttribute(ctx, tx, node.ID, PredicateConfidence, conf); err != nil {
			return err
		}
	}

	for _, e := range edges {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO triples (subject, predicate, object) VALUES (?, ?, ?)`,
			e.SrcID, e.Relation, e.DstID,
		)
		if err != nil {
			return fmt.Errorf("inserting edge triple (%s, %s, %s): %w", e.SrcID, e.Relation, e.DstID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func replaceAttribute(ctx context.Context, tx *sql.Tx, subject, predicate, object string) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM triples WHERE subject = ? AND predicate = ?`, subject, predicate,
	)
	if err != nil {
		return fmt.Errorf("clearing attribute triple (%s, %s): %w", subject, predicate, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO triples (subject, predicate, object) VALUES (?, ?, ?)`,
		subject, predicate, object,
	)
	if err != nil {
		return fmt.Errorf("inserting attribute triple (%s, %s, %s): %w", subject, predicate, object, err)
	}
	return nil
}

// QueryNode reconstructs the id, type and confidence a subject's triples
// describe. Content lives in the relational backend; the coordinator only
// consults the triple store when relational backends are unreachable.
func (b *Backend) QueryNode(ctx context.Context, id string) (*kg.Node, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT predicate, object FROM triples WHERE subject = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying triples for %s: %w", id, err)
	}
	defer rows.Close()

	node := &kg.Node{ID: id}
	found := false
	for rows.Next() {
		var predicate, object string
		if err := rows.Scan(&predicate, &object); err != nil {
			return nil, fmt.Errorf("scanning triple: %w", err)
		}
		switch predicate {
		case PredicateType:
			node.Type = kg.NodeType(object)
			found = true
		case PredicateConfidence:
			if conf, err := strconv.ParseFloat(object, 64); err == nil {
				node.Confidence = &conf
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.NotFoundError{ID: id}
	}
	return node, nil
}

// QueryObjects returns the objects of every triple with the given subject
// and predicate, e.g. the targets of a relation.
func (b *Backend) QueryObjects(ctx context.Context, subject, predicate string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT object FROM triples WHERE subject = ? AND predicate = ?`, subject, predicate,
	)
	if err != nil {
		return nil, fmt.Errorf("querying objects for (%s, %s): %w", subject, predicate, err)
	}
	defer rows.Close()

	var objects []string
	for rows.Next() {
		var obj string
		if err := rows.Scan(&obj); err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		objects = append(objects, obj)
	}
	return objects, rows.Err()
}

// CountTriples returns the triple row count.
func (b *Backend) CountTriples(ctx context.Context) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triples`).Scan(&n)
	return n, err
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}
