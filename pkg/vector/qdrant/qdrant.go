// Package qdrant provides a vector driver backed by a remote Qdrant
// instance, for deployments where embeddings outgrow a local SQLite file.
package qdrant

import (
	"context"
	"fmt"

	qd "github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/vector"
)

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host and Port locate the Qdrant gRPC endpoint.
	Host string
	Port int

	// Collection is the collection name to store node embeddings in.
	Collection string

	// Dimensions is the embedding vector length. Required when the
	// collection does not exist yet.
	Dimensions uint
}

// Driver implements vector.Driver against Qdrant.
type Driver struct {
	client     *qd.Client
	collection string
	logger     *zap.Logger
}

// NewDriver connects to Qdrant and ensures the collection exists.
func NewDriver(ctx context.Context, c Config, logger *zap.Logger) (*Driver, error) {
	if c.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	client, err := qd.NewClient(&qd.Config{
		Host: c.Host,
		Port: c.Port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, c.Collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}

	if !exists {
		if c.Dimensions == 0 {
			client.Close()
			return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0 when creating collection %s", c.Collection)
		}
		err = client.CreateCollection(ctx, &qd.CreateCollection{
			CollectionName: c.Collection,
			VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
				Size:     uint64(c.Dimensions),
				Distance: qd.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %s: %w", c.Collection, err)
		}
	}

	logger.Info("qdrant vector driver initialized",
		zap.String("host", c.Host),
		zap.Int("port", c.Port),
		zap.String("collection", c.Collection),
	)

	return &Driver{client: client, collection: c.Collection, logger: logger}, nil
}

// Add upserts documents; Qdrant upserts replace points with the same id.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qd.PointStruct, 0, len(docs))
	for _, doc := range docs {
		points = append(points, &qd.PointStruct{
			Id:      qd.NewID(doc.ID),
			Vectors: qd.NewVectors(doc.Embedding...),
		})
	}

	_, err := d.client.Upsert(ctx, &qd.UpsertPoints{
		CollectionName: d.collection,
		Points:         points,
		Wait:           qd.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("added documents to qdrant", zap.Int("count", len(docs)))
	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qd.QueryPoints{
		CollectionName: d.collection,
		Query:          qd.NewQuery(embedding...),
		Limit:          qd.PtrOf(uint64(topK)),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		results = append(results, vector.QueryResult{
			Document: vector.Document{ID: p.GetId().GetUuid()},
			Score:    p.GetScore(),
		})
	}
	return results, nil
}

// Get retrieves documents by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pointIDs := make([]*qd.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qd.NewID(id))
	}

	points, err := d.client.Get(ctx, &qd.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs,
		WithVectors:    qd.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving points: %w", err)
	}

	docs := make([]vector.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, vector.Document{
			ID:        p.GetId().GetUuid(),
			Embedding: p.GetVectors().GetVector().GetData(),
		})
	}
	return docs, nil
}

// Delete removes documents by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qd.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qd.NewID(id))
	}

	_, err := d.client.Delete(ctx, &qd.DeletePoints{
		CollectionName: d.collection,
		Points:         qd.NewPointsSelector(pointIDs...),
		Wait:           qd.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	d.logger.Debug("deleted documents from qdrant", zap.Int("count", len(ids)))
	return nil
}

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}
