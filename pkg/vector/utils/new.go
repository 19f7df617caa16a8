// Package vectorutils constructs vector drivers from configuration.
package vectorutils

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ravenoak/autoresearch-sub001/pkg/vector"
	"github.com/ravenoak/autoresearch-sub001/pkg/vector/qdrant"
	"github.com/ravenoak/autoresearch-sub001/pkg/vector/sqlitevec"
)

// NewVectorDriverOpts selects and configures a vector driver provider.
type NewVectorDriverOpts struct {
	ProviderType string
	Path         string
	Host         string
	Port         int
	Collection   string
	Dimensions   uint
	Logger       *zap.Logger
}

// NewVectorDriver builds the configured vector driver. Provider "none"
// (or empty) returns nil: the store runs with vector search unavailable.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "", "none":
		return nil, nil
	case "sqlitevec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.Path,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:       o.Host,
			Port:       o.Port,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
