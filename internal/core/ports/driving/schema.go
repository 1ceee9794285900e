package driving

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// SchemaService administers the metadata tables.
type SchemaService interface {
	// Create establishes the tables. Fails if they already exist.
	Create(ctx context.Context) error

	// Drop removes the tables if present.
	Drop(ctx context.Context) error

	// Check returns the row count of each table.
	// Returns domain.ErrSchemaMissing when the tables do not exist.
	Check(ctx context.Context) (*domain.TableCounts, error)
}
