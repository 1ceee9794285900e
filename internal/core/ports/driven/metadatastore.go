package driven

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// MetadataStore is the relational store of fields, reports and their links.
// A store is owned by one reconciliation pass at a time; callers serialise.
type MetadataStore interface {
	// Create establishes the fields, reports and bridge tables.
	// Not idempotent: fails if the tables exist. Call Drop first.
	Create(ctx context.Context) error

	// Drop removes every metadata table if present.
	Drop(ctx context.Context) error

	// Insert writes reports and fields, then derives bridge rows by joining the
	// staged name pairs against both tables. Row failures are reported per table
	// in the returned report; the error is reserved for failures that leave the
	// store unusable.
	Insert(ctx context.Context, reports []domain.ReportRecord, fields []domain.DefinitionRecord,
		bridge []domain.BridgeRow) (*domain.InsertReport, error)

	// Check returns the row count of each table.
	Check(ctx context.Context) (*domain.TableCounts, error)

	// Definitions returns every persisted definition record ordered by ID.
	// Returns an empty slice when the schema does not exist yet.
	Definitions(ctx context.Context) ([]domain.DefinitionRecord, error)

	// UpdateDefinitions rewrites the given records in place by ID and
	// returns the number of rows changed.
	UpdateDefinitions(ctx context.Context, records []domain.DefinitionRecord) (int, error)
}
