package driving

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// DefinitionService maintains field definitions outside a full sync cycle.
type DefinitionService interface {
	// Apply merges corrections into the stored definitions and updates them in place.
	Apply(ctx context.Context, corrections []domain.CorrectionRecord) (*ApplyResult, error)

	// List returns every stored definition ordered by ID.
	List(ctx context.Context) ([]domain.DefinitionRecord, error)
}

// ApplyResult summarises an Apply call.
type ApplyResult struct {
	// Matched is the number of corrections naming a stored field.
	Matched int

	// Updated is the number of rows rewritten.
	Updated int

	// Unknown lists corrected names with no stored record.
	// They are created on the next sync cycle.
	Unknown []string
}
