package driven

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// CorrectionSource supplies human-authored correction records.
type CorrectionSource interface {
	// Load returns every correction row.
	// Returns domain.ErrNotFound when the source does not exist.
	Load(ctx context.Context) ([]domain.CorrectionRecord, error)
}
