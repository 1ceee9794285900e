package driven

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// SnapshotStore persists the sync snapshot between runs.
type SnapshotStore interface {
	// Load returns the last saved snapshot.
	// Returns domain.ErrNotFound when no snapshot has ever been saved.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Save replaces the stored snapshot wholesale.
	// Implementations must not leave a partially written snapshot behind.
	Save(ctx context.Context, snapshot *domain.Snapshot) error
}
