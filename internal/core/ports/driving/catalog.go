package driving

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// CatalogService enumerates remote collections.
type CatalogService interface {
	// Fetch lists the named collections; every default collection when none are given.
	Fetch(ctx context.Context, collections ...string) *domain.Catalog
}
