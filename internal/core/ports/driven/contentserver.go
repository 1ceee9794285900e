package driven

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// ContentServer is the remote BI content server.
// Implementations own authentication, pagination and rate limiting.
type ContentServer interface {
	// List returns every item of a collection with pagination fully drained,
	// plus the total count reported by the server.
	List(ctx context.Context, collection string) ([]domain.CatalogItem, int, error)

	// Connections returns the data-source connections of a workbook or data source.
	Connections(ctx context.Context, collection, id string) ([]domain.Connection, error)

	// Members returns the user names belonging to a group.
	Members(ctx context.Context, groupID string) ([]string, error)

	// Download writes the asset's content into destDir and returns the local path.
	// Errors wrapping domain.ErrConnectionLost abort the surrounding transfer chunk.
	Download(ctx context.Context, id, destDir string) (string, error)

	// Upload publishes a local asset and returns its remote ID.
	Upload(ctx context.Context, path string, mode domain.PublishMode) (string, error)
}
