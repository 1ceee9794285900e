package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure CatalogFetcher implements the interface.
var _ driving.CatalogService = (*CatalogFetcher)(nil)

// CatalogFetcher enumerates remote collections and resolves their
// per-item details (connections, group members).
type CatalogFetcher struct {
	server driven.ContentServer
	now    func() time.Time
}

// NewCatalogFetcher creates a catalog fetcher backed by a content server.
func NewCatalogFetcher(server driven.ContentServer) *CatalogFetcher {
	return &CatalogFetcher{server: server, now: time.Now}
}

// Fetch lists every requested collection. A failing collection is recorded
// in its Err field and never aborts the others. An item whose details cannot
// be resolved keeps its listing data and carries the failure in its own Err.
func (f *CatalogFetcher) Fetch(ctx context.Context, collections ...string) *domain.Catalog {
	if len(collections) == 0 {
		collections = domain.DefaultCollections()
	}

	catalog := domain.NewCatalog(f.now())
	for _, name := range collections {
		col := f.fetchCollection(ctx, name)
		if col.Err != nil {
			logger.Warn("Catalog %s failed: %v", name, col.Err)
		} else {
			logger.Debug("Catalog %s: %d items (server total %d, %d incomplete)", name, len(col.Items), col.Total, col.Failed())
		}
		catalog.Collections[name] = col
	}
	return catalog
}

func (f *CatalogFetcher) fetchCollection(ctx context.Context, name string) *domain.Collection {
	col := &domain.Collection{Name: name}

	if err := ctx.Err(); err != nil {
		col.Err = err
		return col
	}

	items, total, err := f.server.List(ctx, name)
	if err != nil {
		col.Err = fmt.Errorf("list: %w", err)
		return col
	}
	col.Items = items
	col.Total = total

	switch name {
	case domain.CollectionWorkbooks, domain.CollectionDatasources:
		for i := range col.Items {
			item := &col.Items[i]
			conns, err := f.server.Connections(ctx, name, item.ID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					col.Err = ctxErr
					return col
				}
				item.Err = fmt.Errorf("connections: %w", err)
				logger.Warn("Connections of %s %s: %v", name, item.ID, err)
				continue
			}
			item.Connections = conns
		}
	case domain.CollectionGroups:
		for i := range col.Items {
			item := &col.Items[i]
			members, err := f.server.Members(ctx, item.ID)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					col.Err = ctxErr
					return col
				}
				item.Err = fmt.Errorf("members: %w", err)
				logger.Warn("Members of group %s: %v", item.ID, err)
				continue
			}
			item.Members = members
		}
	}
	return col
}
