package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Well-known collection names on the content server.
const (
	CollectionWorkbooks     = "workbooks"
	CollectionDatasources   = "datasources"
	CollectionGroups        = "groups"
	CollectionProjects      = "projects"
	CollectionUsers         = "users"
	CollectionSubscriptions = "subscriptions"
	CollectionSchedules     = "schedules"
)

// DefaultCollections lists every collection fetched by a full catalog pass.
func DefaultCollections() []string {
	return []string{
		CollectionWorkbooks,
		CollectionDatasources,
		CollectionGroups,
		CollectionProjects,
		CollectionUsers,
		CollectionSubscriptions,
		CollectionSchedules,
	}
}

// Connection describes a data-source connection attached to a remote item.
type Connection struct {
	// ID is the server identifier of the connection.
	ID string

	// Type is the connection class (e.g. "oracle", "sqlserver").
	Type string

	// ServerAddress is the database host the connection points at.
	ServerAddress string

	// Username is the account the connection authenticates as.
	Username string

	// DatasourceName is the name of the published or embedded data source.
	DatasourceName string
}

// CatalogItem is one object returned by a collection listing.
type CatalogItem struct {
	// ID is the opaque server identifier.
	ID string

	// Name is the display name.
	Name string

	// Project is the grouping label the item lives under, if any.
	Project string

	// UpdatedAt is the server-reported last modification time.
	UpdatedAt time.Time

	// Connections is populated for workbooks and data sources.
	Connections []Connection

	// Members is populated for groups (user names).
	Members []string

	// Err is set when the item was listed but its connections or members
	// could not be resolved. The item itself is still valid.
	Err error
}

// Collection is the fully drained listing of one collection.
type Collection struct {
	// Name is the collection name (e.g. "workbooks").
	Name string

	// Items are every object in the collection.
	Items []CatalogItem

	// Total is the count reported by the server's pagination envelope.
	Total int

	// Err is set when the collection could not be listed.
	// Items may be partial in that case and should not be trusted.
	Err error
}

// ItemErr joins the detail errors of individual items.
func (c *Collection) ItemErr() error {
	var errs []error
	for _, item := range c.Items {
		if item.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.ID, item.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed counts the items whose details could not be resolved.
func (c *Collection) Failed() int {
	n := 0
	for _, item := range c.Items {
		if item.Err != nil {
			n++
		}
	}
	return n
}

// Catalog maps collection names to their listings.
// Built by the catalog fetcher once per sync cycle.
type Catalog struct {
	Collections map[string]*Collection

	// FetchedAt is when the catalog pass started.
	FetchedAt time.Time
}

// NewCatalog creates an empty catalog.
func NewCatalog(fetchedAt time.Time) *Catalog {
	return &Catalog{
		Collections: make(map[string]*Collection),
		FetchedAt:   fetchedAt,
	}
}

// Get returns the named collection, or nil if it was never fetched.
func (c *Catalog) Get(name string) *Collection {
	if c == nil {
		return nil
	}
	return c.Collections[name]
}

// Names returns the fetched collection names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Collections))
	for name := range c.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err joins the errors of every failed collection and item.
// Returns nil when the catalog is complete.
func (c *Catalog) Err() error {
	var errs []error
	for _, name := range c.Names() {
		col := c.Collections[name]
		if col.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, col.Err))
		}
		if err := col.ItemErr(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Assets converts the workbook collection into remote assets.
// Returns ErrNotFound if workbooks were not fetched, or the collection's
// error if the listing failed. Item detail errors do not prevent conversion.
func (c *Catalog) Assets() ([]RemoteAsset, error) {
	col := c.Get(CollectionWorkbooks)
	if col == nil {
		return nil, fmt.Errorf("%s collection: %w", CollectionWorkbooks, ErrNotFound)
	}
	if col.Err != nil {
		return nil, fmt.Errorf("%s collection: %w", CollectionWorkbooks, col.Err)
	}

	assets := make([]RemoteAsset, 0, len(col.Items))
	for _, item := range col.Items {
		assets = append(assets, RemoteAsset{
			ID:          item.ID,
			Name:        item.Name,
			Project:     item.Project,
			UpdatedAt:   item.UpdatedAt,
			Connections: item.Connections,
		})
	}
	return assets, nil
}

// RemoteAsset is an immutable view of a workbook on the server at fetch time.
type RemoteAsset struct {
	// ID is the opaque server identifier.
	ID string

	// Name is the display name.
	Name string

	// Project is the grouping label.
	Project string

	// UpdatedAt is the last modification time reported by the server.
	UpdatedAt time.Time

	// Connections are the attached data-source connections.
	Connections []Connection

	// Query is the raw custom query, once recovered from the downloaded document.
	Query string
}

// AssetIndex indexes assets by ID.
func AssetIndex(assets []RemoteAsset) map[string]RemoteAsset {
	idx := make(map[string]RemoteAsset, len(assets))
	for _, a := range assets {
		idx[a.ID] = a
	}
	return idx
}
