package tableau

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// endpoint maps a collection to its list endpoint.
type endpoint struct {
	path         string
	singular     string
	serverScoped bool
}

var endpoints = map[string]endpoint{
	domain.CollectionWorkbooks:     {path: "workbooks", singular: "workbook"},
	domain.CollectionDatasources:   {path: "datasources", singular: "datasource"},
	domain.CollectionGroups:        {path: "groups", singular: "group"},
	domain.CollectionProjects:      {path: "projects", singular: "project"},
	domain.CollectionUsers:         {path: "users", singular: "user"},
	domain.CollectionSubscriptions: {path: "subscriptions", singular: "subscription"},
	domain.CollectionSchedules:     {path: "schedules", singular: "schedule", serverScoped: true},
}

type projectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// itemJSON covers the fields shared by every listed object.
type itemJSON struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Subject   string      `json:"subject"`
	UpdatedAt string      `json:"updatedAt"`
	Project   *projectRef `json:"project"`
}

func (i itemJSON) toDomain() domain.CatalogItem {
	item := domain.CatalogItem{ID: i.ID, Name: i.Name}
	if item.Name == "" {
		item.Name = i.Subject
	}
	if i.Project != nil {
		item.Project = i.Project.Name
	}
	if i.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, i.UpdatedAt); err == nil {
			item.UpdatedAt = t
		}
	}
	return item
}

type connectionJSON struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	ServerAddress string `json:"serverAddress"`
	UserName      string `json:"userName"`
	Datasource    struct {
		Name string `json:"name"`
	} `json:"datasource"`
}

type userJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// List returns every item of a collection with pagination drained.
func (c *Client) List(ctx context.Context, collection string) ([]domain.CatalogItem, int, error) {
	ep, ok := endpoints[collection]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrUnknownCollection, collection)
	}

	raw, total, err := drain[itemJSON](ctx, c, call{
		op:           "list " + collection,
		path:         ep.path,
		serverScoped: ep.serverScoped,
	}, ep.path, ep.singular)
	if err != nil {
		return nil, 0, err
	}

	items := make([]domain.CatalogItem, 0, len(raw))
	for _, r := range raw {
		items = append(items, r.toDomain())
	}
	return items, total, nil
}

// Connections returns the connections of a workbook or data source.
func (c *Client) Connections(ctx context.Context, collection, id string) ([]domain.Connection, error) {
	if collection != domain.CollectionWorkbooks && collection != domain.CollectionDatasources {
		return nil, fmt.Errorf("%w: %s has no connections", domain.ErrUnknownCollection, collection)
	}

	var env struct {
		Connections struct {
			Connection []connectionJSON `json:"connection"`
		} `json:"connections"`
	}
	err := c.getJSON(ctx, call{
		op:   "connections " + id,
		path: collection + "/" + url.PathEscape(id) + "/connections",
	}, &env)
	if err != nil {
		return nil, err
	}

	conns := make([]domain.Connection, 0, len(env.Connections.Connection))
	for _, cj := range env.Connections.Connection {
		conns = append(conns, domain.Connection{
			ID:             cj.ID,
			Type:           cj.Type,
			ServerAddress:  cj.ServerAddress,
			Username:       cj.UserName,
			DatasourceName: cj.Datasource.Name,
		})
	}
	return conns, nil
}

// Members returns the user names in a group.
func (c *Client) Members(ctx context.Context, groupID string) ([]string, error) {
	users, _, err := drain[userJSON](ctx, c, call{
		op:   "group users " + groupID,
		path: "groups/" + url.PathEscape(groupID) + "/users",
	}, "users", "user")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Name)
	}
	return names, nil
}
