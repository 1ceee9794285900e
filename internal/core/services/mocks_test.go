package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// --- Shared mock implementations for service tests ---

// mockServer implements driven.ContentServer.
type mockServer struct {
	mu sync.Mutex

	items       map[string][]domain.CatalogItem
	listErr     map[string]error
	itemErr     map[string]error
	members     map[string][]string
	downloadErr map[string]error
	uploadErr   map[string]error

	downloads []string
	uploads   []string
	modes     []domain.PublishMode
}

func newMockServer() *mockServer {
	return &mockServer{
		items:       make(map[string][]domain.CatalogItem),
		listErr:     make(map[string]error),
		itemErr:     make(map[string]error),
		members:     make(map[string][]string),
		downloadErr: make(map[string]error),
		uploadErr:   make(map[string]error),
	}
}

// setWorkbooks replaces the workbook listing.
func (m *mockServer) setWorkbooks(items ...domain.CatalogItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[domain.CollectionWorkbooks] = items
}

func (m *mockServer) List(_ context.Context, collection string) ([]domain.CatalogItem, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.listErr[collection]; err != nil {
		return nil, 0, err
	}
	items := append([]domain.CatalogItem(nil), m.items[collection]...)
	return items, len(items), nil
}

func (m *mockServer) Connections(_ context.Context, _, id string) ([]domain.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.itemErr[id]; err != nil {
		return nil, err
	}
	return []domain.Connection{{ID: "c-" + id, Type: "oracle"}}, nil
}

func (m *mockServer) Members(_ context.Context, groupID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.itemErr[groupID]; err != nil {
		return nil, err
	}
	return m.members[groupID], nil
}

func (m *mockServer) Download(_ context.Context, id, destDir string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, id)
	if err := m.downloadErr[id]; err != nil {
		return "", err
	}
	return filepath.Join(destDir, id+".twb"), nil
}

func (m *mockServer) Upload(_ context.Context, path string, mode domain.PublishMode) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, path)
	m.modes = append(m.modes, mode)
	if err := m.uploadErr[path]; err != nil {
		return "", err
	}
	return "remote-" + filepath.Base(path), nil
}

func (m *mockServer) downloaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.downloads...)
	sort.Strings(out)
	return out
}

func (m *mockServer) resetDownloads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = nil
}

// mockParser implements driven.DocumentParser keyed by file path.
type mockParser struct {
	docs map[string]*domain.ParsedDocument
	errs map[string]error
}

func newMockParser() *mockParser {
	return &mockParser{
		docs: make(map[string]*domain.ParsedDocument),
		errs: make(map[string]error),
	}
}

func (m *mockParser) Parse(_ context.Context, path string) (*domain.ParsedDocument, error) {
	if err := m.errs[path]; err != nil {
		return nil, err
	}
	if doc, ok := m.docs[path]; ok {
		return doc, nil
	}
	return &domain.ParsedDocument{Path: path}, nil
}

// mockCache implements driven.AssetCache under a fixed root.
type mockCache struct {
	mu      sync.Mutex
	root    string
	present map[string]string
}

func newMockCache(root string) *mockCache {
	return &mockCache{root: root, present: make(map[string]string)}
}

func (m *mockCache) Dir(id string) string {
	return filepath.Join(m.root, id)
}

func (m *mockCache) Lookup(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.present[id]
	return p, ok
}

func (m *mockCache) IDs() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.present))
	for id := range m.present {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *mockCache) put(id, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.present[id] = path
}

func (m *mockCache) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.present, id)
}

// cachingServer records downloads into the cache, like the file adapter does.
type cachingServer struct {
	*mockServer
	cache *mockCache
}

func (c *cachingServer) Download(ctx context.Context, id, destDir string) (string, error) {
	path, err := c.mockServer.Download(ctx, id, destDir)
	if err == nil {
		c.cache.put(id, path)
	}
	return path, err
}

// mockCorrections implements driven.CorrectionSource.
type mockCorrections struct {
	records []domain.CorrectionRecord
	err     error
}

func (m *mockCorrections) Load(_ context.Context) ([]domain.CorrectionRecord, error) {
	return m.records, m.err
}

// mockArchive implements driven.QueryArchive.
type mockArchive struct {
	mu      sync.Mutex
	written map[string]string
	err     error
}

func newMockArchive() *mockArchive {
	return &mockArchive{written: make(map[string]string)}
}

func (m *mockArchive) Write(_ context.Context, name, query string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.written[name] = query
	return name + ".sql", nil
}

// mockRewriter implements driven.DocumentRewriter. Each edit is tried on
// sampleQuery and the outcome recorded in edited.
type mockRewriter struct {
	counts map[string]int
	err    error
	edited []string
}

const sampleQuery = "SELECT a FROM t"

func (m *mockRewriter) Edit(_ context.Context, path string, edit domain.QueryEdit, outDir string) (string, int, error) {
	if m.err != nil {
		return "", 0, m.err
	}
	n := m.counts[path]
	if n == 0 {
		return "", 0, nil
	}
	q, _ := edit(sampleQuery)
	m.edited = append(m.edited, q)
	return filepath.Join(outDir, filepath.Base(path)), n, nil
}

// workbook builds a catalog item for tests.
func workbook(id, name string, updated time.Time) domain.CatalogItem {
	return domain.CatalogItem{ID: id, Name: name, Project: "Finance", UpdatedAt: updated}
}

// docWith builds a parsed document with one data source.
func docWith(query string, fields ...domain.RawField) *domain.ParsedDocument {
	ds := domain.Datasource{Name: "ds", Fields: fields}
	if query != "" {
		ds.CustomQueries = []string{query}
	}
	return &domain.ParsedDocument{Datasources: []domain.Datasource{ds}}
}

var errConnLost = fmt.Errorf("socket closed: %w", domain.ErrConnectionLost)

var errBoom = errors.New("boom")
