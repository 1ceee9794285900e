package domain

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// Default setting values.
const (
	// DefaultWorkers is the transfer worker count W.
	DefaultWorkers = 8

	// DefaultPageSize is the number of items requested per catalog page.
	DefaultPageSize = 100

	// DefaultRequestsPerSecond is the proactive request rate against the server.
	DefaultRequestsPerSecond = 5.0

	// DefaultAPIVersion is the REST API version path segment.
	DefaultAPIVersion = "3.19"

	// DefaultProject labels reports whose remote project is unknown.
	DefaultProject = "Default"
)

// ServerSettings holds content server connection configuration.
type ServerSettings struct {
	// URL is the server base URL (e.g. https://bi.example.com).
	URL string

	// Site is the site content URL; empty for the default site.
	Site string

	// APIVersion is the REST API version.
	APIVersion string

	// TokenName is the personal access token name.
	TokenName string

	// TokenSecret is the personal access token secret.
	TokenSecret string

	// PublishProjectID is the project uploads are published into.
	PublishProjectID string

	// RequestsPerSecond throttles outgoing requests.
	RequestsPerSecond float64

	// PageSize is the catalog page size.
	PageSize int
}

// IsConfigured returns true if the server can be signed in to.
func (s ServerSettings) IsConfigured() bool {
	return s.URL != "" && s.TokenName != "" && s.TokenSecret != ""
}

// SyncSettings holds transfer and pipeline behaviour.
type SyncSettings struct {
	// Workers is the bounded transfer width W.
	Workers int

	// DefaultProject labels reports without a remote project.
	DefaultProject string
}

// PathSettings holds local file locations.
type PathSettings struct {
	// DataDir is the root for local state.
	DataDir string

	// WorkbooksDir holds downloaded workbooks, one directory per asset.
	WorkbooksDir string

	// SnapshotFile is the persisted sync snapshot.
	SnapshotFile string

	// DatabaseFile is the SQLite metadata database.
	DatabaseFile string

	// CorrectionsFile is the human-edited correction CSV; optional.
	CorrectionsFile string

	// QueriesDir receives recovered queries as .sql files; optional.
	QueriesDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Server holds content server settings.
	Server ServerSettings

	// Sync holds pipeline settings.
	Sync SyncSettings

	// Paths holds local file locations.
	Paths PathSettings
}

// DefaultAppSettings returns settings with sensible defaults rooted at dataDir.
// Server credentials are left unconfigured.
func DefaultAppSettings(dataDir string) AppSettings {
	return AppSettings{
		Server: ServerSettings{
			APIVersion:        DefaultAPIVersion,
			RequestsPerSecond: DefaultRequestsPerSecond,
			PageSize:          DefaultPageSize,
		},
		Sync: SyncSettings{
			Workers:        DefaultWorkers,
			DefaultProject: DefaultProject,
		},
		Paths: PathSettings{
			DataDir:      dataDir,
			WorkbooksDir: filepath.Join(dataDir, "workbooks"),
			SnapshotFile: filepath.Join(dataDir, "snapshot.toml"),
			DatabaseFile: filepath.Join(dataDir, "metadata.db"),
			QueriesDir:   filepath.Join(dataDir, "queries"),
		},
	}
}

// Validate checks the settings for values the pipeline cannot run with.
func (s AppSettings) Validate() error {
	if s.Sync.Workers < 1 {
		return fmt.Errorf("%w: sync.workers must be at least 1, got %d", ErrInvalidInput, s.Sync.Workers)
	}
	if s.Server.PageSize < 1 {
		return fmt.Errorf("%w: server.page_size must be at least 1, got %d", ErrInvalidInput, s.Server.PageSize)
	}
	if s.Server.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: server.requests_per_second must be positive", ErrInvalidInput)
	}
	if s.Server.URL != "" {
		u, err := url.Parse(s.Server.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: server.url %q is not an absolute URL", ErrInvalidInput, s.Server.URL)
		}
	}
	if s.Paths.DataDir == "" {
		return fmt.Errorf("%w: paths.data_dir is empty", ErrInvalidInput)
	}
	return nil
}
