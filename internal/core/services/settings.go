package services

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	KeyServerURL         = "server.url"
	KeyServerSite        = "server.site"
	KeyAPIVersion        = "server.api_version"
	KeyTokenName         = "server.token_name"
	KeyTokenSecret       = "server.token_secret"
	KeyPublishProjectID  = "server.publish_project_id"
	KeyRequestsPerSecond = "server.requests_per_second"
	KeyPageSize          = "server.page_size"
	KeyWorkers           = "sync.workers"
	KeyDefaultProject    = "sync.default_project"
	KeyDataDir           = "paths.data_dir"
	KeyWorkbooksDir      = "paths.workbooks_dir"
	KeySnapshotFile      = "paths.snapshot_file"
	KeyDatabaseFile      = "paths.database_file"
	KeyCorrectionsFile   = "paths.corrections_file"
	KeyQueriesDir        = "paths.queries_dir"
)

// EnvTokenSecret overrides server.token_secret when set.
//
//nolint:gosec // G101: environment variable name, not a credential.
const EnvTokenSecret = "BISYNC_TOKEN_SECRET"

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
)

var keyKinds = map[string]keyKind{
	KeyServerURL:         kindString,
	KeyServerSite:        kindString,
	KeyAPIVersion:        kindString,
	KeyTokenName:         kindString,
	KeyTokenSecret:       kindString,
	KeyPublishProjectID:  kindString,
	KeyRequestsPerSecond: kindFloat,
	KeyPageSize:          kindInt,
	KeyWorkers:           kindInt,
	KeyDefaultProject:    kindString,
	KeyDataDir:           kindString,
	KeyWorkbooksDir:      kindString,
	KeySnapshotFile:      kindString,
	KeyDatabaseFile:      kindString,
	KeyCorrectionsFile:   kindString,
	KeyQueriesDir:        kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	dataDir     string
	getenv      func(string) string
}

// NewSettingsService creates a new settings service. dataDir is the
// default root for local state when paths.data_dir is not configured.
func NewSettingsService(configStore driven.ConfigStore, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		dataDir:     dataDir,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings with defaults applied.
// Paths that are not configured are derived from the data directory.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	dataDir := s.getPath(KeyDataDir, s.dataDir)
	defaults := domain.DefaultAppSettings(dataDir)

	settings := &domain.AppSettings{
		Server: domain.ServerSettings{
			URL:               strings.TrimRight(s.getString(KeyServerURL, ""), "/"),
			Site:              s.getString(KeyServerSite, ""),
			APIVersion:        s.getString(KeyAPIVersion, defaults.Server.APIVersion),
			TokenName:         s.getString(KeyTokenName, ""),
			TokenSecret:       s.getString(KeyTokenSecret, s.getenv(EnvTokenSecret)),
			PublishProjectID:  s.getString(KeyPublishProjectID, ""),
			RequestsPerSecond: s.getFloat(KeyRequestsPerSecond, defaults.Server.RequestsPerSecond),
			PageSize:          s.getInt(KeyPageSize, defaults.Server.PageSize),
		},
		Sync: domain.SyncSettings{
			Workers:        s.getInt(KeyWorkers, defaults.Sync.Workers),
			DefaultProject: s.getString(KeyDefaultProject, defaults.Sync.DefaultProject),
		},
		Paths: domain.PathSettings{
			DataDir:         dataDir,
			WorkbooksDir:    s.getPath(KeyWorkbooksDir, defaults.Paths.WorkbooksDir),
			SnapshotFile:    s.getPath(KeySnapshotFile, defaults.Paths.SnapshotFile),
			DatabaseFile:    s.getPath(KeyDatabaseFile, defaults.Paths.DatabaseFile),
			CorrectionsFile: s.getPath(KeyCorrectionsFile, defaults.Paths.CorrectionsFile),
			QueriesDir:      s.getPath(KeyQueriesDir, defaults.Paths.QueriesDir),
		},
	}

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Set stores a single setting, converting the value to the key's type.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}

	var typed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("%w: %s must be a positive number", domain.ErrInvalidInput, key)
		}
		typed = f
	default:
		typed = value
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every recognised config key in sorted order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings(s.dataDir)
}

// Unset removes a stored setting so its default applies again.
func (s *SettingsService) Unset(key string) error {
	if _, ok := keyKinds[key]; !ok {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// Helper methods for reading config with defaults. Values of the wrong
// type fall back to the default.

func (s *SettingsService) getString(key, defaultVal string) string {
	val, _ := s.configStore.Get(key)
	if str, ok := val.(string); ok && str != "" {
		return str
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	// TOML integers decode as int64
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultVal
	}
}

// getFloat widens integers, since TOML reads "3" as an integer.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

// getPath expands a leading ~ in configured paths.
func (s *SettingsService) getPath(key, defaultVal string) string {
	val := s.getString(key, defaultVal)
	if rest, ok := strings.CutPrefix(val, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return val
}
