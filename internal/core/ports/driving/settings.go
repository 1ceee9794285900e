package driving

import "github.com/custodia-labs/bisync/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Set stores a single setting by its config key (e.g. "sync.workers").
	// The value is converted to the key's type.
	Set(key, value string) error

	// Unset removes a stored setting so its default applies again.
	Unset(key string) error

	// Keys returns every recognised config key in sorted order.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
