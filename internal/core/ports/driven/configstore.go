package driven

// ConfigStore persists settings under flat dot-separated keys such as
// "server.url". Values are stored as given; interpreting them is up to the caller.
type ConfigStore interface {
	// Get returns the raw value of key and whether it is set.
	Get(key string) (any, bool)

	// Set stores a value and persists it immediately.
	Set(key string, value any) error

	// Unset removes a key and persists the change.
	Unset(key string) error

	// Keys returns every stored key in sorted order.
	Keys() []string

	// Path returns where the settings are kept.
	Path() string
}
