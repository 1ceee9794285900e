package tableau

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// Config holds the connection settings for a Tableau Server site.
type Config struct {
	// URL is the server base URL.
	URL string

	// Site is the site content URL; empty for the default site.
	Site string

	// APIVersion is the REST API version, e.g. "3.19".
	APIVersion string

	TokenName   string
	TokenSecret string

	// PublishProjectID is the project that uploads are published into.
	PublishProjectID string

	RequestsPerSecond float64
	PageSize          int

	// HTTPClient overrides the underlying client. Its Transport is wrapped,
	// never replaced.
	HTTPClient *http.Client
}

// ConfigFromSettings maps server settings to a client config.
func ConfigFromSettings(s domain.ServerSettings) Config {
	return Config{
		URL:               s.URL,
		Site:              s.Site,
		APIVersion:        s.APIVersion,
		TokenName:         s.TokenName,
		TokenSecret:       s.TokenSecret,
		PublishProjectID:  s.PublishProjectID,
		RequestsPerSecond: s.RequestsPerSecond,
		PageSize:          s.PageSize,
	}
}

func (c Config) withDefaults() Config {
	c.URL = strings.TrimRight(c.URL, "/")
	if c.APIVersion == "" {
		c.APIVersion = domain.DefaultAPIVersion
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = domain.DefaultRequestsPerSecond
	}
	if c.PageSize < 1 {
		c.PageSize = domain.DefaultPageSize
	}
	return c
}

// Validate checks that the config can be used to sign in.
func (c Config) Validate() error {
	if c.URL == "" || c.TokenName == "" || c.TokenSecret == "" {
		return fmt.Errorf("%w: server url, token name and token secret are required", domain.ErrNotConfigured)
	}
	u, err := url.Parse(c.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: server url %q", domain.ErrInvalidInput, c.URL)
	}
	return nil
}

// apiBase returns <url>/api/<version>.
func (c Config) apiBase() string {
	return c.URL + "/api/" + c.APIVersion
}
