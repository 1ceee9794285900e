package tableau

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// MaxRetries is the maximum number of retries for throttled or failed requests.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// HeaderAuth carries the credentials token.
	HeaderAuth = "X-Tableau-Auth"

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"
)

// Ensure Client implements the interface.
var _ driven.ContentServer = (*Client)(nil)

// Client talks to one Tableau Server site.
type Client struct {
	cfg        Config
	raw        *http.Client
	http       *http.Client
	limiter    *rate.Limiter
	session    *session
	retryDelay time.Duration
}

// NewClient creates a client. Sign-in happens lazily on the first request.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	raw := cfg.HTTPClient
	if raw == nil {
		raw = &http.Client{Timeout: DefaultTimeout}
	}
	base := raw.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	c := &Client{
		cfg:        cfg,
		raw:        raw,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retryDelay: RetryDelay,
	}
	c.session = newSession(c)
	c.http = &http.Client{
		Timeout:   raw.Timeout,
		Transport: &authTransport{session: c.session, base: base},
	}
	return c, nil
}

// SiteID returns the signed-in site ID, signing in if needed.
func (c *Client) SiteID() (string, error) {
	return c.session.site()
}

// Close signs out of the server.
func (c *Client) Close(ctx context.Context) error {
	return c.session.signOut(ctx)
}

// call describes one API request. Path is relative to the site unless
// serverScoped is set. Body is rebuilt for every attempt.
type call struct {
	op           string
	method       string
	path         string
	query        url.Values
	serverScoped bool
	body         func() (io.Reader, string, error)
}

func (c *Client) url(cl call) (string, error) {
	u := c.cfg.apiBase()
	if !cl.serverScoped {
		site, err := c.session.site()
		if err != nil {
			return "", err
		}
		u += "/sites/" + url.PathEscape(site)
	}
	u += "/" + strings.TrimLeft(cl.path, "/")
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}
	return u, nil
}

// do sends the request, retrying throttled calls, 5xx reads and one
// rejected credentials token. The caller owns the returned body.
func (c *Client) do(ctx context.Context, cl call) (*http.Response, error) {
	if cl.method == "" {
		cl.method = http.MethodGet
	}

	var lastErr error
	var wait time.Duration
	reauthed := false
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if wait > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w", cl.op, ctx.Err())
			case <-time.After(wait):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit wait: %w", cl.op, err)
		}

		req, err := c.newRequest(ctx, cl)
		if err != nil {
			return nil, classifyTransportError(ctx, cl.op, err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, classifyTransportError(ctx, cl.op, err)
		}
		if resp.StatusCode < 300 {
			return resp, nil
		}

		backoff := c.retryDelay << attempt
		switch {
		case resp.StatusCode == http.StatusUnauthorized && !reauthed:
			lastErr = readAPIError(resp)
			reauthed = true
			wait = 0
			c.session.reset()
			logger.Debug("tableau: %s: credentials rejected, signing in again", cl.op)
		case resp.StatusCode == http.StatusTooManyRequests:
			if d, ok := retryAfter(resp); ok {
				backoff = d
			}
			resp.Body.Close()
			lastErr = &RateLimitError{RetryAfter: backoff, URL: req.URL.String()}
			wait = backoff
			logger.Debug("tableau: %s: throttled, retrying in %s", cl.op, backoff)
		case resp.StatusCode >= 500 && cl.method == http.MethodGet:
			lastErr = readAPIError(resp)
			wait = backoff
		default:
			return nil, fmt.Errorf("%s: %w", cl.op, readAPIError(resp))
		}
	}
	return nil, fmt.Errorf("%s: %w", cl.op, lastErr)
}

func (c *Client) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	u, err := c.url(cl)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	var contentType string
	if cl.body != nil {
		if body, contentType, err = cl.body(); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, cl call, out any) error {
	resp, err := c.do(ctx, cl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", cl.op, err)
	}
	return nil
}

// classifyTransportError wraps network failures with domain.ErrConnectionLost.
// Cancellation, single-request timeouts and API errors surfacing through the
// transport (a failed sign-in) keep their own identity.
func classifyTransportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) || errors.Is(err, domain.ErrConnectionLost) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w", op, err)
	}

	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConnectionLost, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
