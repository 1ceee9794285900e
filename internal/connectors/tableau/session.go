package tableau

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/bisync/internal/logger"
)

// DefaultSessionLifetime is assumed when the server does not report one.
const DefaultSessionLifetime = 2 * time.Hour

// session holds the signed-in credentials token and the site it belongs to.
type session struct {
	c *Client

	mu     sync.Mutex
	tokens oauth2.TokenSource
	siteID string
	userID string
}

func newSession(c *Client) *session {
	s := &session{c: c}
	s.tokens = oauth2.ReuseTokenSource(nil, signInSource{s})
	return s
}

// token returns the cached credentials token, signing in when needed.
func (s *session) token() (*oauth2.Token, error) {
	s.mu.Lock()
	src := s.tokens
	s.mu.Unlock()
	return src.Token()
}

// site returns the signed-in site's ID.
func (s *session) site() (string, error) {
	if _, err := s.token(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.siteID, nil
}

// reset forgets the cached token so the next request signs in again.
func (s *session) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = oauth2.ReuseTokenSource(nil, signInSource{s})
}

// signInSource performs a fresh sign-in on every call.
type signInSource struct {
	s *session
}

func (src signInSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()
	return src.s.signIn(ctx)
}

type signInRequest struct {
	Credentials struct {
		Name   string `json:"personalAccessTokenName"`
		Secret string `json:"personalAccessTokenSecret"`
		Site   struct {
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
	} `json:"credentials"`
}

type signInResponse struct {
	Credentials struct {
		Token string `json:"token"`
		Site  struct {
			ID         string `json:"id"`
			ContentURL string `json:"contentUrl"`
		} `json:"site"`
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		EstimatedTimeToExpiration string `json:"estimatedTimeToExpiration"`
	} `json:"credentials"`
}

func (s *session) signIn(ctx context.Context) (*oauth2.Token, error) {
	cfg := s.c.cfg

	var body signInRequest
	body.Credentials.Name = cfg.TokenName
	body.Credentials.Secret = cfg.TokenSecret
	body.Credentials.Site.ContentURL = cfg.Site
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode sign-in: %w", err)
	}

	if err := s.c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.apiBase()+"/auth/signin", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.c.raw.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, "sign in", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("sign in: %w", readAPIError(resp))
	}
	defer resp.Body.Close()

	var out signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode sign-in response: %w", err)
	}
	if out.Credentials.Token == "" {
		return nil, fmt.Errorf("sign in: server returned no credentials token")
	}

	s.mu.Lock()
	s.siteID = out.Credentials.Site.ID
	s.userID = out.Credentials.User.ID
	s.mu.Unlock()

	lifetime, ok := parseLifetime(out.Credentials.EstimatedTimeToExpiration)
	if !ok {
		lifetime = DefaultSessionLifetime
	}
	logger.Debug("tableau: signed in to site %q (expires in %s)", cfg.Site, lifetime)

	return &oauth2.Token{
		AccessToken: out.Credentials.Token,
		TokenType:   HeaderAuth,
		Expiry:      time.Now().Add(lifetime),
	}, nil
}

// signOut invalidates the current credentials token if one was issued.
func (s *session) signOut(ctx context.Context) error {
	s.mu.Lock()
	src := s.tokens
	signedIn := s.siteID != ""
	s.mu.Unlock()
	if !signedIn {
		return nil
	}

	tok, err := src.Token()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.c.cfg.apiBase()+"/auth/signout", nil)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderAuth, tok.AccessToken)

	resp, err := s.c.raw.Do(req)
	if err != nil {
		return classifyTransportError(ctx, "sign out", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sign out: %w", readAPIError(resp))
	}
	resp.Body.Close()

	s.mu.Lock()
	s.siteID, s.userID = "", ""
	s.mu.Unlock()
	s.reset()
	return nil
}

// parseLifetime parses "HHH:MM:SS" as reported by the sign-in response.
func parseLifetime(v string) (time.Duration, bool) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return 0, false
	}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		d += time.Duration(n) * units[i]
	}
	return d, d > 0
}

// authTransport sets the credentials token on every request.
type authTransport struct {
	session *session
	base    http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.session.token()
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Header.Set(HeaderAuth, tok.AccessToken)
	return t.base.RoundTrip(r)
}
