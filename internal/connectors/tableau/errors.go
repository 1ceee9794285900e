package tableau

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// APIError is an error response from the REST API.
type APIError struct {
	StatusCode int

	// Code is the server's numeric error code, e.g. "401002".
	Code    string
	Summary string
	Detail  string
	URL     string
}

func (e *APIError) Error() string {
	msg := e.Summary
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("tableau: API error %d (%s): %s", e.StatusCode, e.Code, msg)
}

// Unwrap maps well-known statuses to domain errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrAuthInvalid
	case http.StatusNotFound:
		return domain.ErrNotFound
	default:
		return nil
	}
}

// RateLimitError is returned when the server kept answering 429.
type RateLimitError struct {
	RetryAfter time.Duration
	URL        string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("tableau: rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// errorBody is the JSON error envelope.
type errorBody struct {
	Error struct {
		Summary string `json:"summary"`
		Detail  string `json:"detail"`
		Code    string `json:"code"`
	} `json:"error"`
}

// readAPIError consumes and closes the response body.
func readAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Error.Code
		apiErr.Summary = body.Error.Summary
		apiErr.Detail = body.Error.Detail
	}
	return apiErr
}

// retryAfter parses the Retry-After header in seconds.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	v := resp.Header.Get(HeaderRetryAfter)
	if v == "" {
		return 0, false
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
