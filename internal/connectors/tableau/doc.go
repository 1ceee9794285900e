// Package tableau implements the content server port against the Tableau
// Server REST API.
//
// # Authentication
//
// The client signs in with a personal access token. The credentials token
// returned by the server is cached behind an oauth2.ReuseTokenSource and sent
// as the X-Tableau-Auth header on every request. A 401 response drops the
// cached token and the request is retried once with a fresh sign-in.
//
// # Rate Limiting
//
// Requests are throttled by a token bucket (server.requests_per_second).
// A 429 response is retried after Retry-After, or after an exponential delay
// when the header is absent. Reads are also retried on 5xx responses.
//
// # Errors
//
// Server error bodies are decoded into [APIError]. Network failures wrap
// [domain.ErrConnectionLost], which the transfer engine treats as fatal for
// the current chunk. Timeouts of a single request do not.
//
// # Publishing
//
// Workbooks are published in a single multipart/mixed request. Files larger
// than the server's single-request limit (64 MB) are rejected by the server.
package tableau
