package driven

import "context"

// QueryArchive stores recovered query text, one entry per asset.
type QueryArchive interface {
	// Write stores the query under the asset name and returns its location.
	Write(ctx context.Context, name, query string) (string, error)
}
