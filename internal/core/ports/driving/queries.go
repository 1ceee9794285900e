package driving

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// QueryService works with the custom queries embedded in cached workbooks.
type QueryService interface {
	// Export writes every cached asset's query to the archive.
	Export(ctx context.Context) (*QueryExport, error)

	// Replace rewrites query text in cached workbooks and optionally publishes them.
	Replace(ctx context.Context, req ReplaceRequest) (*ReplaceResult, error)

	// AddColumn appends a select item to cached workbook queries and
	// optionally publishes them.
	AddColumn(ctx context.Context, req AddColumnRequest) (*ReplaceResult, error)
}

// QueryExport summarises an Export call.
type QueryExport struct {
	// Written maps asset name to archive location.
	Written map[string]string

	// Empty is the number of assets without a query.
	Empty int

	// Anomalies are assets that could not be parsed.
	Anomalies []domain.Anomaly
}

// ReplaceRequest describes a query rewrite.
type ReplaceRequest struct {
	// Old is the text to replace.
	Old string

	// New is the replacement.
	New string

	// OutputDir receives rewritten workbooks, one subdirectory per asset id
	// so equally named documents never overwrite each other.
	OutputDir string

	// Publish uploads the rewritten workbooks.
	Publish bool

	// Mode is the publish mode; Overwrite when empty.
	Mode domain.PublishMode
}

// AddColumnRequest describes a select item added before each query's FROM.
type AddColumnRequest struct {
	// Column is the select item, e.g. "t.margin AS MARGIN".
	Column string

	// Workbook limits the edit to workbooks whose name contains it.
	Workbook string

	// OutputDir receives edited workbooks, one subdirectory per asset id.
	OutputDir string

	// Publish uploads the edited workbooks.
	Publish bool

	// Mode is the publish mode; Overwrite when empty.
	Mode domain.PublishMode
}

// ReplaceResult summarises a Replace or AddColumn call.
type ReplaceResult struct {
	// Rewritten lists the written workbook paths.
	Rewritten []string

	// Published are the upload results in chunk order.
	Published []domain.TransferResult
}
