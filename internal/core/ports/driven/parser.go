package driven

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// DocumentParser reads a downloaded workbook document.
type DocumentParser interface {
	// Parse returns the document's data sources, fields and custom queries.
	// Errors should wrap domain.ErrParse.
	Parse(ctx context.Context, path string) (*domain.ParsedDocument, error)
}
