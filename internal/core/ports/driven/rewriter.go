package driven

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// DocumentRewriter edits query text inside a workbook document.
type DocumentRewriter interface {
	// Edit applies edit to each of the document's custom queries and writes
	// the result into outDir under the same file name. Returns the written
	// path and the number of changes made. Nothing is written when no query
	// changed.
	Edit(ctx context.Context, path string, edit domain.QueryEdit, outDir string) (string, int, error)
}
