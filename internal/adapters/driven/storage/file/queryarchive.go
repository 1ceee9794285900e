package file

import (
	"context"
	"path/filepath"

	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure QueryArchive implements the interface.
var _ driven.QueryArchive = (*QueryArchive)(nil)

// QueryArchive writes each recovered query to dir/<name>.sql.
type QueryArchive struct {
	dir string
}

// NewQueryArchive creates an archive writing into dir.
func NewQueryArchive(dir string) *QueryArchive {
	return &QueryArchive{dir: dir}
}

// Write stores the query, replacing an earlier one of the same name.
func (a *QueryArchive) Write(ctx context.Context, name, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(a.dir, safeName(name)+".sql")
	if err := writeAtomic(path, []byte(query), 0644); err != nil {
		return "", err
	}
	return path, nil
}
