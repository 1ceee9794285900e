package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure AssetCache implements the interface.
var _ driven.AssetCache = (*AssetCache)(nil)

// workbookExts are the document extensions recognised in a cache directory.
var workbookExts = []string{".twbx", ".twb"}

// AssetCache keeps downloaded workbooks under root/<asset id>/.
type AssetCache struct {
	root string
}

// NewAssetCache creates a cache rooted at root.
func NewAssetCache(root string) *AssetCache {
	return &AssetCache{root: root}
}

// Dir returns root/<id>, creating nothing. The server adapter creates it on download.
func (c *AssetCache) Dir(id string) string {
	return filepath.Join(c.root, safeName(id))
}

// Lookup returns the workbook document inside the asset's directory.
// When several are present the most recently modified wins.
func (c *AssetCache) Lookup(id string) (string, bool) {
	entries, err := os.ReadDir(c.Dir(id))
	if err != nil {
		return "", false
	}

	var best string
	var bestMod int64
	for _, e := range entries {
		if e.IsDir() || !isWorkbook(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); best == "" || mod > bestMod {
			best, bestMod = e.Name(), mod
		}
	}
	if best == "" {
		return "", false
	}
	return filepath.Join(c.Dir(id), best), true
}

// IDs returns every asset ID with a cached workbook, sorted.
func (c *AssetCache) IDs() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, ok := c.Lookup(e.Name()); ok {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func isWorkbook(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, w := range workbookExts {
		if ext == w {
			return true
		}
	}
	return false
}

// safeName strips path separators so an ID can never escape the root.
func safeName(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
	if s == "" || s == "." {
		return "_"
	}
	return s
}
