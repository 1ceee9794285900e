package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// snapshotFile is the on-disk layout:
//
//	saved_at = 2024-03-01T12:00:00Z
//
//	[assets]
//	"wb-1" = 2024-02-28T08:15:00Z
type snapshotFile struct {
	SavedAt time.Time            `toml:"saved_at"`
	Assets  map[string]time.Time `toml:"assets"`
}

// SnapshotStore persists the sync snapshot as a TOML file.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a snapshot store at path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the snapshot file path.
func (s *SnapshotStore) Path() string {
	return s.path
}

// Load reads the snapshot. Returns domain.ErrNotFound if the file does not exist.
func (s *SnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var f snapshotFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", s.path, err)
	}

	snap := domain.NewSnapshot()
	snap.SavedAt = f.SavedAt
	for id, t := range f.Assets {
		snap.Set(id, t)
	}
	return snap, nil
}

// Save replaces the snapshot file atomically.
func (s *SnapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := snapshotFile{
		SavedAt: snapshot.SavedAt.UTC(),
		Assets:  make(map[string]time.Time, snapshot.Len()),
	}
	for _, id := range snapshot.IDs() {
		t, _ := snapshot.Get(id)
		f.Assets[id] = t.UTC()
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return writeAtomic(s.path, data, 0600)
}
