package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
)

// Ensure SnapshotStore implements the interface.
var _ driven.SnapshotStore = (*SnapshotStore)(nil)

// SnapshotStore is an in-memory implementation of driven.SnapshotStore.
type SnapshotStore struct {
	mu       sync.RWMutex
	snapshot *domain.Snapshot
	saves    int
	saveErr  error
}

// NewSnapshotStore creates a new in-memory snapshot store with no snapshot.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Load returns a copy of the last saved snapshot.
func (s *SnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, domain.ErrNotFound
	}
	return s.snapshot.Clone(), nil
}

// Save replaces the stored snapshot.
func (s *SnapshotStore) Save(_ context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.snapshot = snapshot.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save succeeded.
func (s *SnapshotStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}

// FailSaves makes every later Save return err. Pass nil to recover.
func (s *SnapshotStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}
