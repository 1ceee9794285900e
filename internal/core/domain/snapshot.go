package domain

import (
	"sort"
	"time"
)

// Snapshot records the last-observed modification time of every asset
// that was successfully synced in some prior run.
type Snapshot struct {
	// Assets maps asset ID to its last-observed UpdatedAt.
	Assets map[string]time.Time

	// SavedAt is when the snapshot was last persisted.
	SavedAt time.Time
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Assets: make(map[string]time.Time)}
}

// Get returns the recorded timestamp for an asset.
func (s *Snapshot) Get(id string) (time.Time, bool) {
	if s == nil || s.Assets == nil {
		return time.Time{}, false
	}
	t, ok := s.Assets[id]
	return t, ok
}

// Set records the timestamp for an asset.
func (s *Snapshot) Set(id string, t time.Time) {
	if s.Assets == nil {
		s.Assets = make(map[string]time.Time)
	}
	s.Assets[id] = t
}

// Delete removes an asset from the snapshot.
func (s *Snapshot) Delete(id string) {
	delete(s.Assets, id)
}

// Len returns the number of recorded assets.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Assets)
}

// IDs returns the recorded asset IDs in sorted order.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, s.Len())
	if s == nil {
		return ids
	}
	for id := range s.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := NewSnapshot()
	if s == nil {
		return c
	}
	c.SavedAt = s.SavedAt
	for id, t := range s.Assets {
		c.Assets[id] = t
	}
	return c
}

// ChangeSet partitions asset IDs by whether they must be re-fetched.
type ChangeSet struct {
	// NeedsUpdate holds new assets and assets whose timestamp changed.
	NeedsUpdate []string

	// UpToDate holds assets whose timestamp matches the snapshot exactly.
	UpToDate []string
}

// Total returns the number of classified assets.
func (c ChangeSet) Total() int {
	return len(c.NeedsUpdate) + len(c.UpToDate)
}
