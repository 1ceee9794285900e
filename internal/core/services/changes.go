package services

import (
	"github.com/custodia-labs/bisync/internal/core/domain"
)

// ChangeDetector partitions remote assets against the last snapshot.
type ChangeDetector struct{}

// NewChangeDetector creates a change detector.
func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{}
}

// Detect classifies every current asset. An asset is up to date only when
// the snapshot holds its ID with exactly the same timestamp; a missing ID or
// any difference, including a timestamp that moved backwards, needs an update.
// A nil or empty snapshot marks everything for update. IDs keep input order.
func (d *ChangeDetector) Detect(current []domain.RemoteAsset, previous *domain.Snapshot) domain.ChangeSet {
	changes := domain.ChangeSet{
		NeedsUpdate: make([]string, 0, len(current)),
		UpToDate:    make([]string, 0, len(current)),
	}

	for _, asset := range current {
		seen, ok := previous.Get(asset.ID)
		if ok && seen.Equal(asset.UpdatedAt) {
			changes.UpToDate = append(changes.UpToDate, asset.ID)
			continue
		}
		changes.NeedsUpdate = append(changes.NeedsUpdate, asset.ID)
	}
	return changes
}

// Observe builds a snapshot holding the current timestamp of every asset.
func (d *ChangeDetector) Observe(current []domain.RemoteAsset) *domain.Snapshot {
	snap := domain.NewSnapshot()
	for _, asset := range current {
		snap.Set(asset.ID, asset.UpdatedAt)
	}
	return snap
}

// Commit derives the snapshot to persist after a cycle: the previous
// snapshot overridden with current timestamps for every ID in synced, with
// every ID in failed removed.
func (d *ChangeDetector) Commit(previous *domain.Snapshot, current []domain.RemoteAsset,
	synced, failed []string) *domain.Snapshot {
	next := previous.Clone()
	index := domain.AssetIndex(current)

	for _, id := range synced {
		if asset, ok := index[id]; ok {
			next.Set(id, asset.UpdatedAt)
		}
	}
	for _, id := range failed {
		next.Delete(id)
	}
	return next
}
