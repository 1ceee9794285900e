package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

func TestSnapshotStore_Load_Empty(t *testing.T) {
	store := NewSnapshotStore()

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSnapshotStore_SaveLoad_IsolatesCopies(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := domain.NewSnapshot()
	snap.Set("wb-1", ts)
	require.NoError(t, store.Save(ctx, snap))

	// Mutating the saved value must not leak into the store.
	snap.Set("wb-2", ts)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	got, ok := loaded.Get("wb-1")
	assert.True(t, ok)
	assert.True(t, got.Equal(ts))
	assert.Equal(t, 1, store.Saves())
}

func TestSnapshotStore_FailSaves(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()
	boom := errors.New("disk full")

	store.FailSaves(boom)
	assert.ErrorIs(t, store.Save(ctx, domain.NewSnapshot()), boom)
	assert.Equal(t, 0, store.Saves())

	store.FailSaves(nil)
	assert.NoError(t, store.Save(ctx, domain.NewSnapshot()))
	assert.Equal(t, 1, store.Saves())
}
