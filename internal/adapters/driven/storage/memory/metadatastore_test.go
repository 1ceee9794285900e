package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

func newCreatedStore(t *testing.T) *MetadataStore {
	t.Helper()
	store := NewMetadataStore()
	require.NoError(t, store.Create(context.Background()))
	return store
}

func TestMetadataStore_Create_NotIdempotent(t *testing.T) {
	store := newCreatedStore(t)
	ctx := context.Background()

	assert.Error(t, store.Create(ctx))

	require.NoError(t, store.Drop(ctx))
	require.NoError(t, store.Drop(ctx))
	assert.NoError(t, store.Create(ctx))
}

func TestMetadataStore_Insert_WithoutSchema(t *testing.T) {
	store := NewMetadataStore()

	_, err := store.Insert(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrSchemaMissing)

	_, err = store.Check(context.Background())
	assert.ErrorIs(t, err, domain.ErrSchemaMissing)
}

func TestMetadataStore_Insert_BridgeSilentDrop(t *testing.T) {
	store := newCreatedStore(t)
	ctx := context.Background()

	report, err := store.Insert(ctx,
		[]domain.ReportRecord{{Name: "R1", Project: "proj"}},
		[]domain.DefinitionRecord{{ID: 1, Name: "F1", Description: domain.NoDefinition}},
		[]domain.BridgeRow{{Report: "R1", Field: "F1"}, {Report: "R1", Field: "F2"}},
	)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, 2, report.BridgeStaged)
	assert.Equal(t, 1, report.BridgeDropped)
	assert.Equal(t, 1, report.Bridge.Inserted)
	assert.Equal(t, []domain.BridgeRow{{Report: "R1", Field: "F1"}}, store.Links())

	counts, err := store.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.TableCounts{Fields: 1, Reports: 1, Bridge: 1}, *counts)
}

func TestMetadataStore_Insert_DuplicatesReportedPerTable(t *testing.T) {
	store := newCreatedStore(t)

	report, err := store.Insert(context.Background(),
		[]domain.ReportRecord{{Name: "R1"}, {Name: "R1"}},
		[]domain.DefinitionRecord{{ID: 1, Name: "A"}, {ID: 2, Name: "A"}, {ID: 1, Name: "B"}, {ID: 3, Name: "C"}},
		[]domain.BridgeRow{{Report: "R1", Field: "C"}},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Fields.Inserted)
	assert.Equal(t, 2, report.Fields.Failed)
	assert.Equal(t, 1, report.Reports.Inserted)
	assert.Equal(t, 1, report.Reports.Failed)
	assert.Equal(t, 1, report.Bridge.Inserted)
	assert.Error(t, report.Err())
}

func TestMetadataStore_DefinitionsAndUpdate(t *testing.T) {
	store := newCreatedStore(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, nil, []domain.DefinitionRecord{
		{ID: 2, Name: "B", Description: "b"},
		{ID: 1, Name: "A", Description: "a"},
	}, nil)
	require.NoError(t, err)

	n, err := store.UpdateDefinitions(ctx, []domain.DefinitionRecord{
		{ID: 1, Name: "A", Description: "alpha", Tag: "T"},
		{ID: 9, Name: "Z", Description: "nobody"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	defs, err := store.Definitions(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, domain.DefinitionRecord{ID: 1, Name: "A", Description: "alpha", Tag: "T"}, defs[0])
	assert.Equal(t, int64(2), defs[1].ID)
}

func TestMetadataStore_Definitions_NoSchema(t *testing.T) {
	defs, err := NewMetadataStore().Definitions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, defs)
}
