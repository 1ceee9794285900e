package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

func extracted(assetName, project string, names ...string) domain.AssetFields {
	af := domain.AssetFields{Asset: domain.RemoteAsset{ID: assetName, Name: assetName, Project: project}}
	for _, n := range names {
		af.Fields = append(af.Fields, domain.NewField(n, domain.OriginSourceColumn, assetName))
	}
	return af
}

func TestReconciler_AddsMissingAttribute(t *testing.T) {
	existing := []domain.DefinitionRecord{{ID: 1, Name: "REGION", Description: "A"}}
	corrections := []domain.CorrectionRecord{{Name: "Region", Description: "A", Tag: "T1"}}

	res := NewReconciler("").Reconcile(nil, existing, corrections)

	require.Len(t, res.Definitions, 1)
	assert.Equal(t, domain.DefinitionRecord{ID: 1, Name: "REGION", Description: "A", Tag: "T1"}, res.Definitions[0])
	assert.Equal(t, 1, res.Stats.Corrected)
}

func TestReconciler_IncomingWinsOnConflict(t *testing.T) {
	existing := []domain.DefinitionRecord{{ID: 7, Name: "REGION", Description: "A", Datatype: "string"}}
	corrections := []domain.CorrectionRecord{{Name: "REGION", Description: "B"}}

	res := NewReconciler("").Reconcile(nil, existing, corrections)

	require.Len(t, res.Definitions, 1)
	got := res.Definitions[0]
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "B", got.Description)
	assert.Equal(t, "string", got.Datatype, "empty correction value never clears")
}

func TestReconciler_UncorrectedFieldGetsPlaceholder(t *testing.T) {
	res := NewReconciler("").Reconcile([]domain.AssetFields{extracted("R1", "", "NEW_FIELD")}, nil, nil)

	require.Len(t, res.Definitions, 1)
	assert.Equal(t, domain.DefinitionRecord{ID: 1, Name: "NEW_FIELD", Description: domain.NoDefinition}, res.Definitions[0])
	assert.Equal(t, 1, res.Stats.Placeholders)
	assert.Equal(t, 1, res.Stats.Created)
}

func TestReconciler_ExtractedAttributesDoNotSeedRecords(t *testing.T) {
	af := extracted("R1", "", "MARGIN")
	af.Fields[0].Datatype = "real"
	af.Fields[0].Description = "embedded caption text"

	res := NewReconciler("").Reconcile([]domain.AssetFields{af}, nil, nil)

	require.Len(t, res.Definitions, 1)
	assert.Equal(t, domain.DefinitionRecord{ID: 1, Name: "MARGIN", Description: domain.NoDefinition}, res.Definitions[0])
}

func TestReconciler_NewIDsAfterMaxInNameOrder(t *testing.T) {
	existing := []domain.DefinitionRecord{
		{ID: 3, Name: "B", Description: "b"},
		{ID: 10, Name: "A", Description: "a"},
	}
	in := []domain.AssetFields{extracted("R1", "P", "Z", "B", "C")}
	corrections := []domain.CorrectionRecord{{Name: "y", Description: "from file", Datatype: "int"}}

	res := NewReconciler("").Reconcile(in, existing, corrections)

	want := []domain.DefinitionRecord{
		{ID: 3, Name: "B", Description: "b"},
		{ID: 10, Name: "A", Description: "a"},
		{ID: 11, Name: "C", Description: domain.NoDefinition},
		{ID: 12, Name: "Y", Description: "from file", Datatype: "int"},
		{ID: 13, Name: "Z", Description: domain.NoDefinition},
	}
	assert.Equal(t, want, res.Definitions)
	assert.Equal(t, 3, res.Stats.Created)
	assert.Equal(t, 2, res.Stats.Unchanged)
}

func TestReconciler_ExistingNeverDeleted(t *testing.T) {
	existing := []domain.DefinitionRecord{{ID: 1, Name: "OLD", Description: "kept"}}

	res := NewReconciler("").Reconcile([]domain.AssetFields{extracted("R1", "", "NEW")}, existing, nil)

	require.Len(t, res.Definitions, 2)
	assert.Equal(t, "OLD", res.Definitions[0].Name)
}

func TestReconciler_PassThroughIsStable(t *testing.T) {
	r := NewReconciler("")
	in := []domain.AssetFields{extracted("R1", "", "A", "B")}

	first := r.Reconcile(in, nil, nil)
	second := r.Reconcile(in, first.Definitions, nil)

	assert.Equal(t, first.Definitions, second.Definitions)
	assert.Zero(t, second.Stats.Created)
	assert.Equal(t, 2, second.Stats.Unchanged)
}

func TestReconciler_DuplicateCorrectionsLastWins(t *testing.T) {
	corrections := []domain.CorrectionRecord{
		{Name: "region", Description: "first"},
		{Name: "[REGION]", Description: "second"},
		{Name: "%%", Description: "kept as name"},
		{Name: "  ", Description: "skipped"},
	}

	res := NewReconciler("").Reconcile(nil, nil, corrections)

	require.Len(t, res.Definitions, 2)
	assert.Equal(t, "%%", res.Definitions[0].Name)
	assert.Equal(t, "second", res.Definitions[1].Description)
	assert.Equal(t, 1, res.Stats.DuplicateCorrections)
	assert.Equal(t, 1, res.Stats.SkippedCorrections)
}

func TestReconciler_DerivesReportsAndBridge(t *testing.T) {
	in := []domain.AssetFields{
		extracted("R1", "", "A", "B"),
		extracted("R2", "Ops", "B"),
		extracted("R1", "Other", "A"),
	}

	res := NewReconciler("Shared").Reconcile(in, nil, nil)

	assert.Equal(t, []domain.ReportRecord{
		{Name: "R1", Project: "Shared"},
		{Name: "R2", Project: "Ops"},
	}, res.Reports)
	assert.Equal(t, []domain.BridgeRow{
		{Report: "R1", Field: "A"},
		{Report: "R1", Field: "B"},
		{Report: "R2", Field: "B"},
	}, res.Bridge)
}

func TestReconciler_Correct(t *testing.T) {
	existing := []domain.DefinitionRecord{
		{ID: 1, Name: "A", Description: "a"},
		{ID: 2, Name: "B", Description: "b"},
	}
	corrections := []domain.CorrectionRecord{
		{Name: "a", Description: "a"},
		{Name: "b", Tag: "KPI"},
		{Name: "c", Description: "new"},
	}

	changed, unknown := NewReconciler("").Correct(existing, corrections)

	assert.Equal(t, []domain.DefinitionRecord{{ID: 2, Name: "B", Description: "b", Tag: "KPI"}}, changed)
	assert.Equal(t, []string{"C"}, unknown)
}
