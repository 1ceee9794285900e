package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bisync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
)

// pipelineFixture wires a pipeline against in-memory collaborators.
type pipelineFixture struct {
	server      *mockServer
	parser      *mockParser
	cache       *mockCache
	snapshots   *memory.SnapshotStore
	store       *memory.MetadataStore
	corrections *mockCorrections
	archive     *mockArchive
	pipeline    *SyncPipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		server:      newMockServer(),
		parser:      newMockParser(),
		cache:       newMockCache("/cache"),
		snapshots:   memory.NewSnapshotStore(),
		store:       memory.NewMetadataStore(),
		corrections: &mockCorrections{err: domain.ErrNotFound},
		archive:     newMockArchive(),
	}
	f.pipeline = NewSyncPipeline(
		&cachingServer{mockServer: f.server, cache: f.cache},
		f.parser, f.snapshots, f.store, f.cache, f.corrections, f.archive,
		PipelineConfig{Workers: 2, DefaultProject: "Default"},
	)
	return f
}

// doc registers the document the parser returns for an asset's download path.
func (f *pipelineFixture) doc(id string, d *domain.ParsedDocument) {
	f.parser.docs[filepath.Join(f.cache.Dir(id), id+".twb")] = d
}

func (f *pipelineFixture) snapshot(t *testing.T) *domain.Snapshot {
	t.Helper()
	snap, err := f.snapshots.Load(context.Background())
	require.NoError(t, err)
	return snap
}

func TestSyncPipeline_TwoCycles(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.server.setWorkbooks(workbook("1", "Sales", t1), workbook("2", "Ops", t2), workbook("3", "HR", t3))
	f.doc("1", docWith("SELECT region FROM sales", domain.RawField{Name: "Region"}, domain.RawField{Name: "Revenue"}))
	f.doc("2", docWith("", domain.RawField{Name: "region"}, domain.RawField{Name: "Backlog %", Calculation: "x"}))
	f.doc("3", docWith("", domain.RawField{Name: "Headcount"}))

	// Cycle 1: no snapshot, everything is fetched.
	report, err := f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	assert.True(t, report.FirstRun)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []string{"1", "2", "3"}, report.Changes.NeedsUpdate)
	assert.Empty(t, report.Changes.UpToDate)
	assert.Equal(t, []string{"1", "2", "3"}, f.server.downloaded())
	assert.True(t, report.SnapshotSaved)
	assert.Equal(t, 2, f.snapshots.Saves(), "first-run snapshot plus commit")

	require.NotNil(t, report.Counts)
	assert.Equal(t, domain.TableCounts{Fields: 4, Reports: 3, Bridge: 5}, *report.Counts)
	assert.Equal(t, 4, report.Reconcile.Placeholders)
	assert.Equal(t, 1, report.QueriesWritten)
	assert.Equal(t, "SELECT region FROM sales", f.archive.written["Sales"])

	snap := f.snapshot(t)
	assert.Equal(t, []string{"1", "2", "3"}, snap.IDs())

	defs1, err := f.store.Definitions(ctx)
	require.NoError(t, err)

	// Cycle 2: only asset 2 changed.
	f.server.resetDownloads()
	t2b := t2.Add(time.Hour)
	f.server.setWorkbooks(workbook("1", "Sales", t1), workbook("2", "Ops", t2b), workbook("3", "HR", t3))

	report, err = f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	assert.False(t, report.FirstRun)
	assert.Equal(t, []string{"2"}, report.Changes.NeedsUpdate)
	assert.Equal(t, []string{"1", "3"}, report.Changes.UpToDate)
	assert.Equal(t, []string{"2"}, f.server.downloaded())

	got, ok := f.snapshot(t).Get("2")
	require.True(t, ok)
	assert.True(t, got.Equal(t2b))

	defs2, err := f.store.Definitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, defs1, defs2, "definition IDs are stable across cycles")
	assert.Zero(t, report.Reconcile.Created)
}

func TestSyncPipeline_FailedDownloadLeftOutOfSnapshot(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.server.setWorkbooks(workbook("1", "Sales", t1), workbook("2", "Ops", t2))
	f.server.downloadErr["2"] = errBoom

	report, err := f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, domain.FailedCount(report.Transfers))
	assert.Equal(t, []string{"1"}, f.snapshot(t).IDs())

	// The failed asset is retried next cycle.
	delete(f.server.downloadErr, "2")
	f.server.resetDownloads()
	report, err = f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, report.Changes.NeedsUpdate)
	assert.Equal(t, []string{"1", "2"}, f.snapshot(t).IDs())
}

func TestSyncPipeline_MissingLocalCopyIsRefetched(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.server.setWorkbooks(workbook("1", "Sales", t1), workbook("2", "Ops", t2))

	_, err := f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)

	f.cache.forget("1")
	f.server.resetDownloads()

	report, err := f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, report.Changes.NeedsUpdate)
	assert.Equal(t, []string{"2"}, report.Changes.UpToDate)
	assert.Equal(t, []string{"1"}, f.server.downloaded())
}

func TestSyncPipeline_AllDownloadsEverything(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.server.setWorkbooks(workbook("1", "Sales", t1), workbook("2", "Ops", t2))

	_, err := f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)
	f.server.resetDownloads()

	report, err := f.pipeline.Run(ctx, driving.RunOptions{All: true, Workers: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, report.Changes.NeedsUpdate)
	assert.Equal(t, []string{"1", "2"}, f.server.downloaded())
}

func TestSyncPipeline_ConnectionLossLeavesSnapshotUnwritten(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()
	f.server.setWorkbooks(workbook("1", "Sales", t1))

	_, err := f.pipeline.Run(ctx, driving.RunOptions{})
	require.NoError(t, err)
	saves := f.snapshots.Saves()

	f.server.setWorkbooks(workbook("1", "Sales", t2))
	f.server.downloadErr["1"] = errConnLost

	report, err := f.pipeline.Run(ctx, driving.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConnectionLost)
	require.NotNil(t, report)
	assert.False(t, report.SnapshotSaved)
	assert.Equal(t, saves, f.snapshots.Saves())

	got, _ := f.snapshot(t).Get("1")
	assert.True(t, got.Equal(t1))
}

func TestSyncPipeline_WorkbookListFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.server.listErr[domain.CollectionWorkbooks] = errBoom

	_, err := f.pipeline.Run(context.Background(), driving.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, f.snapshots.Saves())
}

func TestSyncPipeline_OtherCollectionFailureIsReported(t *testing.T) {
	f := newPipelineFixture(t)
	f.server.setWorkbooks(workbook("1", "Sales", t1))
	f.server.listErr[domain.CollectionUsers] = errBoom

	report, err := f.pipeline.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)
	assert.ErrorIs(t, report.CatalogErr, errBoom)
	assert.True(t, report.SnapshotSaved)
}

func TestSyncPipeline_ConnectionLookupFailureKeepsWorkbook(t *testing.T) {
	f := newPipelineFixture(t)
	f.server.setWorkbooks(workbook("1", "Sales", t1), workbook("2", "Ops", t2), workbook("3", "HR", t3))
	f.server.itemErr["2"] = errBoom

	report, err := f.pipeline.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, f.server.downloaded())
	assert.ErrorIs(t, report.CatalogErr, errBoom)
	assert.True(t, report.SnapshotSaved)
	assert.Equal(t, []string{"1", "2", "3"}, f.snapshot(t).IDs())
}

func TestSyncPipeline_CorrectionsApplied(t *testing.T) {
	f := newPipelineFixture(t)
	f.server.setWorkbooks(workbook("1", "Sales", t1))
	f.doc("1", docWith("", domain.RawField{Name: "Region"}))
	f.corrections.err = nil
	f.corrections.records = []domain.CorrectionRecord{{Name: "REGION", Description: "Sales region", Tag: "geo"}}

	_, err := f.pipeline.Run(context.Background(), driving.RunOptions{})
	require.NoError(t, err)

	defs, err := f.store.Definitions(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Sales region", defs[0].Description)
	assert.Equal(t, "geo", defs[0].Tag)
}

func TestSyncPipeline_CorrectionLoadFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.server.setWorkbooks(workbook("1", "Sales", t1))
	f.corrections.err = errBoom

	report, err := f.pipeline.Run(context.Background(), driving.RunOptions{})
	require.Error(t, err)
	assert.False(t, report.SnapshotSaved)
	assert.Equal(t, 1, f.snapshots.Saves(), "only the first-run snapshot")
}

func TestSyncPipeline_FirstSnapshotSaveFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.server.setWorkbooks(workbook("1", "Sales", t1))
	f.snapshots.FailSaves(errBoom)

	_, err := f.pipeline.Run(context.Background(), driving.RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
}

func TestSyncPipeline_Cancelled(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Run(ctx, driving.RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

// blockingServer holds List until released.
type blockingServer struct {
	*mockServer
	started chan struct{}
	release chan struct{}
}

func (b *blockingServer) List(ctx context.Context, collection string) ([]domain.CatalogItem, int, error) {
	if collection == domain.CollectionWorkbooks {
		close(b.started)
		<-b.release
	}
	return b.mockServer.List(ctx, collection)
}

func TestSyncPipeline_RunsAreSerialised(t *testing.T) {
	server := &blockingServer{
		mockServer: newMockServer(),
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	p := NewSyncPipeline(server, newMockParser(), memory.NewSnapshotStore(), memory.NewMetadataStore(),
		newMockCache("/c"), nil, nil, PipelineConfig{})

	done := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background(), driving.RunOptions{})
		done <- err
	}()
	<-server.started

	status, err := p.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Running)
	assert.Equal(t, driving.StageCatalog, status.Stage)

	_, err = p.Run(context.Background(), driving.RunOptions{})
	assert.True(t, errors.Is(err, domain.ErrSyncInProgress))

	close(server.release)
	require.NoError(t, <-done)

	status, err = p.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, driving.StageIdle, status.Stage)
}
