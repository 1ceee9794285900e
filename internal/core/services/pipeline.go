package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure SyncPipeline implements the interface.
var _ driving.SyncPipeline = (*SyncPipeline)(nil)

// PipelineConfig tunes a SyncPipeline.
type PipelineConfig struct {
	// Workers is the transfer width; DefaultWorkers when zero.
	Workers int

	// DefaultProject labels reports without a project.
	DefaultProject string

	// Progress receives transfer chunk progress; optional.
	Progress ProgressFunc
}

// SyncPipeline runs sync cycles through named stages:
// catalog, detect, transfer, extract, reconcile, store and commit.
type SyncPipeline struct {
	server      driven.ContentServer
	parser      driven.DocumentParser
	snapshots   driven.SnapshotStore
	store       driven.MetadataStore
	cache       driven.AssetCache
	corrections driven.CorrectionSource
	archive     driven.QueryArchive
	cfg         PipelineConfig

	fetcher    *CatalogFetcher
	detector   *ChangeDetector
	extractor  *FieldExtractor
	reconciler *Reconciler
	now        func() time.Time

	// run serialises cycles; a second Run fails fast instead of waiting.
	run sync.Mutex

	mu     sync.RWMutex
	status driving.SyncStatus
}

// NewSyncPipeline creates a sync pipeline.
// corrections and archive are optional and may be nil.
func NewSyncPipeline(
	server driven.ContentServer,
	parser driven.DocumentParser,
	snapshots driven.SnapshotStore,
	store driven.MetadataStore,
	cache driven.AssetCache,
	corrections driven.CorrectionSource,
	archive driven.QueryArchive,
	cfg PipelineConfig,
) *SyncPipeline {
	if cfg.Workers < 1 {
		cfg.Workers = domain.DefaultWorkers
	}
	return &SyncPipeline{
		server:      server,
		parser:      parser,
		snapshots:   snapshots,
		store:       store,
		cache:       cache,
		corrections: corrections,
		archive:     archive,
		cfg:         cfg,
		fetcher:     NewCatalogFetcher(server),
		detector:    NewChangeDetector(),
		extractor:   NewFieldExtractor(parser),
		reconciler:  NewReconciler(cfg.DefaultProject),
		now:         time.Now,
		status:      driving.SyncStatus{Stage: driving.StageIdle},
	}
}

// cycle carries the values handed from one stage to the next.
type cycle struct {
	opts     driving.RunOptions
	report   *driving.SyncReport
	assets   []domain.RemoteAsset
	total    int
	previous *domain.Snapshot
	extract  *ExtractResult
	result   *ReconcileResult
}

// Run executes one sync cycle. The snapshot is only written when every
// stage succeeded; on error the partial report is returned alongside it.
func (p *SyncPipeline) Run(ctx context.Context, opts driving.RunOptions) (*driving.SyncReport, error) {
	if !p.run.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer p.run.Unlock()

	c := &cycle{
		opts: opts,
		report: &driving.SyncReport{
			RunID:     uuid.NewString(),
			StartedAt: p.now(),
		},
	}
	p.begin(c.report.RunID)
	defer p.finish()

	logger.Info("Starting sync %s", c.report.RunID)

	stages := []struct {
		stage driving.Stage
		fn    func(context.Context, *cycle) error
	}{
		{driving.StageCatalog, p.catalogStage},
		{driving.StageDetect, p.detectStage},
		{driving.StageTransfer, p.transferStage},
		{driving.StageExtract, p.extractStage},
		{driving.StageReconcile, p.reconcileStage},
		{driving.StageStore, p.storeStage},
		{driving.StageCommit, p.commitStage},
	}
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			c.report.FinishedAt = p.now()
			return c.report, fmt.Errorf("%s: %w", s.stage, err)
		}
		p.setStage(s.stage)
		logger.Section(string(s.stage))
		done := logger.Track(string(s.stage))
		err := s.fn(ctx, c)
		done()
		if err != nil {
			c.report.FinishedAt = p.now()
			return c.report, fmt.Errorf("%s: %w", s.stage, err)
		}
	}

	c.report.FinishedAt = p.now()
	logger.Info("Sync %s complete in %s", c.report.RunID, c.report.Duration())
	return c.report, nil
}

func (p *SyncPipeline) catalogStage(ctx context.Context, c *cycle) error {
	catalog := p.fetcher.Fetch(ctx)

	assets, err := catalog.Assets()
	if err != nil {
		return err
	}
	c.assets = assets
	c.total = len(assets)
	if col := catalog.Get(domain.CollectionWorkbooks); col != nil && col.Total > 0 {
		c.total = col.Total
	}

	// Other collections and item details are informational; a failure there
	// does not stop the cycle.
	for _, name := range catalog.Names() {
		col := catalog.Get(name)
		if name != domain.CollectionWorkbooks && col.Err != nil {
			c.report.CatalogErr = errors.Join(c.report.CatalogErr, fmt.Errorf("%s: %w", name, col.Err))
		}
		if err := col.ItemErr(); err != nil {
			c.report.CatalogErr = errors.Join(c.report.CatalogErr, fmt.Errorf("%s: %w", name, err))
		}
	}
	logger.Info("Catalog: %d workbooks", len(assets))
	return nil
}

func (p *SyncPipeline) detectStage(ctx context.Context, c *cycle) error {
	previous, err := p.snapshots.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.report.FirstRun = true
	case err != nil:
		return fmt.Errorf("load snapshot: %w", err)
	}
	c.previous = previous

	changes := p.detector.Detect(c.assets, previous)

	if c.report.FirstRun {
		// Persist the first observation immediately so a crash does not
		// repeat the first-run path forever. Missing local copies are
		// re-fetched on the next cycle.
		first := p.detector.Observe(c.assets)
		first.SavedAt = p.now()
		if err := p.snapshots.Save(ctx, first); err != nil {
			return fmt.Errorf("save first snapshot: %w", err)
		}
	}

	if c.opts.All {
		changes = domain.ChangeSet{NeedsUpdate: append(changes.NeedsUpdate, changes.UpToDate...)}
	} else {
		changes = p.promoteMissing(changes)
	}

	c.report.Changes = changes
	logger.Info("Changes: %d need update, %d up to date", len(changes.NeedsUpdate), len(changes.UpToDate))
	return nil
}

// promoteMissing moves up-to-date assets without a local copy to needs-update.
func (p *SyncPipeline) promoteMissing(changes domain.ChangeSet) domain.ChangeSet {
	out := domain.ChangeSet{
		NeedsUpdate: changes.NeedsUpdate,
		UpToDate:    make([]string, 0, len(changes.UpToDate)),
	}
	for _, id := range changes.UpToDate {
		if _, ok := p.cache.Lookup(id); ok {
			out.UpToDate = append(out.UpToDate, id)
			continue
		}
		logger.Debug("No local copy of %s, re-fetching", id)
		out.NeedsUpdate = append(out.NeedsUpdate, id)
	}
	return out
}

func (p *SyncPipeline) transferStage(ctx context.Context, c *cycle) error {
	workers := p.cfg.Workers
	if c.opts.Workers > 0 {
		workers = c.opts.Workers
	}

	engine := NewTransferEngine(p.server,
		WithWorkers(workers),
		WithProgress(func(done, total int) {
			p.setChunks(done, total)
			if p.cfg.Progress != nil {
				p.cfg.Progress(done, total)
			}
		}),
	)
	results, err := engine.Download(ctx, c.report.Changes.NeedsUpdate, c.total, p.cache.Dir)
	c.report.Transfers = results
	p.addErrors(domain.FailedCount(results))
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	logger.Info("Transfer: %d downloaded, %d failed",
		len(results)-domain.FailedCount(results), domain.FailedCount(results))
	return nil
}

func (p *SyncPipeline) extractStage(ctx context.Context, c *cycle) error {
	paths := make(map[string]string, len(c.assets))
	for _, r := range c.report.Transfers {
		if r.Ok() {
			paths[r.ID] = r.Path
		}
	}
	for _, asset := range c.assets {
		if _, ok := paths[asset.ID]; ok {
			continue
		}
		if path, ok := p.cache.Lookup(asset.ID); ok {
			paths[asset.ID] = path
		}
	}

	c.extract = p.extractor.ExtractAll(ctx, c.assets, paths)
	c.report.Anomalies = c.extract.Anomalies
	p.addErrors(len(c.extract.Anomalies))
	logger.Info("Extract: %d fields from %d assets, %d anomalies",
		len(c.extract.Fields), len(c.extract.Assets), len(c.extract.Anomalies))
	return nil
}

func (p *SyncPipeline) reconcileStage(ctx context.Context, c *cycle) error {
	existing, err := p.store.Definitions(ctx)
	if err != nil {
		return fmt.Errorf("read definitions: %w", err)
	}

	var corrections []domain.CorrectionRecord
	if p.corrections != nil {
		corrections, err = p.corrections.Load(ctx)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			logger.Debug("No correction file")
		case err != nil:
			return fmt.Errorf("load corrections: %w", err)
		}
	}

	c.result = p.reconciler.Reconcile(c.extract.Assets, existing, corrections)
	c.report.Reconcile = c.result.Stats
	logger.Info("Reconcile: %d created, %d corrected, %d unchanged",
		c.result.Stats.Created, c.result.Stats.Corrected, c.result.Stats.Unchanged)
	return nil
}

func (p *SyncPipeline) storeStage(ctx context.Context, c *cycle) error {
	if err := p.store.Drop(ctx); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	if err := p.store.Create(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	ins, err := p.store.Insert(ctx, c.result.Reports, c.result.Definitions, c.result.Bridge)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	c.report.Insert = ins
	if rowErr := ins.Err(); rowErr != nil {
		logger.Warn("Insert row failures: %v", rowErr)
	}
	if ins.BridgeDropped > 0 {
		logger.Warn("%d report/field links did not resolve and were dropped", ins.BridgeDropped)
	}

	counts, err := p.store.Check(ctx)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	c.report.Counts = counts
	logger.Info("Store: %d fields, %d reports, %d links", counts.Fields, counts.Reports, counts.Bridge)

	if p.archive != nil {
		for name, query := range c.extract.Queries() {
			if _, err := p.archive.Write(ctx, name, query); err != nil {
				logger.Warn("Archive query %s: %v", name, err)
				continue
			}
			c.report.QueriesWritten++
		}
	}
	return nil
}

func (p *SyncPipeline) commitStage(ctx context.Context, c *cycle) error {
	var failed []string
	synced := append([]string{}, c.report.Changes.UpToDate...)
	for _, r := range c.report.Transfers {
		if r.Ok() {
			synced = append(synced, r.ID)
		} else {
			failed = append(failed, r.ID)
		}
	}

	next := p.detector.Commit(c.previous, c.assets, synced, failed)
	next.SavedAt = p.now()
	if err := p.snapshots.Save(ctx, next); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	c.report.SnapshotSaved = true
	logger.Info("Snapshot: %d assets recorded", next.Len())
	return nil
}

// Status returns the state of the running cycle.
func (p *SyncPipeline) Status(_ context.Context) (*driving.SyncStatus, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	// Return a copy to avoid race conditions
	status := p.status
	return &status, nil
}

func (p *SyncPipeline) begin(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = driving.SyncStatus{RunID: runID, Running: true, Stage: driving.StageIdle}
}

func (p *SyncPipeline) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Running = false
	p.status.Stage = driving.StageIdle
}

func (p *SyncPipeline) setStage(stage driving.Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Stage = stage
}

func (p *SyncPipeline) setChunks(done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.ChunksCompleted = max(p.status.ChunksCompleted, done)
	p.status.ChunksTotal = total
}

func (p *SyncPipeline) addErrors(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.ErrorCount += n
}
