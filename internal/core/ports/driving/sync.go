package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// SyncPipeline runs one sync cycle: catalog, detect, transfer, extract,
// reconcile, store and commit.
type SyncPipeline interface {
	// Run executes a full cycle. Item-level failures are reported in the
	// returned report; cycle-level failures return an error and leave the
	// snapshot unwritten.
	Run(ctx context.Context, opts RunOptions) (*SyncReport, error)

	// Status returns the state of the running cycle, if any.
	Status(ctx context.Context) (*SyncStatus, error)
}

// RunOptions tunes a sync cycle.
type RunOptions struct {
	// All re-downloads every asset, including up-to-date ones.
	All bool

	// Workers overrides the configured transfer width when positive.
	Workers int
}

// Stage names a pipeline step.
type Stage string

// Pipeline stages in execution order.
const (
	StageIdle      Stage = "idle"
	StageCatalog   Stage = "catalog"
	StageDetect    Stage = "detect"
	StageTransfer  Stage = "transfer"
	StageExtract   Stage = "extract"
	StageReconcile Stage = "reconcile"
	StageStore     Stage = "store"
	StageCommit    Stage = "commit"
)

// SyncStatus represents the current state of a sync cycle.
type SyncStatus struct {
	// RunID identifies the cycle.
	RunID string

	// Running indicates if a cycle is in progress.
	Running bool

	// Stage is the step currently executing.
	Stage Stage

	// ChunksCompleted is the number of finished transfer chunks.
	ChunksCompleted int

	// ChunksTotal is the number of transfer chunks submitted.
	ChunksTotal int

	// ErrorCount is the number of item-level errors so far.
	ErrorCount int
}

// SyncReport summarises a completed cycle.
type SyncReport struct {
	// RunID identifies the cycle.
	RunID string

	// StartedAt and FinishedAt bound the cycle.
	StartedAt  time.Time
	FinishedAt time.Time

	// FirstRun is true when no snapshot existed.
	FirstRun bool

	// Changes is the detector's partition.
	Changes domain.ChangeSet

	// Transfers are the download results in chunk order.
	Transfers []domain.TransferResult

	// CatalogErr joins failures of collections other than workbooks and
	// item detail failures of any collection.
	CatalogErr error

	// Anomalies are extraction problems that were skipped.
	Anomalies []domain.Anomaly

	// Reconcile counts what the reconciler did.
	Reconcile domain.ReconcileStats

	// Insert is the per-table insert report.
	Insert *domain.InsertReport

	// Counts are the table row counts after insert.
	Counts *domain.TableCounts

	// QueriesWritten is the number of queries archived.
	QueriesWritten int

	// SnapshotSaved is true when the snapshot was committed.
	SnapshotSaved bool
}

// Duration returns how long the cycle took.
func (r *SyncReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
