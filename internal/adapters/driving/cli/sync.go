package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
)

// statusInterval is how often a running sync is polled for progress.
var statusInterval = 200 * time.Millisecond

var (
	syncAll     bool
	syncWorkers int
	syncEvery   time.Duration
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise workbook metadata from the server",
	Long: `Runs one sync cycle: fetch the catalog, download workbooks changed since
the last successful sync, extract their fields and queries, merge field
definitions with corrections, and rebuild the metadata tables.

The snapshot of synced workbooks is only saved when the whole cycle succeeds.
With --every the cycle repeats on that interval until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "download every workbook, ignoring the snapshot")
	syncCmd.Flags().IntVarP(&syncWorkers, "workers", "w", 0, "transfer workers (default from sync.workers)")
	syncCmd.Flags().DurationVar(&syncEvery, "every", 0, "repeat the sync on this interval (e.g. 1h)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncPipeline == nil {
		return notConfigured("sync")
	}
	if syncWorkers < 0 {
		return fmt.Errorf("%w: --workers must be positive", domain.ErrInvalidInput)
	}

	opts := driving.RunOptions{All: syncAll, Workers: syncWorkers}
	if syncEvery != 0 {
		return runScheduled(cmd, opts)
	}

	if syncAll {
		cmd.Println("Synchronising all workbooks...")
	} else {
		cmd.Println("Synchronising changed workbooks...")
	}

	report, err := syncWithProgress(cmd.Context(), cmd, syncPipeline, opts)
	if report != nil {
		printSyncReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

// runScheduled repeats the sync until the command's context ends.
func runScheduled(cmd *cobra.Command, opts driving.RunOptions) error {
	if newScheduler == nil {
		return notConfigured("scheduled sync")
	}
	if syncEvery < domain.MinScheduleInterval {
		return fmt.Errorf("%w: --every must be at least %s", domain.ErrInvalidInput, domain.MinScheduleInterval)
	}

	cmd.Printf("Synchronising every %s (Ctrl+C to stop)\n", syncEvery)
	scheduler := newScheduler(syncEvery, opts, func(report *driving.SyncReport, err error) {
		if report != nil {
			printSyncReport(cmd, report)
		}
		if err != nil {
			cmd.PrintErrln(errorStyle.Render(fmt.Sprintf("sync failed: %v", err)))
		}
	})

	err := scheduler.Start(cmd.Context())
	if errors.Is(err, context.Canceled) {
		task := scheduler.Task()
		cmd.Printf("Stopped after %d runs, %d failed\n", task.Runs, task.Failures)
		return nil
	}
	return err
}

// syncWithProgress runs the cycle while drawing a chunk progress bar.
func syncWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	pipeline driving.SyncPipeline,
	opts driving.RunOptions,
) (*driving.SyncReport, error) {
	type result struct {
		report *driving.SyncReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := pipeline.Run(ctx, opts)
		done <- result{report, err}
	}()

	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	drawn := false
	draw := func() {
		// Status is best effort; a failed poll just skips a frame.
		status, err := pipeline.Status(ctx)
		if err != nil || status == nil || status.ChunksTotal == 0 {
			return
		}
		frac := float64(status.ChunksCompleted) / float64(status.ChunksTotal)
		cmd.Printf("\r%s %d/%d chunks", bar.ViewAs(frac), status.ChunksCompleted, status.ChunksTotal)
		drawn = true
	}

	for {
		select {
		case r := <-done:
			if drawn {
				draw()
				cmd.Println()
			}
			return r.report, r.err
		case <-ticker.C:
			draw()
		}
	}
}

func printSyncReport(cmd *cobra.Command, r *driving.SyncReport) {
	cmd.Println()
	cmd.Println(titleStyle.Render(fmt.Sprintf("Sync %s", r.RunID)))
	if r.FirstRun {
		cmd.Println(mutedStyle.Render("  first run: no previous snapshot"))
	}

	cmd.Println(line("Workbooks", "%d changed, %d up to date",
		len(r.Changes.NeedsUpdate), len(r.Changes.UpToDate)))

	failed := domain.FailedCount(r.Transfers)
	cmd.Println(line("Downloads", "%d ok, %d failed", len(r.Transfers)-failed, failed))
	for _, t := range r.Transfers {
		if !t.Ok() {
			cmd.Println(errorStyle.Render(fmt.Sprintf("    %s: %v", t.ID, t.Err)))
		}
	}

	cmd.Println(line("Anomalies", "%d", len(r.Anomalies)))
	for _, a := range r.Anomalies {
		cmd.Println(warningStyle.Render("    " + a.Error()))
	}

	rs := r.Reconcile
	cmd.Println(line("Definitions", "%d created (%d undescribed), %d corrected, %d unchanged",
		rs.Created, rs.Placeholders, rs.Corrected, rs.Unchanged))
	if rs.DuplicateCorrections > 0 || rs.SkippedCorrections > 0 {
		cmd.Println(warningStyle.Render(fmt.Sprintf("    %d duplicate and %d unnamed correction rows ignored",
			rs.DuplicateCorrections, rs.SkippedCorrections)))
	}

	if r.Counts != nil {
		cmd.Println(line("Tables", "%d fields, %d reports, %d links",
			r.Counts.Fields, r.Counts.Reports, r.Counts.Bridge))
	}
	if r.Insert != nil {
		if r.Insert.BridgeDropped > 0 {
			cmd.Println(warningStyle.Render(fmt.Sprintf("    %d links did not resolve and were dropped", r.Insert.BridgeDropped)))
		}
		if err := r.Insert.Err(); err != nil {
			cmd.Println(errorStyle.Render(fmt.Sprintf("    row failures: %v", err)))
		}
	}
	if r.QueriesWritten > 0 {
		cmd.Println(line("Queries", "%d archived", r.QueriesWritten))
	}
	if r.CatalogErr != nil {
		cmd.Println(warningStyle.Render(fmt.Sprintf("  catalog incomplete: %v", r.CatalogErr)))
	}

	if r.SnapshotSaved {
		cmd.Println(line("Snapshot", "%s", successStyle.Render("saved")))
	} else {
		cmd.Println(line("Snapshot", "%s", warningStyle.Render("not saved, changes will be retried")))
	}
	if !r.FinishedAt.IsZero() {
		cmd.Println(mutedStyle.Render(fmt.Sprintf("  finished in %s", r.Duration().Round(time.Millisecond))))
	}
}
