package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driven"
	"github.com/custodia-labs/bisync/internal/logger"
)

// ProgressFunc receives the number of completed chunks and the chunk total.
// It is called from worker goroutines and must be safe for concurrent use.
type ProgressFunc func(completed, total int)

// TransferOption configures a TransferEngine.
type TransferOption func(*TransferEngine)

// WithWorkers sets the number of chunks transferred concurrently.
// Values below one are treated as one.
func WithWorkers(n int) TransferOption {
	return func(e *TransferEngine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithProgress registers a chunk progress callback.
func WithProgress(fn ProgressFunc) TransferOption {
	return func(e *TransferEngine) {
		e.progress = fn
	}
}

// TransferEngine moves assets between the content server and local disk
// in contiguous chunks, with at most W chunks in flight.
type TransferEngine struct {
	server   driven.ContentServer
	workers  int
	progress ProgressFunc

	completed atomic.Int64
	chunks    atomic.Int64
}

// NewTransferEngine creates a transfer engine.
func NewTransferEngine(server driven.ContentServer, opts ...TransferOption) *TransferEngine {
	e := &TransferEngine{
		server:  server,
		workers: domain.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Workers returns the configured concurrency.
func (e *TransferEngine) Workers() int {
	return e.workers
}

// CompletedChunks returns how many chunks of the current transfer have finished.
func (e *TransferEngine) CompletedChunks() int {
	return int(e.completed.Load())
}

// TotalChunks returns how many chunks the current transfer was split into.
func (e *TransferEngine) TotalChunks() int {
	return int(e.chunks.Load())
}

// Chunk splits ids into contiguous chunks of max(1, total/workers) items.
// The last chunk may be shorter.
func Chunk(ids []string, total, workers int) [][]string {
	if len(ids) == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	size := max(1, total/workers)

	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

// Download fetches every asset into the directory returned by dirFor.
// Results come back in the order of ids. Failed items keep their slot with
// Err set. The returned error joins chunk-level failures only.
func (e *TransferEngine) Download(ctx context.Context, ids []string, total int,
	dirFor func(id string) string) ([]domain.TransferResult, error) {
	return e.run(ctx, ids, total, func(ctx context.Context, id string) domain.TransferResult {
		path, err := e.server.Download(ctx, id, dirFor(id))
		if err != nil {
			return domain.TransferResult{ID: id, Err: fmt.Errorf("download %s: %w", id, err)}
		}
		return domain.TransferResult{ID: id, Path: path}
	})
}

// Upload publishes every local path using the given mode.
// The chunk size is computed from len(paths).
func (e *TransferEngine) Upload(ctx context.Context, paths []string,
	mode domain.PublishMode) ([]domain.TransferResult, error) {
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: publish mode %q", domain.ErrInvalidInput, mode)
	}
	return e.run(ctx, paths, len(paths), func(ctx context.Context, path string) domain.TransferResult {
		remoteID, err := e.server.Upload(ctx, path, mode)
		if err != nil {
			return domain.TransferResult{ID: path, Err: fmt.Errorf("upload %s: %w", path, err)}
		}
		return domain.TransferResult{ID: path, RemoteID: remoteID}
	})
}

type transferFunc func(ctx context.Context, item string) domain.TransferResult

func (e *TransferEngine) run(ctx context.Context, items []string, total int,
	transfer transferFunc) ([]domain.TransferResult, error) {
	chunks := Chunk(items, total, e.workers)

	e.completed.Store(0)
	e.chunks.Store(int64(len(chunks)))
	logger.Debug("Transfer: %d items in %d chunks, %d workers", len(items), len(chunks), e.workers)

	results := make([][]domain.TransferResult, len(chunks))
	chunkErrs := make([]error, len(chunks))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			results[i], chunkErrs[i] = e.runChunk(ctx, chunk, transfer)
			done := int(e.completed.Add(1))
			if e.progress != nil {
				e.progress(done, len(chunks))
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.TransferResult, 0, len(items))
	for _, r := range results {
		out = append(out, r...)
	}

	var errs []error
	for i, err := range chunkErrs {
		if err != nil {
			errs = append(errs, fmt.Errorf("chunk %d: %w", i, err))
		}
	}
	return out, errors.Join(errs...)
}

// runChunk transfers items one after another. A connection loss or context
// cancellation stops the chunk; the remaining items inherit that error.
func (e *TransferEngine) runChunk(ctx context.Context, items []string,
	transfer transferFunc) ([]domain.TransferResult, error) {
	results := make([]domain.TransferResult, 0, len(items))

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return abortChunk(results, items[i:], err), err
		}

		res := transfer(ctx, item)
		results = append(results, res)
		if res.Ok() {
			continue
		}

		logger.Warn("Transfer failed: %v", res.Err)
		if isChunkFatal(ctx, res.Err) {
			return abortChunk(results, items[i+1:], res.Err), res.Err
		}
	}
	return results, nil
}

func abortChunk(results []domain.TransferResult, rest []string, err error) []domain.TransferResult {
	for _, item := range rest {
		results = append(results, domain.TransferResult{ID: item, Err: err})
	}
	return results
}

func isChunkFatal(ctx context.Context, err error) bool {
	return errors.Is(err, domain.ErrConnectionLost) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		ctx.Err() != nil
}
