package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
	"github.com/custodia-labs/bisync/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// ResultFunc receives the outcome of every scheduled cycle.
type ResultFunc func(report *driving.SyncReport, err error)

// Scheduler repeats sync cycles on an interval.
// Cycles never overlap: a tick that arrives while a cycle runs is dropped.
type Scheduler struct {
	pipeline driving.SyncPipeline
	opts     driving.RunOptions
	onResult ResultFunc
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	task    domain.ScheduledTask
}

// NewScheduler creates a scheduler running pipeline every interval.
// onResult may be nil.
func NewScheduler(
	pipeline driving.SyncPipeline,
	interval time.Duration,
	opts driving.RunOptions,
	onResult ResultFunc,
) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		opts:     opts,
		onResult: onResult,
		now:      time.Now,
		task:     domain.ScheduledTask{Interval: interval},
	}
}

// Start runs the scheduler loop. It returns nil when stopped and the
// context error when the context ends.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.task.Interval <= 0 {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.runOnce(ctx)

	ticker := time.NewTicker(s.task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-ticker.C:
			if s.Task().Due(s.now()) {
				s.runOnce(ctx)
			}
		}
	}
}

// Stop ends the loop.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	close(s.stopCh)
	return nil
}

// Task returns a copy of the schedule state.
func (s *Scheduler) Task() domain.ScheduledTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

func (s *Scheduler) runOnce(ctx context.Context) {
	start := s.now()
	report, err := s.pipeline.Run(ctx, s.opts)
	end := s.now()

	s.mu.Lock()
	s.task.Record(start, end, err)
	next := s.task.NextRun
	s.mu.Unlock()

	switch {
	case err == nil:
		logger.Info("Scheduled sync finished, next at %s", next.Format(time.TimeOnly))
	case errors.Is(err, context.Canceled):
		logger.Debug("Scheduled sync cancelled")
	default:
		logger.Warn("Scheduled sync failed: %v", err)
	}

	if s.onResult != nil {
		s.onResult(report, err)
	}
}
