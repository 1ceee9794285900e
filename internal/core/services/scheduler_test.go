package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/bisync/internal/core/domain"
	"github.com/custodia-labs/bisync/internal/core/ports/driving"
)

// countingPipeline implements driving.SyncPipeline for scheduler tests.
type countingPipeline struct {
	mu   sync.Mutex
	runs int
	errs []error
	opts []driving.RunOptions
}

func (p *countingPipeline) Run(_ context.Context, opts driving.RunOptions) (*driving.SyncReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.runs < len(p.errs) {
		err = p.errs[p.runs]
	}
	p.runs++
	p.opts = append(p.opts, opts)
	return &driving.SyncReport{RunID: "run"}, err
}

func (p *countingPipeline) Status(_ context.Context) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{Stage: driving.StageIdle}, nil
}

func (p *countingPipeline) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func TestScheduler_RunsImmediatelyAndRepeats(t *testing.T) {
	pipeline := &countingPipeline{errs: []error{domain.ErrConnectionLost}}
	var (
		mu      sync.Mutex
		results []error
	)
	s := NewScheduler(pipeline, 10*time.Millisecond, driving.RunOptions{Workers: 2},
		func(_ *driving.SyncReport, err error) {
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return pipeline.count() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(results), 3)
	assert.ErrorIs(t, results[0], domain.ErrConnectionLost)
	assert.NoError(t, results[1])

	task := s.Task()
	assert.Equal(t, 1, task.Failures)
	assert.GreaterOrEqual(t, task.Runs, 3)
	assert.Empty(t, task.LastError)
	assert.Equal(t, 2, pipeline.opts[0].Workers)
}

func TestScheduler_Stop(t *testing.T) {
	pipeline := &countingPipeline{}
	s := NewScheduler(pipeline, time.Hour, driving.RunOptions{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, func() bool { return pipeline.count() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 1, pipeline.count())
	assert.False(t, s.Task().LastSuccess.IsZero())
}

func TestScheduler_StopWhenNotRunning(t *testing.T) {
	s := NewScheduler(&countingPipeline{}, time.Hour, driving.RunOptions{}, nil)
	assert.NoError(t, s.Stop())
}

func TestScheduler_RejectsZeroInterval(t *testing.T) {
	pipeline := &countingPipeline{}
	s := NewScheduler(pipeline, 0, driving.RunOptions{}, nil)

	err := s.Start(context.Background())

	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Zero(t, pipeline.count())
}
