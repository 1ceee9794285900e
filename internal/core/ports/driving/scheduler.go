package driving

import (
	"context"

	"github.com/custodia-labs/bisync/internal/core/domain"
)

// Scheduler runs sync cycles on a fixed interval.
type Scheduler interface {
	// Start runs a cycle immediately and then once per interval.
	// Blocks until the context is cancelled or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop after the cycle in flight, if any, finishes.
	Stop() error

	// Task returns the schedule state.
	Task() domain.ScheduledTask
}
