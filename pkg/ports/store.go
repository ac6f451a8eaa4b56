package ports

import (
	"context"

	"github.com/loopforge/conveyor/pkg/domain"
)

// RunStore persists run summaries, enabling the status server and run
// history across engine restarts.
type RunStore interface {
	// Save persists the summary under its run ID.
	Save(ctx context.Context, summary *domain.RunSummary) error

	// Load retrieves a summary by run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.RunSummary, error)

	// List returns the known run IDs.
	List(ctx context.Context) ([]string, error)

	// Delete removes the summary for a run ID.
	Delete(ctx context.Context, runID string) error
}
