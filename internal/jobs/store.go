package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/scribe/internal/pipeline"
)

// Store persists job records.
type Store interface {
	Create(ctx context.Context, job Job) (*Job, error)
	Find(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, filters Filters) ([]Job, error)
	// MarkRunning claims a pending job. A job that is not pending returns
	// ErrNotFound, so a job queued twice runs once.
	MarkRunning(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, text string, reports []pipeline.Report) error
	Fail(ctx context.Context, id uuid.UUID, stage string, cause error, reports []pipeline.Report) error
	// Requeue returns running jobs to pending and reports how many moved.
	Requeue(ctx context.Context) (int64, error)
	// Pending returns pending jobs, oldest first.
	Pending(ctx context.Context) ([]uuid.UUID, error)
}
