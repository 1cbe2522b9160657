package analyses

import (
	"context"
	"time"
)

// Repo is the durable store for jobs and the single source of truth for status.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	// Update replaces the stored job. It fails with ErrStaleUpdate when the
	// job is missing or the stored status cannot move to job.Status.
	Update(ctx context.Context, job Job) error
	// CompareAndSetStatus moves jobID from expected to next in one atomic
	// step and reports whether it did.
	CompareAndSetStatus(ctx context.Context, jobID string, expected, next Status) (bool, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Job, error)
	ListAllByOwner(ctx context.Context, ownerID string) ([]Job, error)
	// ListStuck returns processing jobs claimed before olderThan.
	ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]Job, error)
}
