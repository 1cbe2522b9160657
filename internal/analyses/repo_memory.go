package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.Mutex
	jobs map[string]Job
	now  func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		jobs: make(map[string]Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return ErrInvalidInput
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetByID returns a job by id.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return cloneJob(job), nil
}

// Update replaces a stored job when its status transition is legal.
func (r *MemoryRepo) Update(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.jobs[job.ID]
	if !ok {
		return ErrStaleUpdate
	}
	if current.Status != job.Status && !current.Status.CanTransitionTo(job.Status) {
		return ErrStaleUpdate
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// CompareAndSetStatus moves a job from expected to next under the repo lock.
func (r *MemoryRepo) CompareAndSetStatus(ctx context.Context, jobID string, expected, next Status) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok || job.Status != expected || !expected.CanTransitionTo(next) {
		return false, nil
	}
	now := r.now()
	job.Status = next
	job.UpdatedAt = now
	if next == StatusProcessing && job.StartedAt == nil {
		job.StartedAt = &now
	}
	r.jobs[jobID] = job
	return true, nil
}

// ListByOwner returns an owner's jobs, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Job, error) {
	all, err := r.ListAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []Job{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// ListAllByOwner returns every job of an owner, newest first.
func (r *MemoryRepo) ListAllByOwner(ctx context.Context, ownerID string) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := []Job{}
	for _, job := range r.jobs {
		if job.OwnerID == ownerID {
			out = append(out, cloneJob(job))
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListStuck returns processing jobs whose claim is older than olderThan.
func (r *MemoryRepo) ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	out := []Job{}
	for _, job := range r.jobs {
		if job.Status == StatusProcessing && job.StartedAt != nil && job.StartedAt.Before(olderThan) {
			out = append(out, cloneJob(job))
		}
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(*out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneJob(job Job) Job {
	if job.Result != nil {
		res := *job.Result
		res.PuzzleIDs = append([]string{}, job.Result.PuzzleIDs...)
		job.Result = &res
	}
	if job.Error != nil {
		msg := *job.Error
		job.Error = &msg
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		job.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		job.CompletedAt = &t
	}
	return job
}
