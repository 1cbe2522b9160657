package puzzles

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryRepo stores puzzles in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Puzzle
	byOwner map[string][]string
	// FailAfter, when positive, makes CreateBatch fail once that many puzzles
	// of the batch have been validated. Used to exercise rollback in tests.
	FailAfter int
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Puzzle),
		byOwner: make(map[string][]string),
	}
}

// CreateBatch validates the whole batch before storing any of it.
func (r *MemoryRepo) CreateBatch(ctx context.Context, batch []Puzzle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(batch))
	for i, p := range batch {
		if r.FailAfter > 0 && i >= r.FailAfter {
			return fmt.Errorf("insert puzzle %d: simulated failure", i)
		}
		if p.ID == "" {
			return fmt.Errorf("insert puzzle %d: empty id", i)
		}
		if _, dup := r.byID[p.ID]; dup {
			return fmt.Errorf("insert puzzle %s: duplicate id", p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("insert puzzle %s: duplicate id in batch", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	for _, p := range batch {
		r.byID[p.ID] = p
		r.byOwner[p.OwnerID] = append(r.byOwner[p.OwnerID], p.ID)
	}
	return nil
}

// GetByID returns a puzzle by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return Puzzle{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return Puzzle{}, ErrNotFound
	}
	return p, nil
}

// ListByOwner returns an owner's puzzles, newest first.
func (r *MemoryRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	r.mu.RLock()
	ids := r.byOwner[ownerID]
	out := make([]Puzzle, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []Puzzle{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// ListBySourceJob returns the puzzles linked to a job in insertion order.
func (r *MemoryRepo) ListBySourceJob(ctx context.Context, jobID string) ([]Puzzle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []Puzzle{}
	for _, ids := range r.byOwner {
		for _, id := range ids {
			p := r.byID[id]
			if p.SourceJobID != nil && *p.SourceJobID == jobID {
				out = append(out, p)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Count returns the number of stored puzzles.
func (r *MemoryRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
