package puzzles

import "context"

// Repo persists puzzles.
type Repo interface {
	// CreateBatch stores all puzzles or none of them.
	CreateBatch(ctx context.Context, batch []Puzzle) error
	GetByID(ctx context.Context, id string) (Puzzle, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Puzzle, error)
	ListBySourceJob(ctx context.Context, jobID string) ([]Puzzle, error)
}
