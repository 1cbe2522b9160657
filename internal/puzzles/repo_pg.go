package puzzles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"chess-coach-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const puzzleColumns = `id, owner_id, source_job_id, title, description, fen, solution, hint, difficulty, theme, created_at`

// CreateBatch inserts every puzzle in one transaction.
func (r *PGRepo) CreateBatch(ctx context.Context, batch []Puzzle) error {
	if len(batch) == 0 {
		return nil
	}
	const query = `
INSERT INTO puzzles (` + puzzleColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11)`
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, p := range batch {
			solution, err := json.Marshal(nonNilMoves(p.Solution))
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, query,
				p.ID,
				p.OwnerID,
				p.SourceJobID,
				p.Title,
				p.Description,
				p.FEN,
				solution,
				p.Hint,
				p.Difficulty,
				p.Theme,
				p.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert puzzle %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

// GetByID returns a puzzle by id.
func (r *PGRepo) GetByID(ctx context.Context, id string) (Puzzle, error) {
	const query = `SELECT ` + puzzleColumns + ` FROM puzzles WHERE id = $1 LIMIT 1`
	p, err := scanPuzzle(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Puzzle{}, ErrNotFound
		}
		return Puzzle{}, err
	}
	return p, nil
}

// ListByOwner lists an owner's puzzles newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Puzzle, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + puzzleColumns + `
FROM puzzles
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// ListBySourceJob lists the puzzles linked to a job.
func (r *PGRepo) ListBySourceJob(ctx context.Context, jobID string) ([]Puzzle, error) {
	const query = `
SELECT ` + puzzleColumns + `
FROM puzzles
WHERE source_job_id = $1
ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPuzzle(row rowScanner) (Puzzle, error) {
	var p Puzzle
	var sourceJobID sql.NullString
	var solution []byte
	var hint sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&sourceJobID,
		&p.Title,
		&p.Description,
		&p.FEN,
		&solution,
		&hint,
		&p.Difficulty,
		&p.Theme,
		&p.CreatedAt,
	); err != nil {
		return Puzzle{}, err
	}
	if sourceJobID.Valid {
		p.SourceJobID = &sourceJobID.String
	}
	if hint.Valid {
		p.Hint = &hint.String
	}
	if len(solution) > 0 {
		if err := json.Unmarshal(solution, &p.Solution); err != nil {
			return Puzzle{}, fmt.Errorf("decode solution for puzzle %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func collect(rows *sql.Rows) ([]Puzzle, error) {
	defer rows.Close()
	out := []Puzzle{}
	for rows.Next() {
		p, err := scanPuzzle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func nonNilMoves(moves []string) []string {
	if moves == nil {
		return []string{}
	}
	return moves
}

var _ Repo = (*PGRepo)(nil)
var _ Repo = (*MemoryRepo)(nil)
