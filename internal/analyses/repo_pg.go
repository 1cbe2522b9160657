package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chess-coach-backend/internal/games"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const jobColumns = `id, owner_id, status, game_text, subject_name, subject_color, metadata, result,
	error_message, error_code, error_retryable, provider, model, prompt_hash, raw_response_key,
	created_at, updated_at, started_at, completed_at`

// Create inserts a new job.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	const query = `
INSERT INTO analysis_jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	args, err := jobArgs(job)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query, args...)
	return err
}

// GetByID returns a job by id.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	const query = `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id = $1 LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// Update replaces the mutable columns of a job. The WHERE clause only admits
// an unchanged status or a legal forward transition.
func (r *PGRepo) Update(ctx context.Context, job Job) error {
	const query = `
UPDATE analysis_jobs
SET status = $2,
	result = $3::jsonb,
	error_message = $4,
	error_code = $5,
	error_retryable = $6,
	provider = $7,
	model = $8,
	prompt_hash = $9,
	raw_response_key = $10,
	updated_at = $11,
	started_at = $12,
	completed_at = $13
WHERE id = $1
  AND (status = $2
	OR (status = 'pending' AND $2 = 'processing')
	OR (status = 'processing' AND $2 IN ('completed', 'failed')))`
	result, err := marshalResult(job.Result)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		result,
		job.Error,
		nullString(job.ErrorCode),
		nullRetryable(job),
		nullString(job.Provider),
		nullString(job.Model),
		nullString(job.PromptHash),
		nullString(job.RawResponseKey),
		job.UpdatedAt,
		job.StartedAt,
		job.CompletedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleUpdate
	}
	return nil
}

// CompareAndSetStatus performs the claim as a single conditional UPDATE.
func (r *PGRepo) CompareAndSetStatus(ctx context.Context, jobID string, expected, next Status) (bool, error) {
	if !expected.CanTransitionTo(next) {
		return false, nil
	}
	const query = `
UPDATE analysis_jobs
SET status = $3,
	updated_at = now(),
	started_at = CASE WHEN $3 = 'processing' THEN COALESCE(started_at, now()) ELSE started_at END
WHERE id = $1 AND status = $2`
	res, err := r.DB.ExecContext(ctx, query, jobID, string(expected), string(next))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListByOwner lists an owner's jobs newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]Job, error) {
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
SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

// ListAllByOwner lists every job of an owner newest first.
func (r *PGRepo) ListAllByOwner(ctx context.Context, ownerID string) ([]Job, error) {
	const query = `
SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE owner_id = $1
ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

// ListStuck lists processing jobs claimed before olderThan, oldest first.
func (r *PGRepo) ListStuck(ctx context.Context, olderThan time.Time, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE status = 'processing' AND started_at < $1
ORDER BY started_at ASC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, err
	}
	return collectJobs(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var job Job
	var status, color string
	var metadata, result []byte
	var errMsg, errCode, provider, model, promptHash, rawKey sql.NullString
	var retryable sql.NullBool
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&status,
		&job.GameText,
		&job.SubjectName,
		&color,
		&metadata,
		&result,
		&errMsg,
		&errCode,
		&retryable,
		&provider,
		&model,
		&promptHash,
		&rawKey,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Job{}, err
	}
	job.Status = Status(status)
	job.SubjectColor = games.Color(color)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &job.Metadata); err != nil {
			return Job{}, fmt.Errorf("decode metadata for job %s: %w", job.ID, err)
		}
	}
	if len(result) > 0 && string(result) != "null" {
		var res Result
		if err := json.Unmarshal(result, &res); err != nil {
			return Job{}, fmt.Errorf("decode result for job %s: %w", job.ID, err)
		}
		job.Result = &res
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}
	job.ErrorCode = errCode.String
	job.ErrorRetryable = retryable.Valid && retryable.Bool
	job.Provider = provider.String
	job.Model = model.String
	job.PromptHash = promptHash.String
	job.RawResponseKey = rawKey.String
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func collectJobs(rows *sql.Rows) ([]Job, error) {
	defer rows.Close()
	out := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func jobArgs(job Job) ([]any, error) {
	metadata, err := json.Marshal(job.Metadata)
	if err != nil {
		return nil, err
	}
	result, err := marshalResult(job.Result)
	if err != nil {
		return nil, err
	}
	return []any{
		job.ID,
		job.OwnerID,
		string(job.Status),
		job.GameText,
		job.SubjectName,
		string(job.SubjectColor),
		metadata,
		result,
		job.Error,
		nullString(job.ErrorCode),
		nullRetryable(job),
		nullString(job.Provider),
		nullString(job.Model),
		nullString(job.PromptHash),
		nullString(job.RawResponseKey),
		job.CreatedAt,
		job.UpdatedAt,
		job.StartedAt,
		job.CompletedAt,
	}, nil
}

func marshalResult(res *Result) (any, error) {
	if res == nil {
		return nil, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullRetryable(job Job) sql.NullBool {
	return sql.NullBool{Bool: job.ErrorRetryable, Valid: job.Status == StatusFailed}
}

var _ Repo = (*PGRepo)(nil)
var _ Repo = (*MemoryRepo)(nil)
