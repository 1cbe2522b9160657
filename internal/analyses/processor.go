package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chess-coach-backend/internal/reasoning"
	"chess-coach-backend/internal/shared/metrics"
	"chess-coach-backend/internal/shared/storage/object"
	"chess-coach-backend/internal/shared/telemetry"
)

// ProcessJob drives one job from PENDING to a terminal state. Redundant or
// late invocations are no-ops. Only a failure to commit the terminal state is
// returned, as a *PersistenceError, so the caller can redeliver.
func (s *Service) ProcessJob(ctx context.Context, jobID string) error {
	requestID := RequestIDFromContext(ctx)
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.IncAnalysisSkipped()
			telemetry.Warn("analysis.skipped", map[string]any{
				"request_id": requestID,
				"job_id":     jobID,
				"reason":     "not_found",
			})
			return nil
		}
		return &PersistenceError{Op: "load", JobID: jobID, Err: err}
	}
	if job.Status != StatusPending {
		metrics.IncAnalysisSkipped()
		telemetry.Info("analysis.skipped", map[string]any{
			"request_id": requestID,
			"job_id":     jobID,
			"status":     job.Status,
			"reason":     "not_pending",
		})
		return nil
	}

	claimed, err := s.Repo.CompareAndSetStatus(ctx, jobID, StatusPending, StatusProcessing)
	if err != nil {
		return &PersistenceError{Op: "claim", JobID: jobID, Err: err}
	}
	if !claimed {
		metrics.IncAnalysisSkipped()
		telemetry.Info("analysis.skipped", map[string]any{
			"request_id": requestID,
			"job_id":     jobID,
			"reason":     "claim_lost",
		})
		return nil
	}

	// The claim is held from here on; cancellation of the delivery must not
	// strand the job in PROCESSING.
	ctx = context.WithoutCancel(ctx)
	job = s.claimedJob(ctx, job)
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        requestID,
		"owner_id":          job.OwnerID,
		"job_id":            job.ID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})
	return s.run(ctx, job)
}

// claimedJob re-reads the job after the claim so the terminal write keeps the
// started_at the store assigned. The local clock is the fallback.
func (s *Service) claimedJob(ctx context.Context, job Job) Job {
	if fresh, err := s.Repo.GetByID(ctx, job.ID); err == nil && fresh.Status == StatusProcessing && fresh.StartedAt != nil {
		return fresh
	} else if err != nil {
		telemetry.Warn("analysis.claim_reload_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"job_id":     job.ID,
			"error":      err.Error(),
		})
	}
	now := s.now()
	job.Status = StatusProcessing
	job.StartedAt = &now
	job.UpdatedAt = now
	return job
}

func (s *Service) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = s.commitFailed(ctx, job, fmt.Errorf("panic: %v", r))
		}
	}()

	if s.Analyzer == nil {
		return s.commitFailed(ctx, job, errors.New("missing reasoning client"))
	}
	res, analyzeErr := s.Analyzer.Analyze(ctx, reasoning.Input{
		GameText:     job.GameText,
		SubjectName:  job.SubjectName,
		SubjectColor: job.SubjectColor,
		Metadata:     job.Metadata,
	})
	job.PromptHash = res.PromptHash
	job.RawResponseKey = s.archiveRaw(ctx, job.ID, res.Raw)
	if analyzeErr != nil {
		return s.commitFailed(ctx, job, analyzeErr)
	}

	puzzleIDs := s.linkPuzzles(ctx, job, res.Puzzles)
	return s.commitCompleted(ctx, job, res.Critique, puzzleIDs)
}

func (s *Service) linkPuzzles(ctx context.Context, job Job, candidates []reasoning.PuzzleCandidate) []string {
	if s.Linker == nil {
		return []string{}
	}
	ids, err := s.link(ctx, candidates, job)
	if err != nil {
		metrics.IncPuzzleLinkFailure()
		telemetry.Warn("analysis.puzzle_link_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"job_id":     job.ID,
			"candidates": len(candidates),
			"error":      err.Error(),
		})
		return []string{}
	}
	if ids == nil {
		return []string{}
	}
	metrics.AddPuzzlesLinked(len(ids))
	return ids
}

// link calls the linker, turning a panic into an error so the analysis
// still completes.
func (s *Service) link(ctx context.Context, candidates []reasoning.PuzzleCandidate, job Job) (ids []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			ids, err = nil, fmt.Errorf("linker panic: %v", r)
		}
	}()
	return s.Linker.Link(ctx, candidates, job.Owner(), job.ID)
}

func (s *Service) commitCompleted(ctx context.Context, job Job, critique reasoning.Critique, puzzleIDs []string) error {
	completedAt := s.now()
	job.Status = StatusCompleted
	job.Result = &Result{Critique: critique, PuzzleIDs: puzzleIDs}
	job.Error = nil
	job.ErrorCode = ""
	job.ErrorRetryable = false
	job.UpdatedAt = completedAt
	job.CompletedAt = &completedAt
	if err := s.Repo.Update(ctx, job); err != nil {
		return &PersistenceError{Op: "complete", JobID: job.ID, Err: err}
	}
	elapsed := durationMs(job.StartedAt, &completedAt)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(elapsed)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"owner_id":          job.OwnerID,
		"job_id":            job.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"puzzles":           len(puzzleIDs),
		"duration_ms":       elapsed,
	})
	return nil
}

func (s *Service) commitFailed(ctx context.Context, job Job, cause error) error {
	code, retryable := classifyFailure(cause)
	msg := sanitizeError(cause)
	now := s.now()
	job.Status = StatusFailed
	job.Result = nil
	job.Error = &msg
	job.ErrorCode = code
	job.ErrorRetryable = retryable
	job.UpdatedAt = now
	job.CompletedAt = nil
	if err := s.Repo.Update(ctx, job); err != nil {
		return &PersistenceError{Op: "fail", JobID: job.ID, Err: err}
	}
	elapsed := durationMs(job.StartedAt, &now)
	metrics.IncAnalysisFailed(code)
	metrics.ObserveAnalysisDurationMs(elapsed)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"owner_id":          job.OwnerID,
		"job_id":            job.ID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"retryable":         retryable,
		"duration_ms":       elapsed,
	})
	return nil
}

// archiveRaw stores the raw reasoning output and returns its key, or "" when
// nothing was stored.
func (s *Service) archiveRaw(ctx context.Context, jobID, raw string) string {
	if s.Store == nil || raw == "" {
		return ""
	}
	key := object.RawResponseKey(jobID)
	if _, err := s.Store.Put(ctx, key, "text/plain; charset=utf-8", strings.NewReader(raw)); err != nil {
		telemetry.Warn("analysis.raw_archive_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"job_id":     jobID,
			"error":      err.Error(),
		})
		return ""
	}
	return key
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}
