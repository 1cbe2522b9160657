package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chess-coach-backend/internal/games"
	"chess-coach-backend/internal/principal"
	"chess-coach-backend/internal/queue"
	"chess-coach-backend/internal/reasoning"
	"chess-coach-backend/internal/shared/storage/object"
	"chess-coach-backend/internal/shared/telemetry"
)

// MaxGameTextBytes bounds the size of a submitted game record.
const MaxGameTextBytes = 64 << 10

// Analyzer produces a critique and puzzle candidates for a game.
type Analyzer interface {
	Analyze(ctx context.Context, in reasoning.Input) (reasoning.Result, error)
}

// PuzzleLinker persists puzzle candidates for an owner and returns their ids.
type PuzzleLinker interface {
	Link(ctx context.Context, candidates []reasoning.PuzzleCandidate, owner principal.Owner, sourceJobID string) ([]string, error)
}

// Service contains business logic for analysis jobs.
type Service struct {
	Repo     Repo
	Analyzer Analyzer
	Linker   PuzzleLinker
	// Queue, when set, receives a message for every submitted job. Without
	// it jobs are processed in-process on a background goroutine.
	Queue    queue.Client
	Store    object.Store
	Provider string
	Model    string

	Now   func() time.Time
	NewID func() string

	inflight sync.WaitGroup
}

// SubmitInput is the caller-supplied part of a new job.
type SubmitInput struct {
	GameText     string
	SubjectName  string
	SubjectColor string
	Metadata     games.Metadata
}

// Submit creates a PENDING job and schedules it for processing.
func (s *Service) Submit(ctx context.Context, owner principal.Owner, in SubmitInput) (Job, error) {
	if owner == nil {
		return Job{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	gameText := strings.TrimSpace(in.GameText)
	if gameText == "" {
		return Job{}, fmt.Errorf("%w: gameText is required", ErrInvalidInput)
	}
	if len(gameText) > MaxGameTextBytes {
		return Job{}, fmt.Errorf("%w: gameText exceeds %d bytes", ErrInvalidInput, MaxGameTextBytes)
	}
	color, err := games.ParseColor(in.SubjectColor)
	if err != nil {
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.Queue == nil && s.Analyzer == nil {
		return Job{}, ErrProcessorNotReady
	}

	now := s.now()
	job := Job{
		ID:           s.newID(),
		OwnerID:      owner.OwnerID(),
		Status:       StatusPending,
		GameText:     gameText,
		SubjectName:  strings.TrimSpace(in.SubjectName),
		SubjectColor: color,
		Metadata:     trimMetadata(in.Metadata),
		Provider:     s.Provider,
		Model:        s.Model,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, job); err != nil {
		return Job{}, err
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id": RequestIDFromContext(ctx),
		"owner_id":   job.OwnerID,
		"job_id":     job.ID,
		"status":     StatusPending,
	})

	if s.Queue != nil {
		msg := queue.NewMessage(job.ID, RequestIDFromContext(ctx), now)
		if err := s.Queue.Send(ctx, msg); err != nil {
			telemetry.Error("analysis.enqueue_failed", map[string]any{
				"request_id": msg.RequestID,
				"job_id":     job.ID,
				"error":      err.Error(),
			})
			return job, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
		}
		return job, nil
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.processAsync(backgroundWithRequestID(ctx), job.ID)
	}()
	return job, nil
}

// Get returns a job by id.
func (s *Service) Get(ctx context.Context, jobID string) (Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return Job{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, jobID)
}

// GetForOwner returns a job only when owner submitted it.
func (s *Service) GetForOwner(ctx context.Context, owner principal.Owner, jobID string) (Job, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return Job{}, err
	}
	if owner == nil || job.OwnerID != owner.OwnerID() {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// List returns an owner's jobs newest first.
func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Job, error) {
	return s.Repo.ListByOwner(ctx, ownerID, limit, offset)
}

// ListStuck returns jobs that have been PROCESSING for longer than age.
func (s *Service) ListStuck(ctx context.Context, age time.Duration, limit int) ([]Job, error) {
	if age <= 0 {
		return nil, fmt.Errorf("%w: age must be positive", ErrInvalidInput)
	}
	return s.Repo.ListStuck(ctx, s.now().Add(-age), limit)
}

// Wait blocks until in-process jobs started by Submit finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) processAsync(ctx context.Context, jobID string) {
	if err := s.ProcessJob(ctx, jobID); err != nil {
		var persistErr *PersistenceError
		level := telemetry.Warn
		if errors.As(err, &persistErr) {
			level = telemetry.Error
		}
		level("analysis.process_failed", map[string]any{
			"request_id": RequestIDFromContext(ctx),
			"job_id":     jobID,
			"error":      err.Error(),
		})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func trimMetadata(m games.Metadata) games.Metadata {
	return games.Metadata{
		Opponent: strings.TrimSpace(m.Opponent),
		Result:   strings.TrimSpace(m.Result),
		Event:    strings.TrimSpace(m.Event),
		Date:     strings.TrimSpace(m.Date),
		Opening:  strings.TrimSpace(m.Opening),
		ECO:      strings.ToUpper(strings.TrimSpace(m.ECO)),
	}
}
