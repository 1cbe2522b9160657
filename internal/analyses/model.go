package analyses

import (
	"time"

	"chess-coach-backend/internal/games"
	"chess-coach-backend/internal/principal"
	"chess-coach-backend/internal/reasoning"
)

// Status is the lifecycle state of a Job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether s -> next is a legal step.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Result is the committed analysis. Puzzles are referenced by id only.
type Result struct {
	reasoning.Critique
	PuzzleIDs []string `json:"puzzle_ids"`
}

// Job is one analysis request for a single submitted game.
type Job struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"ownerId"`
	Status         Status         `json:"status"`
	GameText       string         `json:"gameText"`
	SubjectName    string         `json:"subjectName"`
	SubjectColor   games.Color    `json:"subjectColor"`
	Metadata       games.Metadata `json:"metadata"`
	Result         *Result        `json:"result,omitempty"`
	Error          *string        `json:"error,omitempty"`
	ErrorCode      string         `json:"errorCode,omitempty"`
	ErrorRetryable bool           `json:"errorRetryable,omitempty"`
	Provider       string         `json:"provider,omitempty"`
	Model          string         `json:"model,omitempty"`
	PromptHash     string         `json:"promptHash,omitempty"`
	RawResponseKey string         `json:"rawResponseKey,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	StartedAt      *time.Time     `json:"startedAt,omitempty"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
}

// Owner returns the principal that submitted the job.
func (j Job) Owner() principal.Owner {
	return principal.Parse(j.OwnerID)
}
