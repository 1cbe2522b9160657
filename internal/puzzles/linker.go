package puzzles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"chess-coach-backend/internal/principal"
	"chess-coach-backend/internal/reasoning"
	"chess-coach-backend/internal/shared/telemetry"
)

// DefaultLinkTimeout bounds one batch write when Linker.Timeout is unset.
const DefaultLinkTimeout = 10 * time.Second

// Linker turns puzzle candidates into stored puzzles and returns their ids.
type Linker struct {
	Repo    Repo
	Timeout time.Duration
	NewID   func() string
	Now     func() time.Time
}

// NewLinker constructs a Linker over repo.
func NewLinker(repo Repo, timeout time.Duration) *Linker {
	return &Linker{Repo: repo, Timeout: timeout}
}

// Link persists candidates for owner as one batch and returns the new ids in
// candidate order. Guests and empty batches are a no-op.
func (l *Linker) Link(ctx context.Context, candidates []reasoning.PuzzleCandidate, owner principal.Owner, sourceJobID string) ([]string, error) {
	if len(candidates) == 0 {
		return []string{}, nil
	}
	var ownerID string
	switch o := owner.(type) {
	case principal.GuestOwner:
		telemetry.Info("puzzles.link_skipped", map[string]any{
			"job_id": sourceJobID,
			"reason": "guest_owner",
			"count":  len(candidates),
		})
		return []string{}, nil
	case principal.AuthenticatedOwner:
		ownerID = strings.TrimSpace(o.ID)
	default:
		return nil, fmt.Errorf("link puzzles: unsupported owner %T", owner)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("link puzzles: empty owner id")
	}
	if l.Repo == nil {
		return nil, fmt.Errorf("link puzzles: repo not configured")
	}

	now := l.now()
	var jobRef *string
	if sourceJobID != "" {
		id := sourceJobID
		jobRef = &id
	}

	batch := make([]Puzzle, 0, len(candidates))
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		p := Puzzle{
			ID:          l.newID(),
			OwnerID:     ownerID,
			SourceJobID: jobRef,
			Title:       c.Title,
			Description: c.Description,
			FEN:         c.FEN,
			Solution:    append([]string(nil), c.Solution...),
			Difficulty:  reasoning.NormalizeDifficulty(c.Difficulty),
			Theme:       c.Theme,
			CreatedAt:   now,
		}
		if h := strings.TrimSpace(c.Hint); h != "" {
			p.Hint = &h
		}
		batch = append(batch, p)
		ids = append(ids, p.ID)
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultLinkTimeout
	}
	writeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := l.Repo.CreateBatch(writeCtx, batch); err != nil {
		return nil, fmt.Errorf("link puzzles: %w", err)
	}
	return ids, nil
}

func (l *Linker) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

func (l *Linker) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}
