package puzzles

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-coach-backend/internal/principal"
	"chess-coach-backend/internal/reasoning"
)

func candidates() []reasoning.PuzzleCandidate {
	return []reasoning.PuzzleCandidate{
		{Title: "Pin", FEN: "fen-1", Solution: []string{"Bg5", "Qd7"}, Hint: " look ", Difficulty: "hard", Theme: "pin"},
		{Title: "Fork", FEN: "fen-2", Solution: []string{"Nc7+"}, Difficulty: "weird", Theme: "fork"},
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("pz-%d", n)
	}
}

func TestLinkPersistsBatchForAuthenticatedOwner(t *testing.T) {
	repo := NewMemoryRepo()
	linker := &Linker{Repo: repo, NewID: sequentialIDs(), Now: func() time.Time { return time.Unix(100, 0) }}

	ids, err := linker.Link(context.Background(), candidates(), principal.AuthenticatedOwner{ID: "user-1"}, "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"pz-1", "pz-2"}, ids)

	stored, err := repo.ListBySourceJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, p := range stored {
		require.NotNil(t, p.SourceJobID)
		assert.Equal(t, "job-1", *p.SourceJobID)
		assert.Equal(t, "user-1", p.OwnerID)
	}

	first, err := repo.GetByID(context.Background(), "pz-1")
	require.NoError(t, err)
	require.NotNil(t, first.Hint)
	assert.Equal(t, "look", *first.Hint)
	assert.Equal(t, "hard", first.Difficulty)

	second, err := repo.GetByID(context.Background(), "pz-2")
	require.NoError(t, err)
	assert.Nil(t, second.Hint)
	assert.Equal(t, "medium", second.Difficulty)
}

func TestLinkSkipsGuests(t *testing.T) {
	repo := NewMemoryRepo()
	linker := NewLinker(repo, time.Second)

	for _, owner := range []principal.Owner{principal.GuestOwner{}, principal.GuestOwner{SessionID: "abc"}} {
		ids, err := linker.Link(context.Background(), candidates(), owner, "job-1")
		require.NoError(t, err)
		assert.Empty(t, ids)
	}
	assert.Equal(t, 0, repo.Count())
}

func TestLinkEmptyCandidatesIsNoop(t *testing.T) {
	repo := NewMemoryRepo()
	linker := NewLinker(repo, time.Second)

	ids, err := linker.Link(context.Background(), nil, principal.AuthenticatedOwner{ID: "user-1"}, "job-1")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Equal(t, 0, repo.Count())
}

func TestLinkIsAllOrNothing(t *testing.T) {
	repo := NewMemoryRepo()
	repo.FailAfter = 1
	linker := NewLinker(repo, time.Second)

	ids, err := linker.Link(context.Background(), candidates(), principal.AuthenticatedOwner{ID: "user-1"}, "job-1")
	require.Error(t, err)
	assert.Nil(t, ids)
	assert.Equal(t, 0, repo.Count(), "a failed batch must not leave partial puzzles")
}

type slowRepo struct {
	*MemoryRepo
}

func (s slowRepo) CreateBatch(ctx context.Context, batch []Puzzle) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLinkHonoursTimeout(t *testing.T) {
	linker := NewLinker(slowRepo{NewMemoryRepo()}, 20*time.Millisecond)

	start := time.Now()
	_, err := linker.Link(context.Background(), candidates(), principal.AuthenticatedOwner{ID: "user-1"}, "job-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
