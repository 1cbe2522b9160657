package analyses

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"chess-coach-backend/internal/games"
	"chess-coach-backend/internal/principal"
	"chess-coach-backend/internal/puzzles"
	"chess-coach-backend/internal/queue"
	"chess-coach-backend/internal/reasoning"
	"chess-coach-backend/internal/shared/telemetry"
)

const validResponse = `{
  "summary": "Solid opening, lost the thread after the queen trade.",
  "phases": {"opening": "Fine.", "middlegame": "Missed a pin.", "endgame": "Slow conversion."},
  "key_moments": [
    {"move_number": 12, "move": "Nxe5", "fen": "8/8/8/8/8/8/8/K6k w - - 0 1", "evaluation": "+0.8", "commentary": "Good.", "is_mistake": false},
    {"move_number": 18, "move": "Qd2", "fen": "8/8/8/8/8/8/8/K6k b - - 0 1", "evaluation": "-1.5", "commentary": "Allows a pin.", "is_mistake": true},
    {"move_number": 35, "move": "Kf2", "fen": "8/8/8/8/8/8/8/K6k w - - 0 1", "evaluation": "0.0", "commentary": "Passive.", "is_mistake": true}
  ],
  "recommendations": ["Study pins", "Practise rook endings", "Calculate forcing lines"],
  "puzzles": [
    {"title": "Spot the pin", "description": "Win material.", "fen": "r3k2r/ppp2ppp/8/8/8/8/PPP2PPP/R3K2R w KQkq - 0 1", "solution": ["Bg5", "Qd7"], "difficulty": "medium", "theme": "pin"},
    {"title": "Active king", "description": "Activate the king.", "fen": "8/8/8/8/8/8/8/K6k w - - 0 1", "solution": ["Kb2"], "difficulty": "easy", "theme": "endgame"}
  ]
}`

func quietLogs(t *testing.T) {
	t.Helper()
	restore := telemetry.SetOutput(io.Discard)
	t.Cleanup(restore)
}

// staticGenerator returns a fixed response and counts calls.
type staticGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (g *staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	return g.text, g.err
}

// slowGenerator sleeps before answering so concurrent claims overlap.
type slowGenerator struct {
	text  string
	delay time.Duration
	calls atomic.Int32
}

func (g *slowGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	select {
	case <-time.After(g.delay):
		return g.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

// analyzerFunc adapts a function to Analyzer.
type analyzerFunc func(ctx context.Context, in reasoning.Input) (reasoning.Result, error)

func (f analyzerFunc) Analyze(ctx context.Context, in reasoning.Input) (reasoning.Result, error) {
	return f(ctx, in)
}

// countingRepo records writes made through it.
type countingRepo struct {
	Repo
	updates atomic.Int32
	claims  atomic.Int32
}

func (r *countingRepo) Update(ctx context.Context, job Job) error {
	r.updates.Add(1)
	return r.Repo.Update(ctx, job)
}

func (r *countingRepo) CompareAndSetStatus(ctx context.Context, jobID string, expected, next Status) (bool, error) {
	r.claims.Add(1)
	return r.Repo.CompareAndSetStatus(ctx, jobID, expected, next)
}

// brokenUpdateRepo rejects every Update.
type brokenUpdateRepo struct {
	Repo
}

func (r *brokenUpdateRepo) Update(ctx context.Context, job Job) error {
	return errors.New("connection refused")
}

type recordingQueue struct {
	mu       sync.Mutex
	messages []queue.Message
}

func (q *recordingQueue) Send(ctx context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, msg)
	return nil
}

type fixture struct {
	svc     *Service
	repo    *MemoryRepo
	puzzles *puzzles.MemoryRepo
}

func newFixture(t *testing.T, gen reasoning.Generator) fixture {
	t.Helper()
	quietLogs(t)
	repo := NewMemoryRepo()
	puzzleRepo := puzzles.NewMemoryRepo()
	svc := &Service{
		Repo:     repo,
		Analyzer: reasoning.NewClient(gen, "openai", "gpt-4o-mini", time.Second),
		Linker:   puzzles.NewLinker(puzzleRepo, time.Second),
		Provider: "openai",
		Model:    "gpt-4o-mini",
	}
	return fixture{svc: svc, repo: repo, puzzles: puzzleRepo}
}

func seedJob(t *testing.T, repo Repo, id string, owner principal.Owner, status Status) Job {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	job := Job{
		ID:           id,
		OwnerID:      owner.OwnerID(),
		Status:       status,
		GameText:     "1. e4 e5 2. Nf3 Nc6 3. Bc4 Bc5",
		SubjectName:  "Alice",
		SubjectColor: games.White,
		Metadata:     games.Metadata{Opponent: "Bob", Result: "1-0", Opening: "Italian Game", ECO: "C50"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func mustGet(t *testing.T, repo Repo, id string) Job {
	t.Helper()
	job, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get job %s: %v", id, err)
	}
	return job
}
