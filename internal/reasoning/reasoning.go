// Package reasoning turns a chess game into a structured critique and puzzle
// candidates by prompting an external text-generation service.
package reasoning

import (
	"context"
	"errors"
	"strings"
	"time"

	"chess-coach-backend/internal/games"
	"chess-coach-backend/internal/shared/telemetry"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DefaultTimeout bounds a single generation call when Client.Timeout is unset.
const DefaultTimeout = 120 * time.Second

// Generator is a single-shot text-generation backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Input is the game as submitted.
type Input struct {
	GameText     string
	SubjectName  string
	SubjectColor games.Color
	Metadata     games.Metadata
}

// Phases holds the per-phase assessments.
type Phases struct {
	Opening    string `json:"opening"`
	Middlegame string `json:"middlegame"`
	Endgame    string `json:"endgame"`
}

// KeyMoment is one turning point of the game.
type KeyMoment struct {
	MoveNumber int    `json:"move_number"`
	Move       string `json:"move"`
	FEN        string `json:"fen"`
	Evaluation string `json:"evaluation"`
	Commentary string `json:"commentary"`
	IsMistake  bool   `json:"is_mistake"`
}

// Critique is the analysis without puzzle bodies.
type Critique struct {
	Summary         string      `json:"summary"`
	Phases          Phases      `json:"phases"`
	KeyMoments      []KeyMoment `json:"key_moments"`
	Recommendations []string    `json:"recommendations"`
}

// PuzzleCandidate is a puzzle proposed by the model, not yet persisted.
type PuzzleCandidate struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	FEN         string   `json:"fen"`
	Solution    []string `json:"solution"`
	Hint        string   `json:"hint,omitempty"`
	Difficulty  string   `json:"difficulty"`
	Theme       string   `json:"theme"`
}

// Result is a successful analysis.
type Result struct {
	Critique   Critique
	Puzzles    []PuzzleCandidate
	PromptHash string
	Raw        string
}

// Client runs one analysis per call. It holds no per-call state.
type Client struct {
	Generator Generator
	Provider  string
	Model     string
	Timeout   time.Duration
}

// NewClient builds a Client around gen.
func NewClient(gen Generator, provider, model string, timeout time.Duration) *Client {
	return &Client{Generator: gen, Provider: provider, Model: model, Timeout: timeout}
}

// Analyze builds the prompt, calls the generator once and parses its output.
// Failures are *ExternalServiceError or *ResponseParseError.
func (c *Client) Analyze(ctx context.Context, in Input) (Result, error) {
	if c == nil || c.Generator == nil {
		return Result{}, &ExternalServiceError{Err: errors.New("reasoning client not configured")}
	}
	if strings.TrimSpace(in.GameText) == "" {
		return Result{}, &ExternalServiceError{Provider: c.Provider, Err: errors.New("empty game text")}
	}

	prompt := BuildPrompt(in)
	hash := HashPrompt(prompt)

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := c.Generator.Generate(callCtx, prompt)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
		return Result{PromptHash: hash}, &ExternalServiceError{Provider: c.Provider, Timeout: timedOut, Err: err}
	}

	critique, puzzles, warnings, err := parseResponse(raw)
	if err != nil {
		return Result{PromptHash: hash, Raw: raw}, err
	}
	for _, w := range warnings {
		telemetry.Warn("reasoning.validation", map[string]any{
			"provider":    c.Provider,
			"prompt_hash": hash,
			"warning":     w,
		})
	}
	return Result{Critique: critique, Puzzles: puzzles, PromptHash: hash, Raw: raw}, nil
}
