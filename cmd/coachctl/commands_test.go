package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chess-coach-backend/internal/analyses"
	"chess-coach-backend/internal/bootstrap"
	"chess-coach-backend/internal/dashboard"
	"chess-coach-backend/internal/games"
	"chess-coach-backend/internal/principal"
	"chess-coach-backend/internal/shared/config"
	"chess-coach-backend/internal/shared/telemetry"
)

const cannedCritique = `{"summary":"Good game.","phases":{"opening":"a","middlegame":"b","endgame":"c"},
"key_moments":[],"recommendations":["Study pins"],
"puzzles":[{"title":"Pin","description":"Win material.","fen":"8/8/8/8/8/8/8/K6k w - - 0 1","solution":["Kb2"],"difficulty":"easy","theme":"pin"}]}`

type cannedGenerator struct{}

func (cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return cannedCritique, nil
}

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	restore := telemetry.SetOutput(io.Discard)
	t.Cleanup(restore)
	app, err := bootstrap.Build(context.Background(), config.Config{
		Env:             "dev",
		ObjectStoreType: "none",
		LLMProvider:     "openai",
		LLMModel:        "test-model",
	}, bootstrap.Options{Generator: cannedGenerator{}})
	require.NoError(t, err)
	return app
}

func execute(t *testing.T, app *bootstrap.App, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func(ctx context.Context, requireAnalyzer bool) (*bootstrap.App, error) {
		return app, nil
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSubmitWaitsForInProcessAnalysis(t *testing.T) {
	app := newTestApp(t)

	out, err := execute(t, app, "1. e4 e5 2. Nf3 Nc6", "submit", "--owner", "user-1", "--color", "white", "-")
	require.NoError(t, err)

	var job analyses.Job
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	require.Equal(t, analyses.StatusCompleted, job.Status)
	require.Len(t, job.Result.PuzzleIDs, 1)
}

func TestSubmitRejectsInvalidColor(t *testing.T) {
	app := newTestApp(t)

	_, err := execute(t, app, "1. e4", "submit", "--owner", "user-1", "--color", "green", "-")
	require.ErrorIs(t, err, analyses.ErrInvalidInput)
}

func TestProcessRunsPendingJob(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, app.AnalysesRepo.Create(ctx, analyses.Job{
		ID:           "job-1",
		OwnerID:      "user-1",
		Status:       analyses.StatusPending,
		GameText:     "1. d4 d5",
		SubjectColor: games.White,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	out, err := execute(t, app, "", "process", "job-1")
	require.NoError(t, err)
	require.Contains(t, out, `"status": "completed"`)
}

func TestProcessUnknownJob(t *testing.T) {
	app := newTestApp(t)

	_, err := execute(t, app, "", "process", "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestDashboardPrintsStats(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	_, err := app.AnalysesService.Submit(ctx, principal.AuthenticatedOwner{ID: "user-2"}, analyses.SubmitInput{
		GameText:     "1. e4 c5",
		SubjectColor: "black",
		Metadata:     games.Metadata{Result: "0-1", Opening: "Sicilian Defense", ECO: "b20"},
	})
	require.NoError(t, err)
	require.NoError(t, app.AnalysesService.Wait(ctx))

	out, err := execute(t, app, "", "dashboard", "user-2")
	require.NoError(t, err)

	var stats dashboard.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, 1, stats.TotalJobs)
	require.Equal(t, 1, stats.Overall.Wins)
	require.Len(t, stats.TopOpenings, 1)
	require.Equal(t, "B20", stats.TopOpenings[0].ECO)
}

func TestStuckListsOldProcessingJobs(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	started := time.Now().Add(-time.Hour).UTC()
	require.NoError(t, app.AnalysesRepo.Create(ctx, analyses.Job{
		ID:        "job-stuck",
		OwnerID:   "user-3",
		Status:    analyses.StatusProcessing,
		GameText:  "1. c4",
		CreatedAt: started,
		UpdatedAt: started,
		StartedAt: &started,
	}))

	out, err := execute(t, app, "", "stuck", "--older-than", "10m")
	require.NoError(t, err)
	require.Contains(t, out, "job-stuck")
}
