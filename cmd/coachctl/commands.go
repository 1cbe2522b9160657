package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chess-coach-backend/internal/analyses"
	"chess-coach-backend/internal/bootstrap"
	"chess-coach-backend/internal/games"
	"chess-coach-backend/internal/principal"
)

// appBuilder constructs the application graph. requireAnalyzer is set by
// commands that run analyses in this process.
type appBuilder func(ctx context.Context, requireAnalyzer bool) (*bootstrap.App, error)

func newRootCmd(build appBuilder) *cobra.Command {
	root := &cobra.Command{
		Use:           "coachctl",
		Short:         "Operate chess analysis jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSubmitCmd(build),
		newProcessCmd(build),
		newDashboardCmd(build),
		newStuckCmd(build),
	)
	return root
}

func newSubmitCmd(build appBuilder) *cobra.Command {
	var (
		owner    string
		guest    bool
		name     string
		color    string
		meta     games.Metadata
		noWait   bool
		waitTime time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit <game-file|->",
		Short: "Submit a game for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readGame(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			app, err := build(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			var o principal.Owner = principal.AuthenticatedOwner{ID: owner}
			if guest {
				o = principal.GuestOwner{SessionID: owner}
			}
			job, err := app.AnalysesService.Submit(ctx, o, analyses.SubmitInput{
				GameText:     text,
				SubjectName:  name,
				SubjectColor: color,
				Metadata:     meta,
			})
			if err != nil {
				return err
			}
			if !noWait && app.Queue == nil {
				waitCtx, cancel := context.WithTimeout(ctx, waitTime)
				defer cancel()
				if err := app.AnalysesService.Wait(waitCtx); err != nil {
					return fmt.Errorf("wait for job %s: %w", job.ID, err)
				}
				if job, err = app.AnalysesService.Get(ctx, job.ID); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), job)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (session id with --guest)")
	cmd.Flags().BoolVar(&guest, "guest", false, "submit as a guest")
	cmd.Flags().StringVar(&name, "name", "", "player name to coach")
	cmd.Flags().StringVar(&color, "color", "", "player color (white|black)")
	cmd.Flags().StringVar(&meta.Opponent, "opponent", "", "opponent name")
	cmd.Flags().StringVar(&meta.Result, "result", "", "game result, e.g. 1-0")
	cmd.Flags().StringVar(&meta.Event, "event", "", "event name")
	cmd.Flags().StringVar(&meta.Date, "date", "", "game date")
	cmd.Flags().StringVar(&meta.Opening, "opening", "", "opening name")
	cmd.Flags().StringVar(&meta.ECO, "eco", "", "ECO code")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return as soon as the job is created")
	cmd.Flags().DurationVar(&waitTime, "wait", 3*time.Minute, "how long to wait for in-process analysis")
	return cmd
}

func newProcessCmd(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "process <jobId>",
		Short: "Run a pending job to completion in this process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := build(ctx, true)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Processor.ProcessJob(ctx, args[0]); err != nil {
				return err
			}
			job, err := app.AnalysesService.Get(ctx, args[0])
			if errors.Is(err, analyses.ErrNotFound) {
				return fmt.Errorf("job %s not found", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), job)
		},
	}
}

func newDashboardCmd(build appBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard <ownerId>",
		Short: "Print dashboard statistics for an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := build(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			stats, err := app.DashboardService.Get(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newStuckCmd(build appBuilder) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "stuck",
		Short: "List jobs left in processing longer than a threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := build(ctx, false)
			if err != nil {
				return err
			}
			defer app.Close()

			jobs, err := app.AnalysesService.ListStuck(ctx, olderThan, limit)
			if err != nil {
				return err
			}
			out := make([]stuckJob, 0, len(jobs))
			for _, job := range jobs {
				out = append(out, stuckJob{ID: job.ID, OwnerID: job.OwnerID, StartedAt: job.StartedAt})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 15*time.Minute, "minimum time in processing")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum jobs to list")
	return cmd
}

type stuckJob struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

func readGame(stdin io.Reader, path string) (string, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(io.LimitReader(stdin, analyses.MaxGameTextBytes+1))
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read game: %w", err)
	}
	return string(raw), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
