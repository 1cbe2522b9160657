// Command coachctl runs analysis operations against the configured backend.
//
//	coachctl submit --owner user-1 --color white game.pgn
//	coachctl process <jobId>
//	coachctl dashboard <ownerId>
//	coachctl stuck --older-than 15m
package main

import (
	"context"
	"fmt"
	"os"

	"chess-coach-backend/internal/bootstrap"
	"chess-coach-backend/internal/shared/config"
	"chess-coach-backend/internal/shared/telemetry"
)

func main() {
	defer telemetry.Sync()
	root := newRootCmd(func(ctx context.Context, requireAnalyzer bool) (*bootstrap.App, error) {
		return bootstrap.Build(ctx, config.Load(), bootstrap.Options{RequireAnalyzer: requireAnalyzer})
	})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
