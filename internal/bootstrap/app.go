package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"chess-coach-backend/internal/analyses"
	"chess-coach-backend/internal/dashboard"
	"chess-coach-backend/internal/puzzles"
	"chess-coach-backend/internal/queue"
	"chess-coach-backend/internal/reasoning"
	"chess-coach-backend/internal/reasoning/gemini"
	"chess-coach-backend/internal/reasoning/openai"
	"chess-coach-backend/internal/shared/config"
	"chess-coach-backend/internal/shared/server"
	"chess-coach-backend/internal/shared/storage/db"
	"chess-coach-backend/internal/shared/storage/object"
	localstore "chess-coach-backend/internal/shared/storage/object/local"
	s3store "chess-coach-backend/internal/shared/storage/object/s3"
	"chess-coach-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.Store
	Queue  queue.Client

	AnalysesRepo analyses.Repo
	PuzzlesRepo  puzzles.Repo

	AnalysesService  *analyses.Service
	DashboardService *dashboard.Service
	// Processor is what queue consumers drive.
	Processor *analyses.Service

	AnalysesHandler  *analyses.Handler
	DashboardHandler *dashboard.Handler
	PuzzlesHandler   *puzzles.Handler
}

// Options tune Build for the calling entrypoint.
type Options struct {
	// RequireAnalyzer makes a missing or misconfigured reasoning provider
	// fatal. Workers set it; the API only needs one when it processes jobs
	// in-process.
	RequireAnalyzer bool
	// Generator overrides the provider built from config.
	Generator reasoning.Generator
}

// Build prepares shared dependencies and the router.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(ctx, app, opts); err != nil {
		return nil, err
	}

	deps := server.RouterDeps{
		Config: app.Config,
		Handlers: []server.RouteRegistrar{
			app.AnalysesHandler,
			app.DashboardHandler,
			app.PuzzlesHandler,
		},
	}
	if app.DB != nil {
		deps.DB = app.DB
	}
	app.Router = server.NewRouter(deps)

	return app, nil
}

// Close releases the database pool unless it is the shared Lambda handle.
func (a *App) Close() error {
	if a == nil || a.DB == nil || db.IsLambdaRuntime() {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{"reason": "database connect failed", "error": err.Error()})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "none":
		return nil, nil
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if cfg.QueueURL == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg.AWSRegion, cfg.QueueURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// buildGenerator returns the configured provider and its model name.
func buildGenerator(ctx context.Context, cfg config.Config) (reasoning.Generator, string, error) {
	switch cfg.LLMProvider {
	case gemini.ProviderName:
		gen, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, "", err
		}
		return gen, gen.Model(), nil
	default:
		gen, err := openai.New(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.ReasoningTimeout)
		if err != nil {
			return nil, "", err
		}
		return gen, gen.Model(), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(ctx context.Context, app *App, opts Options) error {
	var analysisRepo analyses.Repo
	var puzzleRepo puzzles.Repo
	if app.DB != nil {
		analysisRepo = &analyses.PGRepo{DB: app.DB}
		puzzleRepo = &puzzles.PGRepo{DB: app.DB}
	} else {
		analysisRepo = analyses.NewMemoryRepo()
		puzzleRepo = puzzles.NewMemoryRepo()
	}

	provider := app.Config.LLMProvider
	model := app.Config.LLMModel
	gen := opts.Generator
	if gen == nil {
		built, builtModel, err := buildGenerator(ctx, app.Config)
		switch {
		case err == nil:
			gen, model = built, builtModel
		case opts.RequireAnalyzer || (app.Queue == nil && !isDevLike(app.Config.Env)):
			return fmt.Errorf("reasoning provider %s: %w", provider, err)
		default:
			telemetry.Warn("bootstrap.no_reasoning_provider", map[string]any{
				"provider": provider,
				"error":    err.Error(),
			})
		}
	}

	analysisSvc := &analyses.Service{
		Repo:     analysisRepo,
		Linker:   puzzles.NewLinker(puzzleRepo, app.Config.PuzzleTimeout),
		Queue:    app.Queue,
		Store:    app.Store,
		Provider: provider,
		Model:    model,
	}
	if gen != nil {
		analysisSvc.Analyzer = reasoning.NewClient(gen, provider, model, app.Config.ReasoningTimeout)
	}

	dashboardSvc := dashboard.NewService(analysisRepo)

	app.AnalysesRepo = analysisRepo
	app.PuzzlesRepo = puzzleRepo
	app.AnalysesService = analysisSvc
	app.Processor = analysisSvc
	app.DashboardService = dashboardSvc
	app.AnalysesHandler = analyses.NewHandler(analysisSvc, 0)
	app.DashboardHandler = dashboard.NewHandler(dashboardSvc)
	app.PuzzlesHandler = puzzles.NewHandler(puzzleRepo)

	if app.AnalysesHandler == nil || app.DashboardHandler == nil || app.PuzzlesHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
