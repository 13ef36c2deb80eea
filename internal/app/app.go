// Package app wires the control-center components from configuration.
package app

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/cache"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/config"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/db"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/intelligence"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/ledger"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/pipeline"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/reconcile"
	"github.com/tatemeyer/IoT-Asset-Bot/internal/source"
)

const latestStateTTL = 24 * time.Hour

// App holds the wired pipeline and the resources behind it.
type App struct {
	orchestrator *pipeline.Orchestrator
	sqlDB        *sql.DB
	redisClient  *goredis.Client
	logger       *zap.Logger
}

// New constructs the application components from configuration.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	store, err := a.buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	repo := ledger.NewRepository(store, logger)

	engineOpts := []reconcile.Option{}
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			// The cache is best-effort; a missing Redis never blocks a cycle.
			logger.Warn("redis unavailable, running without latest-state cache", zap.Error(err))
		} else {
			a.redisClient = client
			engineOpts = append(engineOpts, reconcile.WithLatestCache(cache.NewLatestStore(client, latestStateTTL)))
		}
	}

	engine := reconcile.NewEngine(repo, logger, engineOpts...)
	classifier := intelligence.NewClassifier(logger)
	annotator := intelligence.NewAnnotator(repo, classifier, logger)

	src := source.NewHTTPSource(source.HTTPSourceConfig{
		BaseURL:     cfg.Source.URL,
		AuthSecret:  cfg.Source.AuthSecret,
		EvidenceDir: evidenceDir(cfg),
		Timeout:     cfg.SourceTimeout(),
	}, logger)

	a.orchestrator = pipeline.NewOrchestrator(src, engine, annotator, pipeline.Config{
		RetryAttempts:   cfg.Pipeline.RetryAttempts,
		RetryDelay:      cfg.RetryDelay(),
		AnnotatedOutput: cfg.Intelligence.AnnotatedOutput,
	}, logger)

	return a, nil
}

// Run executes one pipeline cycle and returns its terminal state.
func (a *App) Run(ctx context.Context) (pipeline.State, error) {
	return a.orchestrator.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.sqlDB != nil {
		if err := a.sqlDB.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

func (a *App) buildStore(ctx context.Context, cfg *config.Config) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case config.BackendPostgres:
		sqlDB, err := db.NewPostgres(cfg.Ledger.PostgresDSN)
		if err != nil {
			return nil, err
		}
		a.sqlDB = sqlDB
		return ledger.NewPostgresStore(ctx, sqlDB)
	default:
		return ledger.NewFileStore(cfg.Ledger.Path), nil
	}
}

// evidenceDir places extraction-failure evidence next to the log file, or
// beside the ledger when no log file is configured.
func evidenceDir(cfg *config.Config) string {
	if cfg.Log.File != "" {
		return filepath.Dir(cfg.Log.File)
	}
	if cfg.Ledger.Path != "" {
		return filepath.Dir(cfg.Ledger.Path)
	}
	return "logs"
}
