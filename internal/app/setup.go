package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docchat/docchat/db"
	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/gemini"
	"github.com/docchat/docchat/internal/knowledge"
	"github.com/docchat/docchat/internal/rag"
)

// geminiRequestsPerSecond paces outbound API calls to stay under the free
// tier quota with headroom for retries.
const geminiRequestsPerSecond = 2

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	client, err := provideGemini(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Gemini = client

	store, err := knowledge.New(pool, client, logger)
	if err != nil {
		return nil, fmt.Errorf("app: creating knowledge store: %w", err)
	}
	a.Knowledge = store

	service, err := rag.New(store, client, cfg.TopK, logger)
	if err != nil {
		return nil, fmt.Errorf("app: creating rag service: %w", err)
	}
	a.RAG = service

	return a, nil
}

// provideDBPool migrates the schema and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("app: running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("app: parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("app: creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("app: pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// provideGemini builds the API client from config.
func provideGemini(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*gemini.Client, error) {
	client, err := gemini.New(ctx, cfg.GeminiAPIKey, gemini.Options{
		Model:             cfg.ModelName,
		EmbedderModel:     cfg.EmbedderModel,
		Temperature:       cfg.Temperature,
		MaxTokens:         int32(cfg.MaxTokens),
		Dimension:         knowledge.VectorDimension,
		RequestsPerSecond: geminiRequestsPerSecond,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("app: creating gemini client: %w", err)
	}
	return client, nil
}
