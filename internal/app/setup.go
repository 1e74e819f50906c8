package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"
	"github.com/sashabaranov/go-openai"

	"github.com/ashermoss/portfolio-rag/db"
	"github.com/ashermoss/portfolio-rag/internal/chunk"
	"github.com/ashermoss/portfolio-rag/internal/config"
	"github.com/ashermoss/portfolio-rag/internal/embedding"
	"github.com/ashermoss/portfolio-rag/internal/index"
	"github.com/ashermoss/portfolio-rag/internal/observability"
	"github.com/ashermoss/portfolio-rag/internal/retrieval"
	"github.com/ashermoss/portfolio-rag/internal/vectorstore"
)

// Setup creates and initializes the application. Returns an App with
// embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	chunker := chunk.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	client := openai.NewClient(cfg.OpenAIAPIKey)
	a.Embedding = embedding.New(client, cfg.EmbedderModel, cfg.EmbedderDimension, chunker,
		logger.With("component", "embedding"),
		embedding.WithRateLimit(cfg.EmbedderRPS))

	a.Store = vectorstore.New(pool, logger.With("component", "vectorstore"))
	a.Retrieval = retrieval.New(a.Store, a.Embedding, logger.With("component", "retrieval"))
	a.Indexer = index.New(a.Store, a.Embedding, logger.With("component", "index"))

	return a, nil
}

// provideOtelShutdown sets up OTLP trace export. Called once during Setup,
// before any spans are produced.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		logger.Warn("setting up tracing", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := flushCtx()
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and creates the PostgreSQL connection pool.
// Every connection registers the pgvector codec so embeddings scan natively.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
