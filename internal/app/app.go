// Package app wires the RAG subsystem together with explicit dependency
// injection: configuration, database pool, embedding client, vector store,
// retrieval service, and indexer are constructed once and passed by
// reference. There are no package-level singletons; lifetime and connection
// ownership stay with the App.
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashermoss/portfolio-rag/internal/config"
	"github.com/ashermoss/portfolio-rag/internal/embedding"
	"github.com/ashermoss/portfolio-rag/internal/index"
	"github.com/ashermoss/portfolio-rag/internal/retrieval"
	"github.com/ashermoss/portfolio-rag/internal/vectorstore"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool    *pgxpool.Pool
	Store     *vectorstore.Store
	Embedding *embedding.Service
	Retrieval *retrieval.Service
	Indexer   *index.Indexer

	otelCleanup func()
}

// Close gracefully releases all resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}

// flushTimeout bounds trace flushing during shutdown.
const flushTimeout = 5 * time.Second

func flushCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), flushTimeout)
}
