// Package retrieval is the end-to-end read path of the RAG subsystem: it
// embeds a query, over-fetches similar chunks from the vector store,
// filters and re-ranks them, and renders the survivors into prompt-ready
// context for the conversational agent.
//
// The service is request-scoped and stateless between calls; concurrent
// calls share no mutable state. Any embedding or store failure aborts the
// whole call with a stage-identifying error; there is no partial context.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashermoss/portfolio-rag/internal/embedding"
	"github.com/ashermoss/portfolio-rag/internal/vectorstore"
)

// Store is the slice of the vector store this service consumes.
type Store interface {
	SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int, f vectorstore.Filter) ([]vectorstore.SearchResult, error)
	ChunksBySource(ctx context.Context, sourceType, sourceID string) ([]vectorstore.ContentChunk, error)
}

// Embedder converts one string into one vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) (embedding.EmbeddedText, error)
}

// Service orchestrates the retrieval pipeline. Safe for concurrent use.
type Service struct {
	store    Store
	embedder Embedder
	scorer   Scorer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithScorer swaps the ranking strategy.
func WithScorer(scorer Scorer) ServiceOption {
	return func(s *Service) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// New creates a retrieval Service. A nil logger falls back to
// slog.Default(); the default scorer is KeywordScorer.
func New(store Store, embedder Embedder, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:    store,
		embedder: embedder,
		scorer:   KeywordScorer{},
		logger:   logger,
		tracer:   otel.Tracer("github.com/ashermoss/portfolio-rag/internal/retrieval"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetrieveContext runs the full read path for one query: embed, over-fetch
// topK*2 candidates, drop those under the similarity floor, re-rank, keep
// topK, and format. The over-fetch leaves the re-ranker room to promote
// candidates the raw similarity order would have cut.
func (s *Service) RetrieveContext(ctx context.Context, query string, opts ...Option) (RAGContext, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "retrieval.RetrieveContext")
	defer span.End()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	embedded, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return RAGContext{}, fmt.Errorf("context retrieval failed: embedding query: %w", err)
	}

	candidates, err := s.store.SearchSimilar(ctx, embedded.Vector, o.topK*2, vectorstore.Filter{
		SourceType: o.sourceType,
		Category:   o.category,
	})
	if err != nil {
		return RAGContext{}, fmt.Errorf("context retrieval failed: searching chunks: %w", err)
	}

	filtered := candidates[:0]
	for _, c := range candidates {
		if c.Similarity >= o.minSimilarity {
			filtered = append(filtered, c)
		}
	}

	ranked := s.rerank(filtered, query)
	if len(ranked) > o.topK {
		ranked = ranked[:o.topK]
	}

	contexts := make([]RetrievedContext, len(ranked))
	var sum float64
	for i, r := range ranked {
		rc := RetrievedContext{
			Content:    r.Chunk.Content,
			SourceType: r.Chunk.SourceType,
			SourceID:   r.Chunk.SourceID,
			Similarity: r.Similarity,
			ChunkIndex: r.Chunk.ChunkIndex,
		}
		if o.includeMetadata {
			rc.Metadata = r.Chunk.Metadata
		}
		contexts[i] = rc
		sum += r.Similarity
	}

	avgSimilarity := 0.0
	if len(contexts) > 0 {
		avgSimilarity = sum / float64(len(contexts))
	}

	elapsed := time.Since(start)
	span.SetAttributes(
		attribute.Int("retrieval.candidates", len(candidates)),
		attribute.Int("retrieval.returned", len(contexts)),
		attribute.Float64("retrieval.avg_similarity", avgSimilarity),
	)
	s.logger.Debug("retrieved context",
		"query_length", len(query), "candidates", len(candidates),
		"returned", len(contexts), "elapsed", elapsed)

	return RAGContext{
		Query:            query,
		Contexts:         contexts,
		FormattedContext: formatContexts(contexts),
		TotalChunks:      len(contexts),
		AvgSimilarity:    avgSimilarity,
		RetrievalTime:    elapsed,
	}, nil
}

// rerank scores every candidate and sorts descending. The sort is stable,
// so equal scores keep the store's similarity order.
func (s *Service) rerank(results []vectorstore.SearchResult, query string) []vectorstore.SearchResult {
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = s.scorer.Score(r, query)
	}

	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	ranked := make([]vectorstore.SearchResult, len(results))
	for i, idx := range order {
		ranked[i] = results[idx]
	}
	return ranked
}

// RetrieveBySource bypasses embedding and similarity entirely, returning
// every chunk of one source in chunk-index order with similarity fixed at
// 1.0. Used when the caller already knows exactly which entity it wants.
func (s *Service) RetrieveBySource(ctx context.Context, sourceType, sourceID string) ([]RetrievedContext, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval.RetrieveBySource")
	defer span.End()

	chunks, err := s.store.ChunksBySource(ctx, sourceType, sourceID)
	if err != nil {
		return nil, fmt.Errorf("context retrieval failed: %w", err)
	}

	contexts := make([]RetrievedContext, len(chunks))
	for i, c := range chunks {
		contexts[i] = RetrievedContext{
			Content:    c.Content,
			SourceType: c.SourceType,
			SourceID:   c.SourceID,
			Similarity: 1.0,
			Metadata:   c.Metadata,
			ChunkIndex: c.ChunkIndex,
		}
	}
	return contexts, nil
}
