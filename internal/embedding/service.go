// Package embedding converts text into fixed-length vectors via the OpenAI
// embeddings API. It exposes single and batch embedding plus a composition
// helper that chunks a text and embeds all chunks in one round trip.
//
// The provider is consumed as an opaque capability: text in, vectors and a
// token-usage count out. Failures surface as wrapped errors; no retries
// happen at this layer.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/ashermoss/portfolio-rag/internal/chunk"
)

// api is the slice of the OpenAI client this package consumes.
// Interfaces live with the consumer; *openai.Client satisfies this.
type api interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// EmbeddedText is a vector paired with the token count the provider
// reported for it. For batch calls the count is the evenly apportioned
// share of the batch total, a per-item estimate.
type EmbeddedText struct {
	Vector     []float32
	TokenCount int
}

// EmbeddedChunk pairs a text chunk with its embedding. TokenCount on the
// chunk is replaced by the provider-reported per-item estimate.
type EmbeddedChunk struct {
	Chunk  chunk.TextChunk
	Vector []float32
}

// Service generates embeddings with a configured model and dimension.
// Safe for concurrent use.
type Service struct {
	api       api
	model     openai.EmbeddingModel
	dimension int
	chunker   *chunk.Chunker
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithRateLimit applies a client-side requests-per-second cap toward the
// provider. Zero or negative rps disables limiting.
func WithRateLimit(rps float64) Option {
	return func(s *Service) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates an embedding Service.
//
// dimension is enforced on every returned vector; a mismatch is an error,
// never silently accepted, because the vector store's column width is fixed.
// A nil chunker falls back to the package defaults, a nil logger to
// slog.Default().
func New(client api, model string, dimension int, chunker *chunk.Chunker, logger *slog.Logger, opts ...Option) *Service {
	if chunker == nil {
		chunker = chunk.NewChunker(chunk.DefaultSize, chunk.DefaultOverlap, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		api:       client,
		model:     openai.EmbeddingModel(model),
		dimension: dimension,
		chunker:   chunker,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimension returns the configured vector dimension.
func (s *Service) Dimension() int {
	return s.dimension
}

// EmbedText converts one string into one vector with the exact token count
// the provider reported for the request.
func (s *Service) EmbedText(ctx context.Context, text string) (EmbeddedText, error) {
	resp, err := s.createEmbeddings(ctx, []string{text})
	if err != nil {
		return EmbeddedText{}, fmt.Errorf("embedding text: %w", err)
	}

	vec := resp.Data[0].Embedding
	if len(vec) != s.dimension {
		return EmbeddedText{}, fmt.Errorf("embedding text: dimension mismatch: got %d, want %d", len(vec), s.dimension)
	}

	return EmbeddedText{Vector: vec, TokenCount: resp.Usage.TotalTokens}, nil
}

// EmbedBatch converts texts into vectors in a single round trip, preserving
// order. The provider reports one token total for the whole batch; it is
// apportioned evenly across items as a per-item estimate.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([]EmbeddedText, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.createEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d texts: %w", len(texts), err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding batch of %d texts: provider returned %d vectors", len(texts), len(resp.Data))
	}

	perItem := resp.Usage.TotalTokens / len(texts)

	out := make([]EmbeddedText, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding batch of %d texts: provider returned index %d", len(texts), d.Index)
		}
		if len(d.Embedding) != s.dimension {
			return nil, fmt.Errorf("embedding batch of %d texts: dimension mismatch at %d: got %d, want %d",
				len(texts), d.Index, len(d.Embedding), s.dimension)
		}
		out[d.Index] = EmbeddedText{Vector: d.Embedding, TokenCount: perItem}
	}

	return out, nil
}

// EmbedChunks chunks text and batch-embeds every chunk, returning ordered
// chunk+vector pairs. Chunk token counts are replaced with the apportioned
// provider estimate.
func (s *Service) EmbedChunks(ctx context.Context, text string) ([]EmbeddedChunk, error) {
	chunks := s.chunker.Chunk(text)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embedded, err := s.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([]EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		c.TokenCount = embedded[i].TokenCount
		out[i] = EmbeddedChunk{Chunk: c, Vector: embedded[i].Vector}
	}

	s.logger.Debug("embedded chunks", "chunks", len(out), "text_length", len(text))

	return out, nil
}

// createEmbeddings issues the provider call, honoring the rate limiter.
func (s *Service) createEmbeddings(ctx context.Context, input []string) (openai.EmbeddingResponse, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return openai.EmbeddingResponse{}, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	resp, err := s.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      input,
		Model:      s.model,
		Dimensions: s.dimension,
	})
	if err != nil {
		return openai.EmbeddingResponse{}, err
	}
	if len(resp.Data) == 0 {
		return openai.EmbeddingResponse{}, fmt.Errorf("provider returned no embeddings")
	}

	// Provider order is not contractual; Index is.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	return resp, nil
}
