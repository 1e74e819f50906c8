// Package index is the write path of the RAG subsystem: it renders a
// portfolio entity into canonical index text, chunks and embeds it, and
// replaces the entity's chunk set in the vector store wholesale.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashermoss/portfolio-rag/internal/embedding"
	"github.com/ashermoss/portfolio-rag/internal/vectorstore"
)

// Store is the slice of the vector store the indexer consumes.
type Store interface {
	ReplaceSourceChunks(ctx context.Context, sourceType, sourceID string, chunks []vectorstore.ChunkInput, metadata map[string]any, category string) ([]vectorstore.ContentChunk, error)
	DeleteChunksBySource(ctx context.Context, sourceType, sourceID string) (int64, error)
	GetStats(ctx context.Context) (vectorstore.Stats, error)
}

// Embedder chunks a text and embeds every chunk.
type Embedder interface {
	EmbedChunks(ctx context.Context, text string) ([]embedding.EmbeddedChunk, error)
}

// Source is one portfolio entity to index.
type Source struct {
	Type         string // project|blog|skill|experience
	ID           string
	Title        string
	Body         string
	Technologies []string
	Tags         []string
	Category     string
}

// Result summarizes one indexing run.
type Result struct {
	SourceType string
	SourceID   string
	Chunks     int
	Tokens     int
	Duration   time.Duration
}

var validSourceTypes = map[string]bool{
	vectorstore.SourceTypeProject:    true,
	vectorstore.SourceTypeBlog:       true,
	vectorstore.SourceTypeSkill:      true,
	vectorstore.SourceTypeExperience: true,
}

// Indexer ties the index-text formatter, the chunk-and-embed composition,
// and wholesale chunk replacement together. Indexing operates strictly per
// (sourceType, sourceID); concurrent indexing of different sources needs no
// coordination.
type Indexer struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

// New creates an Indexer. A nil logger falls back to slog.Default().
func New(store Store, embedder Embedder, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, embedder: embedder, logger: logger}
}

// IndexSource renders, chunks, embeds, and stores one entity, replacing any
// previously stored chunks for it. Titles and named fields go through the
// canonical index text so they are represented in embedding space, not only
// in stored metadata.
func (idx *Indexer) IndexSource(ctx context.Context, src Source) (Result, error) {
	start := time.Now()

	if !validSourceTypes[src.Type] {
		return Result{}, fmt.Errorf("indexing source: unknown source type %q", src.Type)
	}
	if src.ID == "" {
		return Result{}, fmt.Errorf("indexing source: empty source id")
	}

	text := embedding.IndexText(src.Title, src.Body,
		embedding.Field{Name: "Technologies", Values: src.Technologies},
		embedding.Field{Name: "Tags", Values: src.Tags},
	)

	embedded, err := idx.embedder.EmbedChunks(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("indexing %s/%s: %w", src.Type, src.ID, err)
	}

	inputs := make([]vectorstore.ChunkInput, len(embedded))
	var tokens int
	for i, e := range embedded {
		inputs[i] = vectorstore.ChunkInput{
			Content:    e.Chunk.Content,
			Embedding:  e.Vector,
			ChunkIndex: e.Chunk.Index,
			TokenCount: e.Chunk.TokenCount,
		}
		tokens += e.Chunk.TokenCount
	}

	if _, err := idx.store.ReplaceSourceChunks(ctx, src.Type, src.ID, inputs, sourceMetadata(src), src.Category); err != nil {
		return Result{}, fmt.Errorf("indexing %s/%s: %w", src.Type, src.ID, err)
	}

	result := Result{
		SourceType: src.Type,
		SourceID:   src.ID,
		Chunks:     len(inputs),
		Tokens:     tokens,
		Duration:   time.Since(start),
	}

	idx.logger.Info("indexed source",
		"source_type", src.Type, "source_id", src.ID,
		"chunks", result.Chunks, "tokens", result.Tokens, "elapsed", result.Duration)

	return result, nil
}

// RemoveSource deletes every chunk of one entity and reports how many rows
// went away.
func (idx *Indexer) RemoveSource(ctx context.Context, sourceType, sourceID string) (int64, error) {
	count, err := idx.store.DeleteChunksBySource(ctx, sourceType, sourceID)
	if err != nil {
		return 0, fmt.Errorf("removing %s/%s: %w", sourceType, sourceID, err)
	}
	idx.logger.Info("removed source", "source_type", sourceType, "source_id", sourceID, "chunks", count)
	return count, nil
}

// Stats reports corpus totals from the store.
func (idx *Indexer) Stats(ctx context.Context) (vectorstore.Stats, error) {
	return idx.store.GetStats(ctx)
}

// sourceMetadata builds the chunk metadata bag. Only populated fields
// appear, matching the fixed order the context formatter renders.
func sourceMetadata(src Source) map[string]any {
	metadata := map[string]any{}
	if src.Title != "" {
		metadata["title"] = src.Title
	}
	if len(src.Technologies) > 0 {
		metadata["technologies"] = src.Technologies
	}
	if len(src.Tags) > 0 {
		metadata["tags"] = src.Tags
	}
	if src.Category != "" {
		metadata["category"] = src.Category
	}
	return metadata
}
