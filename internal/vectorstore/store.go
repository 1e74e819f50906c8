// Package vectorstore persists content chunks and their embeddings in
// PostgreSQL with pgvector, and executes cosine-similarity queries over
// them.
//
// The store wraps every database error with an operation-identifying
// message and performs no retries; retry policy belongs to the caller.
// It is safe for concurrent use.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DB is the slice of pgx this store consumes. *pgxpool.Pool satisfies it;
// the interface lives here, with the consumer.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store manages content chunks in PostgreSQL + pgvector.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default().
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// StoreChunkParams describes one chunk to persist.
type StoreChunkParams struct {
	Content    string
	Embedding  []float32
	SourceType string
	SourceID   string
	ChunkIndex int
	TokenCount int
	Metadata   map[string]any
	Category   string
}

// StoreChunk inserts a single chunk and returns the persisted row.
func (s *Store) StoreChunk(ctx context.Context, p StoreChunkParams) (ContentChunk, error) {
	row := newChunkRow(p, time.Now().UTC())

	sql, args, err := buildInsertChunksSQL([]ContentChunk{row})
	if err != nil {
		return ContentChunk{}, fmt.Errorf("storing chunk: %w", err)
	}
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return ContentChunk{}, fmt.Errorf("storing chunk: %w", err)
	}

	s.logger.Debug("stored chunk",
		"source_type", p.SourceType, "source_id", p.SourceID, "chunk_index", p.ChunkIndex)

	return row, nil
}

// StoreChunksBatch inserts all chunks for one source in a single multi-row
// statement. Metadata and category are shared across the batch.
func (s *Store) StoreChunksBatch(ctx context.Context, chunks []ChunkInput, sourceType, sourceID string, metadata map[string]any, category string) ([]ContentChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	rows := newChunkRows(chunks, sourceType, sourceID, metadata, category)

	sql, args, err := buildInsertChunksSQL(rows)
	if err != nil {
		return nil, fmt.Errorf("storing chunk batch: %w", err)
	}
	if _, err := s.db.Exec(ctx, sql, args...); err != nil {
		return nil, fmt.Errorf("storing chunk batch: %w", err)
	}

	s.logger.Debug("stored chunk batch",
		"source_type", sourceType, "source_id", sourceID, "chunks", len(rows))

	return rows, nil
}

// SearchSimilar returns the topK chunks closest to the query embedding,
// ordered by ascending cosine distance (descending similarity). Filters
// AND-combine; zero-value filter fields impose no constraint.
func (s *Store) SearchSimilar(ctx context.Context, queryEmbedding []float32, topK int, f Filter) ([]SearchResult, error) {
	sql, args := buildSearchSQL(pgvector.NewVector(queryEmbedding), topK, f)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("searching similar chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var (
			chunk    ContentChunk
			res      SearchResult
			category pgtype.Text
			emb      pgvector.Vector
			metadata []byte
		)
		if err := rows.Scan(
			&chunk.ID, &chunk.Content, &emb, &chunk.SourceType, &chunk.SourceID,
			&category, &metadata, &chunk.ChunkIndex, &chunk.TokenCount,
			&chunk.CreatedAt, &chunk.UpdatedAt,
			&res.Distance, &res.Similarity,
		); err != nil {
			return nil, fmt.Errorf("searching similar chunks: scanning row: %w", err)
		}
		finishChunk(&chunk, emb, category, metadata, s.logger)
		res.Chunk = chunk
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searching similar chunks: %w", err)
	}

	return results, nil
}

// DeleteChunksBySource removes every chunk of one source and returns the
// number of rows deleted. Used for explicit deletion and as the first half
// of a re-index.
func (s *Store) DeleteChunksBySource(ctx context.Context, sourceType, sourceID string) (int64, error) {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM content_chunks WHERE source_type = $1 AND source_id = $2",
		sourceType, sourceID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for %s/%s: %w", sourceType, sourceID, err)
	}
	return tag.RowsAffected(), nil
}

// ReplaceSourceChunks swaps a source's entire chunk set for the given
// chunks. Delete and insert run in one transaction, so concurrent readers
// see either the old set or the new set, never an empty window.
func (s *Store) ReplaceSourceChunks(ctx context.Context, sourceType, sourceID string, chunks []ChunkInput, metadata map[string]any, category string) ([]ContentChunk, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("replacing chunks for %s/%s: %w", sourceType, sourceID, err)
	}
	defer func() {
		// No-op after a successful commit.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		"DELETE FROM content_chunks WHERE source_type = $1 AND source_id = $2",
		sourceType, sourceID); err != nil {
		return nil, fmt.Errorf("replacing chunks for %s/%s: deleting old set: %w", sourceType, sourceID, err)
	}

	rows := newChunkRows(chunks, sourceType, sourceID, metadata, category)
	if len(rows) > 0 {
		sql, args, err := buildInsertChunksSQL(rows)
		if err != nil {
			return nil, fmt.Errorf("replacing chunks for %s/%s: %w", sourceType, sourceID, err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return nil, fmt.Errorf("replacing chunks for %s/%s: inserting new set: %w", sourceType, sourceID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("replacing chunks for %s/%s: committing: %w", sourceType, sourceID, err)
	}

	s.logger.Debug("replaced source chunks",
		"source_type", sourceType, "source_id", sourceID, "chunks", len(rows))

	return rows, nil
}

// ChunksBySource returns every chunk of one source ordered by chunk index.
// Exact lookup, no similarity involved.
func (s *Store) ChunksBySource(ctx context.Context, sourceType, sourceID string) ([]ContentChunk, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+chunkColumns+" FROM content_chunks WHERE source_type = $1 AND source_id = $2 ORDER BY chunk_index",
		sourceType, sourceID)
	if err != nil {
		return nil, fmt.Errorf("listing chunks for %s/%s: %w", sourceType, sourceID, err)
	}
	defer rows.Close()

	var chunks []ContentChunk
	for rows.Next() {
		var (
			chunk    ContentChunk
			category pgtype.Text
			emb      pgvector.Vector
			metadata []byte
		)
		if err := rows.Scan(
			&chunk.ID, &chunk.Content, &emb, &chunk.SourceType, &chunk.SourceID,
			&category, &metadata, &chunk.ChunkIndex, &chunk.TokenCount,
			&chunk.CreatedAt, &chunk.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("listing chunks for %s/%s: scanning row: %w", sourceType, sourceID, err)
		}
		finishChunk(&chunk, emb, category, metadata, s.logger)
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing chunks for %s/%s: %w", sourceType, sourceID, err)
	}

	return chunks, nil
}

// GetStats reports corpus totals, grouped by source type and by category.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ChunksByType:     make(map[string]int),
		ChunksByCategory: make(map[string]int),
	}

	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM content_chunks").Scan(&stats.TotalChunks); err != nil {
		return Stats{}, fmt.Errorf("reading store stats: %w", err)
	}

	if err := s.countGrouped(ctx, "SELECT source_type, COUNT(*) FROM content_chunks GROUP BY source_type", stats.ChunksByType); err != nil {
		return Stats{}, err
	}
	if err := s.countGrouped(ctx, "SELECT category, COUNT(*) FROM content_chunks WHERE category IS NOT NULL GROUP BY category", stats.ChunksByCategory); err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func (s *Store) countGrouped(ctx context.Context, sql string, into map[string]int) error {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return fmt.Errorf("reading store stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("reading store stats: scanning row: %w", err)
		}
		into[key] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading store stats: %w", err)
	}
	return nil
}

// newChunkRow builds a fully-populated row for insertion.
func newChunkRow(p StoreChunkParams, now time.Time) ContentChunk {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return ContentChunk{
		ID:         uuid.New(),
		Content:    p.Content,
		Embedding:  p.Embedding,
		SourceType: p.SourceType,
		SourceID:   p.SourceID,
		Category:   p.Category,
		Metadata:   metadata,
		ChunkIndex: p.ChunkIndex,
		TokenCount: p.TokenCount,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func newChunkRows(chunks []ChunkInput, sourceType, sourceID string, metadata map[string]any, category string) []ContentChunk {
	now := time.Now().UTC()
	rows := make([]ContentChunk, len(chunks))
	for i, c := range chunks {
		rows[i] = newChunkRow(StoreChunkParams{
			Content:    c.Content,
			Embedding:  c.Embedding,
			SourceType: sourceType,
			SourceID:   sourceID,
			ChunkIndex: c.ChunkIndex,
			TokenCount: c.TokenCount,
			Metadata:   metadata,
			Category:   category,
		}, now)
	}
	return rows
}

// finishChunk fills the fields that need conversion after scanning.
// Malformed metadata degrades to an empty bag rather than failing the read.
func finishChunk(chunk *ContentChunk, emb pgvector.Vector, category pgtype.Text, metadata []byte, logger *slog.Logger) {
	chunk.Embedding = emb.Slice()
	if category.Valid {
		chunk.Category = category.String
	}
	chunk.Metadata = map[string]any{}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &chunk.Metadata); err != nil {
			logger.Warn("failed to parse chunk metadata", "chunk_id", chunk.ID, "error", err)
			chunk.Metadata = map[string]any{}
		}
	}
}
