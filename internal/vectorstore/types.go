package vectorstore

import (
	"time"

	"github.com/google/uuid"
)

// Source types for content chunks. These are the portfolio entity kinds a
// chunk can be derived from.
const (
	SourceTypeProject    = "project"
	SourceTypeBlog       = "blog"
	SourceTypeSkill      = "skill"
	SourceTypeExperience = "experience"
)

// ContentChunk is one persisted, embedded slice of a source entity.
//
// Chunk indices are zero-based, contiguous, and strictly increasing within
// a (sourceType, sourceID) pair. A source's chunk set is replaced wholesale
// on re-index, never patched in place.
type ContentChunk struct {
	ID         uuid.UUID
	Content    string
	Embedding  []float32
	SourceType string
	SourceID   string
	Category   string // empty means no category (NULL in the database)
	Metadata   map[string]any
	ChunkIndex int
	TokenCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SearchResult pairs a chunk with its distance to a query vector.
// Similarity is 1 - cosine distance.
type SearchResult struct {
	Chunk      ContentChunk
	Similarity float64
	Distance   float64
}

// Filter restricts a similarity search. Zero-value fields impose no
// constraint; set fields AND-combine.
type Filter struct {
	SourceType string
	Category   string
	SourceID   string
}

// ChunkInput is the per-chunk payload supplied by the indexing pipeline.
// Source identity, metadata, and category are shared per batch.
type ChunkInput struct {
	Content    string
	Embedding  []float32
	ChunkIndex int
	TokenCount int
}

// Stats summarizes the stored corpus.
type Stats struct {
	TotalChunks      int
	ChunksByType     map[string]int
	ChunksByCategory map[string]int
}
