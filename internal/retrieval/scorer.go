package retrieval

import (
	"encoding/json"
	"strings"

	"github.com/ashermoss/portfolio-rag/internal/vectorstore"
)

// Scorer ranks a similarity-search candidate against the query. Higher is
// better. Implementations must be deterministic for identical inputs.
type Scorer interface {
	Score(result vectorstore.SearchResult, query string) float64
}

// KeywordScorer is the default ranking strategy: vector similarity boosted
// by literal query-term overlap with the chunk content and metadata, plus a
// flat preference for project chunks.
//
// The coefficients are load-bearing; downstream prompt selection was tuned
// against them.
type KeywordScorer struct{}

// Score computes similarity*10, +0.5 per query term found in the content,
// +0.3 per query term found in the serialized metadata, +0.2 for project
// chunks. Query terms are lowercase whitespace-separated fields; matching
// is literal substring, case-insensitive.
func (KeywordScorer) Score(result vectorstore.SearchResult, query string) float64 {
	score := result.Similarity * 10

	terms := strings.Fields(strings.ToLower(query))
	content := strings.ToLower(result.Chunk.Content)

	var metadata string
	if len(result.Chunk.Metadata) > 0 {
		if raw, err := json.Marshal(result.Chunk.Metadata); err == nil {
			metadata = strings.ToLower(string(raw))
		}
	}

	for _, term := range terms {
		if strings.Contains(content, term) {
			score += 0.5
		}
		if metadata != "" && strings.Contains(metadata, term) {
			score += 0.3
		}
	}

	if result.Chunk.SourceType == vectorstore.SourceTypeProject {
		score += 0.2
	}

	return score
}
