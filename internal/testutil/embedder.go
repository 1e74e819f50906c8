package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/ashermoss/portfolio-rag/internal/embedding"
)

// FakeEmbedder produces deterministic embeddings without calling OpenAI.
// Each word hashes to one dimension, so texts that share words score a
// higher cosine similarity than unrelated texts. Token counts use the
// word count so tests can assert on them exactly.
type FakeEmbedder struct {
	Dimension int
	// Err, when set, is returned from every call.
	Err error
}

// NewFakeEmbedder returns a FakeEmbedder with the given dimension.
func NewFakeEmbedder(dimension int) *FakeEmbedder {
	return &FakeEmbedder{Dimension: dimension}
}

// EmbedText returns the deterministic vector for text.
func (f *FakeEmbedder) EmbedText(_ context.Context, text string) (embedding.EmbeddedText, error) {
	if f.Err != nil {
		return embedding.EmbeddedText{}, f.Err
	}
	return embedding.EmbeddedText{
		Vector:     Vector(text, f.Dimension),
		TokenCount: len(strings.Fields(text)),
	}, nil
}

// Vector computes a normalized bag-of-words vector for text. The same text
// always yields the same vector.
func Vector(text string, dimension int) []float32 {
	vec := make([]float32, dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[int(h.Sum32())%dimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
