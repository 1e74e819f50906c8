package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ashermoss/portfolio-rag/internal/chunk"
	"github.com/ashermoss/portfolio-rag/internal/log"
)

// mockAPI implements the api interface with configurable behavior.
type mockAPI struct {
	err         error
	dimension   int
	totalTokens int
	reverse     bool // return data out of order to exercise Index handling
	callCount   int
	lastInput   []string
}

func (m *mockAPI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	m.callCount++

	req := conv.Convert()
	input, ok := req.Input.([]string)
	if !ok {
		return openai.EmbeddingResponse{}, errors.New("mock: unexpected input type")
	}
	m.lastInput = input

	if m.err != nil {
		return openai.EmbeddingResponse{}, m.err
	}

	dim := m.dimension
	if dim == 0 {
		dim = 4
	}

	data := make([]openai.Embedding, len(input))
	for i := range input {
		vec := make([]float32, dim)
		vec[0] = float32(i + 1)
		data[i] = openai.Embedding{Index: i, Embedding: vec}
	}
	if m.reverse {
		for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
			data[i], data[j] = data[j], data[i]
		}
	}

	return openai.EmbeddingResponse{
		Data:  data,
		Usage: openai.Usage{TotalTokens: m.totalTokens},
	}, nil
}

func newTestService(m *mockAPI) *Service {
	return New(m, "text-embedding-3-small", 4, chunk.NewChunker(20, 5, nil), log.Nop())
}

func TestEmbedText(t *testing.T) {
	m := &mockAPI{totalTokens: 7}
	s := newTestService(m)

	got, err := s.EmbedText(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("EmbedText() error: %v", err)
	}
	if len(got.Vector) != 4 {
		t.Errorf("vector length = %d, want 4", len(got.Vector))
	}
	if got.TokenCount != 7 {
		t.Errorf("token count = %d, want 7 (exact provider report)", got.TokenCount)
	}
	if m.callCount != 1 {
		t.Errorf("expected one provider call, got %d", m.callCount)
	}
}

func TestEmbedText_ProviderError(t *testing.T) {
	m := &mockAPI{err: errors.New("service unavailable")}
	s := newTestService(m)

	_, err := s.EmbedText(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "embedding text") {
		t.Errorf("error lacks stage prefix: %v", err)
	}
}

func TestEmbedText_DimensionMismatch(t *testing.T) {
	m := &mockAPI{dimension: 3, totalTokens: 1}
	s := newTestService(m)

	_, err := s.EmbedText(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "dimension mismatch") {
		t.Fatalf("expected dimension mismatch error, got %v", err)
	}
}

func TestEmbedBatch(t *testing.T) {
	m := &mockAPI{totalTokens: 10}
	s := newTestService(m)

	texts := []string{"one", "two", "three"}
	got, err := s.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if m.callCount != 1 {
		t.Errorf("batch must be one round trip, got %d calls", m.callCount)
	}
	for i, e := range got {
		// 10 tokens over 3 items, evenly apportioned.
		if e.TokenCount != 3 {
			t.Errorf("item %d token count = %d, want 3", i, e.TokenCount)
		}
		// Vector order must follow input order.
		if e.Vector[0] != float32(i+1) {
			t.Errorf("item %d vector out of order: %v", i, e.Vector[0])
		}
	}
}

func TestEmbedBatch_OutOfOrderResponse(t *testing.T) {
	m := &mockAPI{totalTokens: 6, reverse: true}
	s := newTestService(m)

	got, err := s.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}
	for i, e := range got {
		if e.Vector[0] != float32(i+1) {
			t.Errorf("item %d not reordered by index: %v", i, e.Vector[0])
		}
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	m := &mockAPI{}
	s := newTestService(m)

	got, err := s.EmbedBatch(context.Background(), nil)
	if err != nil || got != nil {
		t.Fatalf("empty batch should be a no-op, got %v, %v", got, err)
	}
	if m.callCount != 0 {
		t.Error("empty batch must not call the provider")
	}
}

func TestEmbedChunks(t *testing.T) {
	m := &mockAPI{totalTokens: 40}
	s := newTestService(m)

	// Chunker budget is 20 tokens, so this splits into several chunks.
	text := strings.Repeat("This sentence pads the document with words. ", 10)
	got, err := s.EmbedChunks(context.Background(), text)
	if err != nil {
		t.Fatalf("EmbedChunks() error: %v", err)
	}
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}
	if m.callCount != 1 {
		t.Errorf("chunks must embed in one round trip, got %d calls", m.callCount)
	}

	perItem := 40 / len(got)
	for i, ec := range got {
		if ec.Chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, ec.Chunk.Index)
		}
		if len(ec.Vector) != 4 {
			t.Errorf("chunk %d vector length = %d", i, len(ec.Vector))
		}
		if ec.Chunk.TokenCount != perItem {
			t.Errorf("chunk %d token count = %d, want apportioned %d", i, ec.Chunk.TokenCount, perItem)
		}
	}
}

func TestIndexText(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		body   string
		fields []Field
		want   string
	}{
		{
			name:  "title and content only",
			title: "Portfolio Site",
			body:  "A personal site.",
			want:  "Title: Portfolio Site\nContent: A personal site.",
		},
		{
			name:  "scalar and list fields",
			title: "Search Engine",
			body:  "Full text search.",
			fields: []Field{
				{Name: "Technologies", Values: []string{"Go", "PostgreSQL"}},
				{Name: "Category", Values: []string{"backend"}},
			},
			want: "Title: Search Engine\nContent: Full text search.\nTechnologies: Go, PostgreSQL\nCategory: backend",
		},
		{
			name:  "empty fields skipped",
			title: "T",
			body:  "B",
			fields: []Field{
				{Name: "Tags", Values: nil},
				{Name: "", Values: []string{"x"}},
				{Name: "Keep", Values: []string{"", "yes"}},
			},
			want: "Title: T\nContent: B\nKeep: yes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IndexText(tt.title, tt.body, tt.fields...)
			if got != tt.want {
				t.Errorf("IndexText() = %q, want %q", got, tt.want)
			}
		})
	}
}
