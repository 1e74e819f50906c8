package testutil

import (
	"context"
	"testing"
)

func TestVectorDeterministic(t *testing.T) {
	a := Vector("go backend service", 64)
	b := Vector("go backend service", 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different vectors at %d: %v != %v", i, a[i], b[i])
		}
	}

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if norm < 0.9999 || norm > 1.0001 {
		t.Errorf("non-empty vector should be unit length, norm^2 = %f", norm)
	}

	for i, v := range Vector("", 8) {
		if v != 0 {
			t.Errorf("empty text dimension %d = %f, want 0", i, v)
		}
	}
}

func TestFakeEmbedder(t *testing.T) {
	fake := NewFakeEmbedder(32)

	got, err := fake.EmbedText(context.Background(), "go postgres pipeline")
	if err != nil {
		t.Fatalf("EmbedText() error: %v", err)
	}
	if len(got.Vector) != 32 {
		t.Errorf("dimension = %d, want 32", len(got.Vector))
	}
	if got.TokenCount != 3 {
		t.Errorf("token count = %d, want 3", got.TokenCount)
	}
}
