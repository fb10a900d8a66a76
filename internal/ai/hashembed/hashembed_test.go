package hashembed

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbedIsDeterministic(t *testing.T) {
	e := New(64)
	a, _ := e.Embed(context.Background(), "Go, Kubernetes and C++")
	b, _ := e.Embed(context.Background(), "go kubernetes AND c++")

	if len(a) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a))
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical vectors for equivalent text")
	}
}

func TestEmbedSimilarity(t *testing.T) {
	e := New(0)
	if e.Dimensions() != DefaultDimensions {
		t.Fatalf("expected default dimensions, got %d", e.Dimensions())
	}

	profile, _ := e.Embed(context.Background(), "python sql docker data engineer")
	near, _ := e.Embed(context.Background(), "data engineer python sql airflow")
	far, _ := e.Embed(context.Background(), "registered nurse night shifts")

	if cosine(profile, near) <= cosine(profile, far) {
		t.Fatalf("expected overlapping text to score higher: near=%v far=%v", cosine(profile, near), cosine(profile, far))
	}
}

func TestEmbedEmptyText(t *testing.T) {
	vec, err := New(8).Embed(context.Background(), "  ,, ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range vec {
		if v != 0 {
			t.Fatalf("expected zero vector, got %v", vec)
		}
	}
}
