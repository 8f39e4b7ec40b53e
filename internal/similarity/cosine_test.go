package similarity

import (
	"math"
	"testing"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"both empty", nil, nil, 0},
		{"45 degrees", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSelect_OrderingAndTieBreak(t *testing.T) {
	now := time.Now()
	older := uuid.New()
	newer := uuid.New()
	best := uuid.New()
	low := uuid.New()
	excluded := uuid.New()

	matches := []domain.SimilarityMatch{
		{ID: older, Similarity: 0.9, CreatedAt: now.Add(-time.Hour)},
		{ID: low, Similarity: 0.2, CreatedAt: now},
		{ID: best, Similarity: 0.99, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: newer, Similarity: 0.9, CreatedAt: now},
		{ID: excluded, Similarity: 1, CreatedAt: now},
	}

	got := Select(matches, domain.SimilarityQuery{ExcludeID: &excluded, MinSimilarity: 0.5, Limit: 10})

	want := []uuid.UUID{best, newer, older}
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %v, want %v", i, got[i].ID, id)
		}
	}
}

func TestSelect_FiltersBeforeTruncating(t *testing.T) {
	now := time.Now()
	matches := []domain.SimilarityMatch{
		{ID: uuid.New(), Similarity: 0.3, CreatedAt: now},
		{ID: uuid.New(), Similarity: 0.95, CreatedAt: now},
		{ID: uuid.New(), Similarity: 0.4, CreatedAt: now},
		{ID: uuid.New(), Similarity: 0.9, CreatedAt: now},
	}

	got := Select(matches, domain.SimilarityQuery{MinSimilarity: 0.85, Limit: 3})
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].Similarity != 0.95 || got[1].Similarity != 0.9 {
		t.Errorf("unexpected order: %v", got)
	}
}
