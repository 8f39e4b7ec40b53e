// Package similarity scores embeddings against each other and orders
// nearest-neighbor results.
package similarity

import (
	"math"
	"sort"
	"strings"

	"github.com/Harshitk-cp/epistemic/internal/domain"
)

// Cosine returns the cosine similarity of a and b. It returns 0 when the
// vectors differ in length, are empty, or either has zero norm.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	s := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	switch {
	case math.IsNaN(s):
		return 0
	case s > 1:
		return 1
	case s < -1:
		return -1
	}
	return s
}

// Sort orders matches by similarity descending, then most recent creation.
// The id breaks any remaining tie so results are deterministic.
func Sort(matches []domain.SimilarityMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return strings.Compare(a.ID.String(), b.ID.String()) < 0
	})
}

// Select applies the query's exclusion and minimum, orders the survivors and
// truncates to the limit. A non-positive limit keeps everything.
func Select(matches []domain.SimilarityMatch, q domain.SimilarityQuery) []domain.SimilarityMatch {
	out := make([]domain.SimilarityMatch, 0, len(matches))
	for _, m := range matches {
		if q.ExcludeID != nil && m.ID == *q.ExcludeID {
			continue
		}
		if m.Similarity < q.MinSimilarity {
			continue
		}
		out = append(out, m)
	}

	Sort(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}
