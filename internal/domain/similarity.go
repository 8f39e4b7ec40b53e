package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SimilarityQuery asks for the nearest same-type neighbors of Vector.
// Matches below MinSimilarity are dropped before truncation to Limit.
type SimilarityQuery struct {
	Kind          EntityType
	Vector        []float32
	Limit         int
	ExcludeID     *uuid.UUID
	MinSimilarity float64
}

type SimilarityMatch struct {
	ID         uuid.UUID `json:"id"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// SimilarityIndex returns matches ordered by similarity descending, ties
// broken by most recent creation.
type SimilarityIndex interface {
	Query(ctx context.Context, q SimilarityQuery) ([]SimilarityMatch, error)
}

// SimilarityIndexer is implemented by indexes that must be told about new
// entities. Store-backed indexes see new rows without it.
type SimilarityIndexer interface {
	Add(kind EntityType, id uuid.UUID, vector []float32, createdAt time.Time)
}

// IndexedVector is a stored embedding as loaded for an in-memory index.
type IndexedVector struct {
	ID        uuid.UUID
	Vector    []float32
	CreatedAt time.Time
}
