package similarity

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryIndex_QuerySameKindOnly(t *testing.T) {
	idx := NewMemoryIndex()
	now := time.Now()

	arg := uuid.New()
	fact := uuid.New()
	idx.Add(domain.EntityArgument, arg, []float32{1, 0, 0}, now)
	idx.Add(domain.EntityFactClaim, fact, []float32{1, 0, 0}, now)

	got, err := idx.Query(context.Background(), domain.SimilarityQuery{
		Kind:   domain.EntityArgument,
		Vector: []float32{1, 0, 0},
		Limit:  5,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, arg, got[0].ID)
	assert.InDelta(t, 1.0, got[0].Similarity, 1e-9)
}

func TestMemoryIndex_ExcludeAndThreshold(t *testing.T) {
	idx := NewMemoryIndex()
	now := time.Now()

	self := uuid.New()
	near := uuid.New()
	far := uuid.New()
	idx.Load(domain.EntityArgument, []domain.IndexedVector{
		{ID: self, Vector: []float32{1, 0}, CreatedAt: now},
		{ID: near, Vector: []float32{1, 0.1}, CreatedAt: now},
		{ID: far, Vector: []float32{0, 1}, CreatedAt: now},
	})

	got, err := idx.Query(context.Background(), domain.SimilarityQuery{
		Kind:          domain.EntityArgument,
		Vector:        []float32{1, 0},
		Limit:         5,
		ExcludeID:     &self,
		MinSimilarity: 0.85,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near, got[0].ID)
}

func TestMemoryIndex_MixedDimensionsNeverFail(t *testing.T) {
	idx := NewMemoryIndex()
	now := time.Now()

	short := uuid.New()
	long := uuid.New()
	idx.Add(domain.EntityFactClaim, short, []float32{1, 0}, now)
	idx.Add(domain.EntityFactClaim, long, []float32{1, 0, 0}, now)

	got, err := idx.Query(context.Background(), domain.SimilarityQuery{
		Kind:   domain.EntityFactClaim,
		Vector: []float32{1, 0, 0},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, long, got[0].ID)
	assert.Equal(t, 0.0, got[1].Similarity)
}

func TestMemoryIndex_AddIsIdempotent(t *testing.T) {
	idx := NewMemoryIndex()
	id := uuid.New()
	idx.Add(domain.EntityArgument, id, []float32{1, 2}, time.Now())
	idx.Add(domain.EntityArgument, id, []float32{3, 4}, time.Now())

	assert.Equal(t, 1, idx.Len(domain.EntityArgument))
	assert.Equal(t, 0, idx.Len(domain.EntityFactClaim))
}
