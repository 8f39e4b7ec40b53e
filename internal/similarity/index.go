package similarity

import (
	"context"
	"sync"
	"time"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
)

// arena holds one entity kind's vectors back to back in a single slice.
// Vector i lives at data[offsets[i]:offsets[i+1]].
type arena struct {
	ids       []uuid.UUID
	createdAt []time.Time
	offsets   []int
	data      []float32
	pos       map[uuid.UUID]int
}

func newArena() *arena {
	return &arena{offsets: []int{0}, pos: make(map[uuid.UUID]int)}
}

func (a *arena) vector(i int) []float32 {
	return a.data[a.offsets[i]:a.offsets[i+1]]
}

// MemoryIndex is an in-process SimilarityIndex. Embeddings are immutable, so
// adding an id that is already present is a no-op.
type MemoryIndex struct {
	mu     sync.RWMutex
	arenas map[domain.EntityType]*arena
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{arenas: make(map[domain.EntityType]*arena)}
}

func (idx *MemoryIndex) Add(kind domain.EntityType, id uuid.UUID, vector []float32, createdAt time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	a, ok := idx.arenas[kind]
	if !ok {
		a = newArena()
		idx.arenas[kind] = a
	}
	if _, exists := a.pos[id]; exists {
		return
	}

	a.pos[id] = len(a.ids)
	a.ids = append(a.ids, id)
	a.createdAt = append(a.createdAt, createdAt)
	a.data = append(a.data, vector...)
	a.offsets = append(a.offsets, len(a.data))
}

// Load bulk-adds stored vectors for one kind.
func (idx *MemoryIndex) Load(kind domain.EntityType, vectors []domain.IndexedVector) {
	for _, v := range vectors {
		idx.Add(kind, v.ID, v.Vector, v.CreatedAt)
	}
}

// Len returns the number of vectors indexed for kind.
func (idx *MemoryIndex) Len(kind domain.EntityType) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if a, ok := idx.arenas[kind]; ok {
		return len(a.ids)
	}
	return 0
}

func (idx *MemoryIndex) Query(ctx context.Context, q domain.SimilarityQuery) ([]domain.SimilarityMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	a, ok := idx.arenas[q.Kind]
	if !ok {
		return nil, nil
	}

	matches := make([]domain.SimilarityMatch, 0, len(a.ids))
	for i, id := range a.ids {
		matches = append(matches, domain.SimilarityMatch{
			ID:         id,
			Similarity: Cosine(q.Vector, a.vector(i)),
			CreatedAt:  a.createdAt[i],
		})
	}
	return Select(matches, q), nil
}
