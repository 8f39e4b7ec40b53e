package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"
)

var similarityTables = map[domain.EntityType]string{
	domain.EntityArgument:  "arguments",
	domain.EntityFactClaim: "fact_claims",
}

// SimilarityStore answers similarity queries with pgvector's cosine distance
// over the stored embeddings. Rows whose dimension differs from the query, or
// whose similarity is undefined, score 0 instead of failing the query.
type SimilarityStore struct {
	pool Pool
}

func NewSimilarityStore(pool Pool) *SimilarityStore {
	return &SimilarityStore{pool: pool}
}

func (s *SimilarityStore) Query(ctx context.Context, q domain.SimilarityQuery) ([]domain.SimilarityMatch, error) {
	table, ok := similarityTables[q.Kind]
	if !ok {
		return nil, eris.Errorf("similarity: unknown entity type %q", q.Kind)
	}
	if len(q.Vector) == 0 {
		return nil, nil
	}

	var limit *int
	if q.Limit > 0 {
		limit = &q.Limit
	}

	query := fmt.Sprintf(
		`SELECT id, similarity, created_at FROM (
		     SELECT id, created_at,
		            CASE WHEN vector_dims(embedding) = $2
		                 THEN COALESCE(NULLIF(1 - (embedding <=> $1), 'NaN'::float8), 0)
		                 ELSE 0
		            END AS similarity
		     FROM %s
		     WHERE $3::uuid IS NULL OR id <> $3::uuid
		 ) scored
		 WHERE similarity >= $4
		 ORDER BY similarity DESC, created_at DESC, id ASC
		 LIMIT $5`, table)

	rows, err := conn(ctx, s.pool).Query(ctx, query,
		pgvector.NewVector(q.Vector), len(q.Vector), q.ExcludeID, q.MinSimilarity, limit,
	)
	if err != nil {
		return nil, translate(err, "similarity: query")
	}
	defer rows.Close()

	var matches []domain.SimilarityMatch
	for rows.Next() {
		var m domain.SimilarityMatch
		if err := rows.Scan(&m.ID, &m.Similarity, &m.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "similarity: scan")
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "similarity: query")
	}
	return matches, nil
}
