package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"
)

const factColumns = `id, claim, embedding, confidence, confidence_history,
	citation_count, challenge_count, source_post_id, source_user_id, created_at, updated_at`

type FactStore struct {
	pool Pool
}

func NewFactStore(pool Pool) *FactStore {
	return &FactStore{pool: pool}
}

func (s *FactStore) Create(ctx context.Context, f *domain.FactClaim) error {
	if len(f.Embedding) == 0 {
		return ErrEmbeddingMissing
	}
	if f.ConfidenceHistory == nil {
		f.ConfidenceHistory = []domain.ConfidenceChange{}
	}
	history, err := json.Marshal(f.ConfidenceHistory)
	if err != nil {
		return eris.Wrap(err, "facts: marshal history")
	}

	err = conn(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO fact_claims (claim, embedding, confidence, confidence_history, source_post_id, source_user_id)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)
		 RETURNING id, created_at, updated_at`,
		f.Claim, pgvector.NewVector(f.Embedding), f.Confidence, string(history), f.SourcePostID, f.SourceUserID,
	).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	return translate(err, "facts: insert")
}

func (s *FactStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.FactClaim, error) {
	row := conn(ctx, s.pool).QueryRow(ctx,
		`SELECT `+factColumns+` FROM fact_claims WHERE id = $1`, id)
	f, err := scanFact(row)
	if err != nil {
		return nil, translate(err, "facts: get")
	}
	return f, nil
}

func (s *FactStore) GetByPost(ctx context.Context, postID string) ([]domain.FactClaim, error) {
	return s.list(ctx, "facts: by post",
		`SELECT `+factColumns+` FROM fact_claims
		 WHERE source_post_id = $1
		 ORDER BY created_at ASC`, postID)
}

func (s *FactStore) TopByConfidence(ctx context.Context, limit int) ([]domain.FactClaim, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.list(ctx, "facts: top",
		`SELECT `+factColumns+` FROM fact_claims
		 ORDER BY confidence DESC, created_at DESC
		 LIMIT $1`, limit)
}

func (s *FactStore) ListByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.FactClaim, error) {
	where, args := confidenceConditions(f)
	args = append(args, limitOrDefault(f.Limit))
	query := fmt.Sprintf(
		`SELECT `+factColumns+` FROM fact_claims
		 %s
		 ORDER BY confidence DESC, created_at DESC
		 LIMIT $%d`, where, len(args))
	return s.list(ctx, "facts: by confidence", query, args...)
}

func (s *FactStore) UpdateConfidence(ctx context.Context, id uuid.UUID, change domain.ConfidenceChange) error {
	entry, err := json.Marshal([]domain.ConfidenceChange{change})
	if err != nil {
		return eris.Wrap(err, "facts: marshal history entry")
	}
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`UPDATE fact_claims
		 SET confidence = $1, confidence_history = confidence_history || $2::jsonb, updated_at = NOW()
		 WHERE id = $3`,
		change.New, string(entry), id,
	)
	if err != nil {
		return translate(err, "facts: update confidence")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FactStore) IncrementCounter(ctx context.Context, id uuid.UUID, counter domain.FactCounter) error {
	switch counter {
	case domain.FactCounterCitation, domain.FactCounterChallenge:
	default:
		return eris.Errorf("facts: unknown counter %q", counter)
	}
	tag, err := conn(ctx, s.pool).Exec(ctx,
		fmt.Sprintf(`UPDATE fact_claims SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1`, counter),
		id,
	)
	if err != nil {
		return translate(err, "facts: increment counter")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FactStore) ListEmbeddings(ctx context.Context) ([]domain.IndexedVector, error) {
	return listEmbeddings(ctx, conn(ctx, s.pool), "fact_claims")
}

func (s *FactStore) list(ctx context.Context, op, query string, args ...any) ([]domain.FactClaim, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, op)
	}
	defer rows.Close()

	var results []domain.FactClaim
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, eris.Wrap(err, op)
		}
		results = append(results, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, op)
	}
	return results, nil
}

func scanFact(row pgx.Row) (*domain.FactClaim, error) {
	var f domain.FactClaim
	var vec pgvector.Vector
	err := row.Scan(
		&f.ID, &f.Claim, &vec, &f.Confidence, &f.ConfidenceHistory,
		&f.CitationCount, &f.ChallengeCount, &f.SourcePostID, &f.SourceUserID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Embedding = vec.Slice()
	return &f, nil
}
