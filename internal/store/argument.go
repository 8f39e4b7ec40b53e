package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rotisserie/eris"
)

const argumentColumns = `id, content, summary, embedding, confidence, confidence_history,
	logical_validity, evidence_quality, coherence, entropy_score,
	support_count, refute_count, citation_count, cluster_id, is_cluster_head,
	effective_confidence, source_post_id, source_user_id, created_at, updated_at`

type ArgumentStore struct {
	pool Pool
}

func NewArgumentStore(pool Pool) *ArgumentStore {
	return &ArgumentStore{pool: pool}
}

func (s *ArgumentStore) Create(ctx context.Context, a *domain.Argument) error {
	if len(a.Embedding) == 0 {
		return ErrEmbeddingMissing
	}
	if a.ConfidenceHistory == nil {
		a.ConfidenceHistory = []domain.ConfidenceChange{}
	}
	history, err := json.Marshal(a.ConfidenceHistory)
	if err != nil {
		return eris.Wrap(err, "arguments: marshal history")
	}

	err = conn(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO arguments (content, summary, embedding, confidence, confidence_history,
		                        logical_validity, evidence_quality, coherence, entropy_score,
		                        source_post_id, source_user_id)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		a.Content, a.Summary, pgvector.NewVector(a.Embedding), a.Confidence, string(history),
		a.LogicalValidity, a.EvidenceQuality, a.Coherence, a.EntropyScore,
		a.SourcePostID, a.SourceUserID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return translate(err, "arguments: insert")
}

func (s *ArgumentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	row := conn(ctx, s.pool).QueryRow(ctx,
		`SELECT `+argumentColumns+` FROM arguments WHERE id = $1`, id)
	a, err := scanArgument(row)
	if err != nil {
		return nil, translate(err, "arguments: get")
	}
	return a, nil
}

func (s *ArgumentStore) GetByCluster(ctx context.Context, clusterID uuid.UUID) ([]domain.Argument, error) {
	return s.list(ctx, "arguments: by cluster",
		`SELECT `+argumentColumns+` FROM arguments
		 WHERE cluster_id = $1
		 ORDER BY is_cluster_head DESC, confidence DESC, created_at ASC`, clusterID)
}

func (s *ArgumentStore) GetByPost(ctx context.Context, postID string) ([]domain.Argument, error) {
	return s.list(ctx, "arguments: by post",
		`SELECT `+argumentColumns+` FROM arguments
		 WHERE source_post_id = $1
		 ORDER BY created_at ASC`, postID)
}

func (s *ArgumentStore) TopByConfidence(ctx context.Context, limit int) ([]domain.Argument, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.list(ctx, "arguments: top",
		`SELECT `+argumentColumns+` FROM arguments
		 ORDER BY confidence DESC, created_at DESC
		 LIMIT $1`, limit)
}

func (s *ArgumentStore) ListByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.Argument, error) {
	where, args := confidenceConditions(f)
	args = append(args, limitOrDefault(f.Limit))
	query := fmt.Sprintf(
		`SELECT `+argumentColumns+` FROM arguments
		 %s
		 ORDER BY confidence DESC, created_at DESC
		 LIMIT $%d`, where, len(args))
	return s.list(ctx, "arguments: by confidence", query, args...)
}

func (s *ArgumentStore) UpdateConfidence(ctx context.Context, id uuid.UUID, change domain.ConfidenceChange) error {
	entry, err := json.Marshal([]domain.ConfidenceChange{change})
	if err != nil {
		return eris.Wrap(err, "arguments: marshal history entry")
	}
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`UPDATE arguments
		 SET confidence = $1, confidence_history = confidence_history || $2::jsonb, updated_at = NOW()
		 WHERE id = $3`,
		change.New, string(entry), id,
	)
	if err != nil {
		return translate(err, "arguments: update confidence")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ArgumentStore) IncrementCounter(ctx context.Context, id uuid.UUID, counter domain.ArgumentCounter) error {
	switch counter {
	case domain.CounterSupport, domain.CounterRefute, domain.CounterCitation:
	default:
		return eris.Errorf("arguments: unknown counter %q", counter)
	}
	tag, err := conn(ctx, s.pool).Exec(ctx,
		fmt.Sprintf(`UPDATE arguments SET %[1]s = %[1]s + 1, updated_at = NOW() WHERE id = $1`, counter),
		id,
	)
	if err != nil {
		return translate(err, "arguments: increment counter")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ArgumentStore) SetCluster(ctx context.Context, id uuid.UUID, clusterID uuid.UUID, isHead bool) error {
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`UPDATE arguments SET cluster_id = $1, is_cluster_head = $2, updated_at = NOW() WHERE id = $3`,
		clusterID, isHead, id,
	)
	if err != nil {
		return translate(err, "arguments: set cluster")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ArgumentStore) SetEffectiveConfidence(ctx context.Context, id uuid.UUID, value float64) error {
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`UPDATE arguments SET effective_confidence = $1, updated_at = NOW() WHERE id = $2`,
		value, id,
	)
	if err != nil {
		return translate(err, "arguments: set effective confidence")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ArgumentStore) ListEmbeddings(ctx context.Context) ([]domain.IndexedVector, error) {
	return listEmbeddings(ctx, conn(ctx, s.pool), "arguments")
}

func (s *ArgumentStore) list(ctx context.Context, op, query string, args ...any) ([]domain.Argument, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, op)
	}
	defer rows.Close()

	var results []domain.Argument
	for rows.Next() {
		a, err := scanArgument(rows)
		if err != nil {
			return nil, eris.Wrap(err, op)
		}
		results = append(results, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, op)
	}
	return results, nil
}

func scanArgument(row pgx.Row) (*domain.Argument, error) {
	var a domain.Argument
	var vec pgvector.Vector
	err := row.Scan(
		&a.ID, &a.Content, &a.Summary, &vec, &a.Confidence, &a.ConfidenceHistory,
		&a.LogicalValidity, &a.EvidenceQuality, &a.Coherence, &a.EntropyScore,
		&a.SupportCount, &a.RefuteCount, &a.CitationCount, &a.ClusterID, &a.IsClusterHead,
		&a.EffectiveConfidence, &a.SourcePostID, &a.SourceUserID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Embedding = vec.Slice()
	return &a, nil
}

// confidenceConditions renders a WHERE clause for a confidence band.
func confidenceConditions(f domain.ConfidenceFilter) (string, []any) {
	var conditions []string
	var args []any
	if f.Below != nil {
		args = append(args, *f.Below)
		conditions = append(conditions, fmt.Sprintf("confidence < $%d", len(args)))
	}
	if f.Above != nil {
		args = append(args, *f.Above)
		conditions = append(conditions, fmt.Sprintf("confidence > $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func listEmbeddings(ctx context.Context, db DB, table string) ([]domain.IndexedVector, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(`SELECT id, embedding, created_at FROM %s`, table))
	if err != nil {
		return nil, translate(err, table+": list embeddings")
	}
	defer rows.Close()

	var out []domain.IndexedVector
	for rows.Next() {
		var v domain.IndexedVector
		var vec pgvector.Vector
		if err := rows.Scan(&v.ID, &vec, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, table+": scan embedding")
		}
		v.Vector = vec.Slice()
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, table+": list embeddings")
	}
	return out, nil
}
