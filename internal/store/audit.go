package store

import (
	"context"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

const auditColumns = `id, entity_type, entity_id, field, old_confidence, new_confidence, reason,
	propagated_from, cosine_similarity, interaction_id, created_at`

// AuditStore is the append-only confidence audit log. Rows are never updated
// or deleted; reads follow insertion order.
type AuditStore struct {
	pool Pool
}

func NewAuditStore(pool Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

func (s *AuditStore) Append(ctx context.Context, e *domain.ConfidenceAuditEntry) error {
	if e.Field == "" {
		e.Field = domain.FieldConfidence
	}
	err := conn(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO confidence_audit_log (entity_type, entity_id, field, old_confidence, new_confidence, reason,
		                                   propagated_from, cosine_similarity, interaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		e.EntityType, e.EntityID, e.Field, e.OldConfidence, e.NewConfidence, e.Reason,
		e.PropagatedFrom, e.CosineSimilarity, e.InteractionID,
	).Scan(&e.ID, &e.Timestamp)
	return translate(err, "audit: append")
}

func (s *AuditStore) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID uuid.UUID, limit int) ([]domain.ConfidenceAuditEntry, error) {
	return s.list(ctx, "audit: by entity",
		`SELECT `+auditColumns+` FROM confidence_audit_log
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY seq ASC
		 LIMIT $3`,
		entityType, entityID, limitOrDefault(limit))
}

func (s *AuditStore) ListByInteraction(ctx context.Context, interactionID string) ([]domain.ConfidenceAuditEntry, error) {
	return s.list(ctx, "audit: by interaction",
		`SELECT `+auditColumns+` FROM confidence_audit_log
		 WHERE interaction_id = $1
		 ORDER BY seq ASC`,
		interactionID)
}

func (s *AuditStore) list(ctx context.Context, op, query string, args ...any) ([]domain.ConfidenceAuditEntry, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, op)
	}
	defer rows.Close()

	var entries []domain.ConfidenceAuditEntry
	for rows.Next() {
		var e domain.ConfidenceAuditEntry
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.Field, &e.OldConfidence, &e.NewConfidence, &e.Reason,
			&e.PropagatedFrom, &e.CosineSimilarity, &e.InteractionID, &e.Timestamp,
		); err != nil {
			return nil, eris.Wrap(err, op)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, op)
	}
	return entries, nil
}
