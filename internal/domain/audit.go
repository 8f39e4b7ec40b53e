package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditField names the score an audit entry describes.
type AuditField string

const (
	FieldConfidence          AuditField = "confidence"
	FieldEffectiveConfidence AuditField = "effective_confidence"
)

// ConfidenceAuditEntry is an append-only record of one score mutation.
// PropagatedFrom and CosineSimilarity are set only for propagated entries.
type ConfidenceAuditEntry struct {
	ID               uuid.UUID  `json:"id"`
	EntityType       EntityType `json:"entity_type"`
	EntityID         uuid.UUID  `json:"entity_id"`
	Field            AuditField `json:"field"`
	OldConfidence    float64    `json:"old_confidence"`
	NewConfidence    float64    `json:"new_confidence"`
	Reason           string     `json:"reason"`
	PropagatedFrom   *uuid.UUID `json:"propagated_from,omitempty"`
	CosineSimilarity *float64   `json:"cosine_similarity,omitempty"`
	InteractionID    *string    `json:"interaction_id,omitempty"`
	Timestamp        time.Time  `json:"timestamp"`
}

// IsDirect reports whether the entry records a direct (non-propagated)
// confidence write.
func (e *ConfidenceAuditEntry) IsDirect() bool {
	return e.PropagatedFrom == nil && e.Field == FieldConfidence
}
