package service

import (
	"context"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
)

type AuditService struct {
	store domain.AuditStore
}

func NewAuditService(s domain.AuditStore) *AuditService {
	return &AuditService{store: s}
}

// History lists an entity's audit entries in the order they were written.
func (s *AuditService) History(ctx context.Context, entityType string, id uuid.UUID, limit int) ([]domain.ConfidenceAuditEntry, error) {
	if !domain.ValidEntityType(entityType) {
		return nil, ErrInvalidEntityType
	}
	return s.store.ListByEntity(ctx, domain.EntityType(entityType), id, limit)
}

func (s *AuditService) ByInteraction(ctx context.Context, interactionID string) ([]domain.ConfidenceAuditEntry, error) {
	if interactionID == "" {
		return nil, ErrContentMissing
	}
	return s.store.ListByInteraction(ctx, interactionID)
}
