package handlers

import (
	"context"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/google/uuid"
)

// Ledger is the slice of service.LedgerService the handlers call.
type Ledger interface {
	CreateArgument(ctx context.Context, in service.CreateArgumentInput) (*domain.Argument, error)
	GetArgument(ctx context.Context, id uuid.UUID) (*domain.Argument, error)
	ArgumentsByCluster(ctx context.Context, clusterID uuid.UUID) ([]domain.Argument, error)
	ArgumentsByPost(ctx context.Context, postID string) ([]domain.Argument, error)
	TopArguments(ctx context.Context, limit int) ([]domain.Argument, error)
	ArgumentsByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.Argument, error)
	FindSimilarArguments(ctx context.Context, vector []float32, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error)
	NeighborsOfArgument(ctx context.Context, id uuid.UUID, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error)

	CreateFact(ctx context.Context, in service.CreateFactInput) (*domain.FactClaim, error)
	GetFact(ctx context.Context, id uuid.UUID) (*domain.FactClaim, error)
	FactsByPost(ctx context.Context, postID string) ([]domain.FactClaim, error)
	TopFacts(ctx context.Context, limit int) ([]domain.FactClaim, error)
	FactsByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.FactClaim, error)
	FindSimilarFacts(ctx context.Context, claim string, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error)
}

// ConfidenceEngine is the slice of service.PropagationEngine the handlers call.
type ConfidenceEngine interface {
	UpdateConfidence(ctx context.Context, kind domain.EntityType, id uuid.UUID, value float64, reason, interactionID string) (*service.MutationResult, error)
	Support(ctx context.Context, argumentID uuid.UUID, interactionID string) (*service.MutationResult, error)
	Refute(ctx context.Context, argumentID uuid.UUID, interactionID string) (*service.MutationResult, error)
	Cite(ctx context.Context, factID uuid.UUID, interactionID string) (*service.MutationResult, error)
	Challenge(ctx context.Context, factID uuid.UUID, interactionID string) (*service.MutationResult, error)
	LinkToFact(ctx context.Context, argumentID, factID uuid.UUID, strength float64) (*domain.ArgumentFactDependency, *domain.Argument, error)
	RecomputeForFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error)
}

type Notes interface {
	Create(ctx context.Context, in service.CreateNoteInput) (*domain.CommunityNote, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.CommunityNote, error)
	ByPost(ctx context.Context, postID string) ([]domain.CommunityNote, error)
	ByFact(ctx context.Context, factID uuid.UUID) ([]domain.CommunityNote, error)
	PendingAppeals(ctx context.Context, limit int) ([]domain.CommunityNote, error)
	Vote(ctx context.Context, noteID uuid.UUID, voterID string, isHelpful bool) (*domain.CommunityNote, error)
	Appeal(ctx context.Context, noteID uuid.UUID, requesterID string, reason *string) (*domain.CommunityNote, error)
	ResolveAppeal(ctx context.Context, noteID uuid.UUID, isAdmin bool, outcome string) (*domain.CommunityNote, error)
	Effectiveness(ctx context.Context, id uuid.UUID) (float64, error)
}

type AuditLog interface {
	History(ctx context.Context, entityType string, id uuid.UUID, limit int) ([]domain.ConfidenceAuditEntry, error)
	ByInteraction(ctx context.Context, interactionID string) ([]domain.ConfidenceAuditEntry, error)
}

var (
	_ Ledger           = (*service.LedgerService)(nil)
	_ ConfidenceEngine = (*service.PropagationEngine)(nil)
	_ Notes            = (*service.NoteGovernor)(nil)
	_ AuditLog         = (*service.AuditService)(nil)
)
