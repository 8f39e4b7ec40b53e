package api

import (
	"context"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func ret[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

func ptrTo[T any](v T) *T {
	return &v
}

type mockLedger struct{ mock.Mock }

func (m *mockLedger) CreateArgument(ctx context.Context, in service.CreateArgumentInput) (*domain.Argument, error) {
	args := m.Called(ctx, in)
	return ret[*domain.Argument](args, 0), args.Error(1)
}

func (m *mockLedger) GetArgument(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	args := m.Called(ctx, id)
	return ret[*domain.Argument](args, 0), args.Error(1)
}

func (m *mockLedger) ArgumentsByCluster(ctx context.Context, clusterID uuid.UUID) ([]domain.Argument, error) {
	args := m.Called(ctx, clusterID)
	return ret[[]domain.Argument](args, 0), args.Error(1)
}

func (m *mockLedger) ArgumentsByPost(ctx context.Context, postID string) ([]domain.Argument, error) {
	args := m.Called(ctx, postID)
	return ret[[]domain.Argument](args, 0), args.Error(1)
}

func (m *mockLedger) TopArguments(ctx context.Context, limit int) ([]domain.Argument, error) {
	args := m.Called(ctx, limit)
	return ret[[]domain.Argument](args, 0), args.Error(1)
}

func (m *mockLedger) ArgumentsByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.Argument, error) {
	args := m.Called(ctx, f)
	return ret[[]domain.Argument](args, 0), args.Error(1)
}

func (m *mockLedger) FindSimilarArguments(ctx context.Context, vector []float32, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error) {
	args := m.Called(ctx, vector, opts)
	return ret[[]domain.SimilarityMatch](args, 0), args.Error(1)
}

func (m *mockLedger) NeighborsOfArgument(ctx context.Context, id uuid.UUID, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error) {
	args := m.Called(ctx, id, opts)
	return ret[[]domain.SimilarityMatch](args, 0), args.Error(1)
}

func (m *mockLedger) CreateFact(ctx context.Context, in service.CreateFactInput) (*domain.FactClaim, error) {
	args := m.Called(ctx, in)
	return ret[*domain.FactClaim](args, 0), args.Error(1)
}

func (m *mockLedger) GetFact(ctx context.Context, id uuid.UUID) (*domain.FactClaim, error) {
	args := m.Called(ctx, id)
	return ret[*domain.FactClaim](args, 0), args.Error(1)
}

func (m *mockLedger) FactsByPost(ctx context.Context, postID string) ([]domain.FactClaim, error) {
	args := m.Called(ctx, postID)
	return ret[[]domain.FactClaim](args, 0), args.Error(1)
}

func (m *mockLedger) TopFacts(ctx context.Context, limit int) ([]domain.FactClaim, error) {
	args := m.Called(ctx, limit)
	return ret[[]domain.FactClaim](args, 0), args.Error(1)
}

func (m *mockLedger) FactsByConfidence(ctx context.Context, f domain.ConfidenceFilter) ([]domain.FactClaim, error) {
	args := m.Called(ctx, f)
	return ret[[]domain.FactClaim](args, 0), args.Error(1)
}

func (m *mockLedger) FindSimilarFacts(ctx context.Context, claim string, opts service.SimilarityOptions) ([]domain.SimilarityMatch, error) {
	args := m.Called(ctx, claim, opts)
	return ret[[]domain.SimilarityMatch](args, 0), args.Error(1)
}

type mockEngine struct{ mock.Mock }

func (m *mockEngine) UpdateConfidence(ctx context.Context, kind domain.EntityType, id uuid.UUID, value float64, reason, interactionID string) (*service.MutationResult, error) {
	args := m.Called(ctx, kind, id, value, reason, interactionID)
	return ret[*service.MutationResult](args, 0), args.Error(1)
}

func (m *mockEngine) Support(ctx context.Context, id uuid.UUID, interactionID string) (*service.MutationResult, error) {
	args := m.Called(ctx, id, interactionID)
	return ret[*service.MutationResult](args, 0), args.Error(1)
}

func (m *mockEngine) Refute(ctx context.Context, id uuid.UUID, interactionID string) (*service.MutationResult, error) {
	args := m.Called(ctx, id, interactionID)
	return ret[*service.MutationResult](args, 0), args.Error(1)
}

func (m *mockEngine) Cite(ctx context.Context, id uuid.UUID, interactionID string) (*service.MutationResult, error) {
	args := m.Called(ctx, id, interactionID)
	return ret[*service.MutationResult](args, 0), args.Error(1)
}

func (m *mockEngine) Challenge(ctx context.Context, id uuid.UUID, interactionID string) (*service.MutationResult, error) {
	args := m.Called(ctx, id, interactionID)
	return ret[*service.MutationResult](args, 0), args.Error(1)
}

func (m *mockEngine) LinkToFact(ctx context.Context, argumentID, factID uuid.UUID, strength float64) (*domain.ArgumentFactDependency, *domain.Argument, error) {
	args := m.Called(ctx, argumentID, factID, strength)
	return ret[*domain.ArgumentFactDependency](args, 0), ret[*domain.Argument](args, 1), args.Error(2)
}

func (m *mockEngine) RecomputeForFact(ctx context.Context, factID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, factID)
	return ret[[]uuid.UUID](args, 0), args.Error(1)
}

type mockNotes struct{ mock.Mock }

func (m *mockNotes) Create(ctx context.Context, in service.CreateNoteInput) (*domain.CommunityNote, error) {
	args := m.Called(ctx, in)
	return ret[*domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) Get(ctx context.Context, id uuid.UUID) (*domain.CommunityNote, error) {
	args := m.Called(ctx, id)
	return ret[*domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) ByPost(ctx context.Context, postID string) ([]domain.CommunityNote, error) {
	args := m.Called(ctx, postID)
	return ret[[]domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) ByFact(ctx context.Context, factID uuid.UUID) ([]domain.CommunityNote, error) {
	args := m.Called(ctx, factID)
	return ret[[]domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) PendingAppeals(ctx context.Context, limit int) ([]domain.CommunityNote, error) {
	args := m.Called(ctx, limit)
	return ret[[]domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) Vote(ctx context.Context, noteID uuid.UUID, voterID string, isHelpful bool) (*domain.CommunityNote, error) {
	args := m.Called(ctx, noteID, voterID, isHelpful)
	return ret[*domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) Appeal(ctx context.Context, noteID uuid.UUID, requesterID string, reason *string) (*domain.CommunityNote, error) {
	args := m.Called(ctx, noteID, requesterID, reason)
	return ret[*domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) ResolveAppeal(ctx context.Context, noteID uuid.UUID, isAdmin bool, outcome string) (*domain.CommunityNote, error) {
	args := m.Called(ctx, noteID, isAdmin, outcome)
	return ret[*domain.CommunityNote](args, 0), args.Error(1)
}

func (m *mockNotes) Effectiveness(ctx context.Context, id uuid.UUID) (float64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(float64), args.Error(1)
}

type mockAudit struct{ mock.Mock }

func (m *mockAudit) History(ctx context.Context, entityType string, id uuid.UUID, limit int) ([]domain.ConfidenceAuditEntry, error) {
	args := m.Called(ctx, entityType, id, limit)
	return ret[[]domain.ConfidenceAuditEntry](args, 0), args.Error(1)
}

func (m *mockAudit) ByInteraction(ctx context.Context, interactionID string) ([]domain.ConfidenceAuditEntry, error) {
	args := m.Called(ctx, interactionID)
	return ret[[]domain.ConfidenceAuditEntry](args, 0), args.Error(1)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }
