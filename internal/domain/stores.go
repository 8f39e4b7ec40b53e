package domain

import (
	"context"

	"github.com/google/uuid"
)

// Transactor runs fn inside a database transaction carried by the context
// handed to fn. A nested call opens a savepoint, so a failing inner call
// rolls back only its own writes.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type ArgumentStore interface {
	Create(ctx context.Context, a *Argument) error
	GetByID(ctx context.Context, id uuid.UUID) (*Argument, error)
	GetByCluster(ctx context.Context, clusterID uuid.UUID) ([]Argument, error)
	GetByPost(ctx context.Context, postID string) ([]Argument, error)
	TopByConfidence(ctx context.Context, limit int) ([]Argument, error)
	ListByConfidence(ctx context.Context, f ConfidenceFilter) ([]Argument, error)
	// UpdateConfidence sets confidence to change.New and appends change to the history.
	UpdateConfidence(ctx context.Context, id uuid.UUID, change ConfidenceChange) error
	IncrementCounter(ctx context.Context, id uuid.UUID, counter ArgumentCounter) error
	SetCluster(ctx context.Context, id uuid.UUID, clusterID uuid.UUID, isHead bool) error
	SetEffectiveConfidence(ctx context.Context, id uuid.UUID, value float64) error
	ListEmbeddings(ctx context.Context) ([]IndexedVector, error)
}

type FactStore interface {
	Create(ctx context.Context, f *FactClaim) error
	GetByID(ctx context.Context, id uuid.UUID) (*FactClaim, error)
	GetByPost(ctx context.Context, postID string) ([]FactClaim, error)
	TopByConfidence(ctx context.Context, limit int) ([]FactClaim, error)
	ListByConfidence(ctx context.Context, f ConfidenceFilter) ([]FactClaim, error)
	UpdateConfidence(ctx context.Context, id uuid.UUID, change ConfidenceChange) error
	IncrementCounter(ctx context.Context, id uuid.UUID, counter FactCounter) error
	ListEmbeddings(ctx context.Context) ([]IndexedVector, error)
}

type DependencyStore interface {
	Create(ctx context.Context, d *ArgumentFactDependency) error
	GetByArgument(ctx context.Context, argumentID uuid.UUID) ([]DependencyLink, error)
	GetByFact(ctx context.Context, factID uuid.UUID) ([]ArgumentFactDependency, error)
}

// AuditStore is append-only.
type AuditStore interface {
	Append(ctx context.Context, e *ConfidenceAuditEntry) error
	ListByEntity(ctx context.Context, entityType EntityType, entityID uuid.UUID, limit int) ([]ConfidenceAuditEntry, error)
	ListByInteraction(ctx context.Context, interactionID string) ([]ConfidenceAuditEntry, error)
}

type NoteStore interface {
	Create(ctx context.Context, n *CommunityNote) error
	GetByID(ctx context.Context, id uuid.UUID) (*CommunityNote, error)
	// GetByIDForUpdate locks the note row for the rest of the transaction.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*CommunityNote, error)
	GetByPost(ctx context.Context, postID string) ([]CommunityNote, error)
	GetByFact(ctx context.Context, factID uuid.UUID) ([]CommunityNote, error)
	ListPendingAppeals(ctx context.Context, limit int) ([]CommunityNote, error)
	UpdateScores(ctx context.Context, id uuid.UUID, scores NoteScores) error
	MarkAppealed(ctx context.Context, id uuid.UUID, reason *string) error
	ResolveAppeal(ctx context.Context, id uuid.UUID, outcome AppealOutcome, isDisplayed bool, status NoteStatus) error
}

type VoteStore interface {
	// Replace removes any existing vote by the same voter on the same note
	// and inserts v. A concurrent insert of the same pair yields a conflict.
	Replace(ctx context.Context, v *CommunityNoteVote) error
	ListByNote(ctx context.Context, noteID uuid.UUID) ([]CommunityNoteVote, error)
}
