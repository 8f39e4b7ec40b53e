package domain

import (
	"time"

	"github.com/google/uuid"
)

// FactClaim is a checkable claim. Facts are never deleted; debunked facts
// stay in the ledger at low confidence.
type FactClaim struct {
	ID                uuid.UUID          `json:"id"`
	Claim             string             `json:"claim"`
	Embedding         []float32          `json:"-"`
	Confidence        float64            `json:"confidence"`
	ConfidenceHistory []ConfidenceChange `json:"confidence_history"`
	CitationCount     int                `json:"citation_count"`
	ChallengeCount    int                `json:"challenge_count"`
	SourcePostID      *string            `json:"source_post_id,omitempty"`
	SourceUserID      *string            `json:"source_user_id,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

type FactCounter string

const (
	FactCounterCitation  FactCounter = "citation_count"
	FactCounterChallenge FactCounter = "challenge_count"
)

// ArgumentFactDependency records how strongly an argument leans on a fact.
type ArgumentFactDependency struct {
	ID                 uuid.UUID `json:"id"`
	ArgumentID         uuid.UUID `json:"argument_id"`
	FactClaimID        uuid.UUID `json:"fact_claim_id"`
	DependencyStrength float64   `json:"dependency_strength"`
	CreatedAt          time.Time `json:"created_at"`
}

// DependencyLink is a dependency joined with the fact's current confidence.
type DependencyLink struct {
	ArgumentFactDependency
	FactConfidence float64 `json:"fact_confidence"`
}
