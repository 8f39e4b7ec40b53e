package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntityType string

const (
	EntityArgument  EntityType = "argument"
	EntityFactClaim EntityType = "fact_claim"
)

func ValidEntityType(t string) bool {
	switch EntityType(t) {
	case EntityArgument, EntityFactClaim:
		return true
	}
	return false
}

const DefaultConfidence = 0.5

// ConfidenceChange is one entry of an entity's confidence history.
type ConfidenceChange struct {
	Old       float64   `json:"old"`
	New       float64   `json:"new"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type Argument struct {
	ID                  uuid.UUID          `json:"id"`
	Content             string             `json:"content"`
	Summary             *string            `json:"summary,omitempty"`
	Embedding           []float32          `json:"-"`
	Confidence          float64            `json:"confidence"`
	ConfidenceHistory   []ConfidenceChange `json:"confidence_history"`
	LogicalValidity     *float64           `json:"logical_validity,omitempty"`
	EvidenceQuality     *float64           `json:"evidence_quality,omitempty"`
	Coherence           *float64           `json:"coherence,omitempty"`
	EntropyScore        *float64           `json:"entropy_score,omitempty"`
	SupportCount        int                `json:"support_count"`
	RefuteCount         int                `json:"refute_count"`
	CitationCount       int                `json:"citation_count"`
	ClusterID           *uuid.UUID         `json:"cluster_id,omitempty"`
	IsClusterHead       bool               `json:"is_cluster_head"`
	EffectiveConfidence *float64           `json:"effective_confidence"`
	SourcePostID        string             `json:"source_post_id"`
	SourceUserID        string             `json:"source_user_id"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// SeedConfidence returns the starting confidence implied by the quality
// signals: the mean of logical validity, evidence quality and coherence when
// any are present, DefaultConfidence otherwise. Entropy does not seed.
func (a *Argument) SeedConfidence() float64 {
	var sum float64
	var n int
	for _, s := range []*float64{a.LogicalValidity, a.EvidenceQuality, a.Coherence} {
		if s != nil {
			sum += *s
			n++
		}
	}
	if n == 0 {
		return DefaultConfidence
	}
	return sum / float64(n)
}

// ArgumentCounter names a monotonic counter column on arguments.
type ArgumentCounter string

const (
	CounterSupport  ArgumentCounter = "support_count"
	CounterRefute   ArgumentCounter = "refute_count"
	CounterCitation ArgumentCounter = "citation_count"
)

// ConfidenceFilter selects entities by confidence band. Nil bounds are open.
type ConfidenceFilter struct {
	Below *float64
	Above *float64
	Limit int
}
