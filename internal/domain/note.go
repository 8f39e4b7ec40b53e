package domain

import (
	"time"

	"github.com/google/uuid"
)

type NoteType string

const (
	NoteTypeMisleading     NoteType = "misleading"
	NoteTypeMissingContext NoteType = "missing_context"
	NoteTypeFactualError   NoteType = "factual_error"
	NoteTypeOutdated       NoteType = "outdated"
	NoteTypeSatire         NoteType = "satire"
)

func ValidNoteType(t string) bool {
	switch NoteType(t) {
	case NoteTypeMisleading, NoteTypeMissingContext, NoteTypeFactualError, NoteTypeOutdated, NoteTypeSatire:
		return true
	}
	return false
}

type NoteStatus string

const (
	NoteStatusDraft     NoteStatus = "draft"
	NoteStatusVoting    NoteStatus = "voting"
	NoteStatusDisplayed NoteStatus = "displayed"
	NoteStatusHidden    NoteStatus = "hidden"
	NoteStatusAppealed  NoteStatus = "appealed"
)

type AppealOutcome string

const (
	AppealUpheld   AppealOutcome = "upheld"
	AppealRejected AppealOutcome = "rejected"
)

func ValidAppealOutcome(o string) bool {
	switch AppealOutcome(o) {
	case AppealUpheld, AppealRejected:
		return true
	}
	return false
}

const DefaultDisplayThreshold = 0.7

type CommunityNote struct {
	ID               uuid.UUID      `json:"id"`
	AuthorID         string         `json:"author_id"`
	Content          string         `json:"content"`
	NoteType         NoteType       `json:"note_type"`
	PostID           *string        `json:"post_id,omitempty"`
	FactClaimID      *uuid.UUID     `json:"fact_claim_id,omitempty"`
	TargetAuthorID   string         `json:"target_author_id"`
	HelpfulScore     float64        `json:"helpful_score"`
	NotHelpfulScore  float64        `json:"not_helpful_score"`
	VoteCount        int            `json:"vote_count"`
	DisplayThreshold float64        `json:"display_threshold"`
	IsDisplayed      bool           `json:"is_displayed"`
	Status           NoteStatus     `json:"status"`
	IsAppealed       bool           `json:"is_appealed"`
	AppealReason     *string        `json:"appeal_reason,omitempty"`
	AppealResolved   bool           `json:"appeal_resolved"`
	AppealOutcome    *AppealOutcome `json:"appeal_outcome,omitempty"`
	ConfidenceImpact *float64       `json:"confidence_impact,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// HasSingleTarget reports whether exactly one of PostID and FactClaimID is set.
func (n *CommunityNote) HasSingleTarget() bool {
	hasPost := n.PostID != nil && *n.PostID != ""
	hasFact := n.FactClaimID != nil && *n.FactClaimID != uuid.Nil
	return hasPost != hasFact
}

// AppealPending reports whether an appeal was filed and not yet resolved.
func (n *CommunityNote) AppealPending() bool {
	return n.IsAppealed && !n.AppealResolved
}

// AppealUpheld reports whether an appeal took the note down for good.
func (n *CommunityNote) AppealUpheld() bool {
	return n.AppealOutcome != nil && *n.AppealOutcome == AppealUpheld
}

type CommunityNoteVote struct {
	ID              uuid.UUID `json:"id"`
	NoteID          uuid.UUID `json:"note_id"`
	VoterID         string    `json:"voter_id"`
	IsHelpful       bool      `json:"is_helpful"`
	VoterReputation float64   `json:"voter_reputation"`
	CreatedAt       time.Time `json:"created_at"`
}

// NoteScores is the aggregate written back to a note after recomputation.
type NoteScores struct {
	HelpfulScore    float64
	NotHelpfulScore float64
	VoteCount       int
	IsDisplayed     bool
	Status          NoteStatus
}
