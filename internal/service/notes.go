package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/reputation"
	"github.com/Harshitk-cp/epistemic/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	voteRetries          = 3
	noteImpactReason     = "community_note"
	noteImpactIDPrefix   = "note-impact:"
	defaultAppealsPageSz = 50
)

type NoteConfig struct {
	DisplayThreshold float64
	MinVotes         int
}

func DefaultNoteConfig() NoteConfig {
	return NoteConfig{
		DisplayThreshold: domain.DefaultDisplayThreshold,
		MinVotes:         DefaultNoteMinVotes,
	}
}

type CreateNoteInput struct {
	AuthorID         string
	Content          string
	NoteType         string
	PostID           *string
	FactClaimID      *uuid.UUID
	DisplayThreshold *float64
	ConfidenceImpact *float64
	// IsAdmin gates DisplayThreshold; authors always get the configured one.
	IsAdmin bool
}

// NoteGovernor runs the community note lifecycle: reputation-weighted votes,
// the display threshold and the single-appeal branch.
type NoteGovernor struct {
	tx         domain.Transactor
	notes      domain.NoteStore
	votes      domain.VoteStore
	facts      domain.FactStore
	reputation domain.ReputationProvider
	posts      domain.PostAuthorProvider
	engine     *PropagationEngine
	cfg        NoteConfig
	logger     *zap.Logger
}

func NewNoteGovernor(
	tx domain.Transactor,
	notes domain.NoteStore,
	votes domain.VoteStore,
	facts domain.FactStore,
	rep domain.ReputationProvider,
	posts domain.PostAuthorProvider,
	engine *PropagationEngine,
	cfg NoteConfig,
	logger *zap.Logger,
) *NoteGovernor {
	return &NoteGovernor{
		tx:         tx,
		notes:      notes,
		votes:      votes,
		facts:      facts,
		reputation: rep,
		posts:      posts,
		engine:     engine,
		cfg:        cfg,
		logger:     logger,
	}
}

func (g *NoteGovernor) Create(ctx context.Context, in CreateNoteInput) (*domain.CommunityNote, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrContentMissing
	}
	if in.AuthorID == "" {
		return nil, ErrNotAuthorized
	}
	if !domain.ValidNoteType(in.NoteType) {
		return nil, ErrInvalidNoteType
	}
	if in.DisplayThreshold != nil && !in.IsAdmin {
		return nil, ErrNotAuthorized
	}
	if err := checkUnitRange(in.DisplayThreshold); err != nil {
		return nil, err
	}

	n := &domain.CommunityNote{
		AuthorID:         in.AuthorID,
		Content:          in.Content,
		NoteType:         domain.NoteType(in.NoteType),
		PostID:           in.PostID,
		FactClaimID:      in.FactClaimID,
		DisplayThreshold: g.cfg.DisplayThreshold,
		Status:           domain.NoteStatusDraft,
		ConfidenceImpact: in.ConfidenceImpact,
	}
	if !n.HasSingleTarget() {
		return nil, ErrInvalidNoteTarget
	}
	if in.DisplayThreshold != nil {
		n.DisplayThreshold = *in.DisplayThreshold
	}
	if in.ConfidenceImpact != nil {
		if n.FactClaimID == nil {
			return nil, ErrInvalidNoteTarget
		}
		if v := *in.ConfidenceImpact; math.IsNaN(v) || v < -1 || v > 1 {
			return nil, ErrOutOfRange
		}
	}

	author, err := g.targetAuthor(ctx, n)
	if err != nil {
		return nil, err
	}
	n.TargetAuthorID = author

	if err := g.notes.Create(ctx, n); err != nil {
		return nil, err
	}

	g.logger.Debug("community note created",
		zap.String("note_id", n.ID.String()),
		zap.String("note_type", string(n.NoteType)),
		zap.String("author_id", n.AuthorID))

	return n, nil
}

// targetAuthor resolves who may appeal n. Facts carry their own source user
// (system-seeded facts have none); posts are looked up on the platform and a
// post without a known author cannot be noted.
func (g *NoteGovernor) targetAuthor(ctx context.Context, n *domain.CommunityNote) (string, error) {
	if n.FactClaimID != nil {
		fact, err := g.facts.GetByID(ctx, *n.FactClaimID)
		if err != nil {
			return "", notFound(err)
		}
		if fact.SourceUserID == nil {
			return "", nil
		}
		return *fact.SourceUserID, nil
	}

	if g.posts == nil {
		return "", ErrTargetAuthorUnknown
	}
	author, err := g.posts.PostAuthor(ctx, *n.PostID)
	if errors.Is(err, domain.ErrPostNotFound) || (err == nil && author == "") {
		return "", ErrTargetAuthorUnknown
	}
	if err != nil {
		return "", fmt.Errorf("resolve post author: %w", err)
	}
	return author, nil
}

// Vote records or replaces voterID's vote and recomputes the note from its
// full vote set. A lost race on the (note, voter) pair is retried.
func (g *NoteGovernor) Vote(ctx context.Context, noteID uuid.UUID, voterID string, isHelpful bool) (*domain.CommunityNote, error) {
	if voterID == "" {
		return nil, ErrNotAuthorized
	}

	score, err := g.reputation.GetScore(ctx, voterID)
	if err != nil {
		g.logger.Warn("reputation lookup failed, using minimum weight",
			zap.String("voter_id", voterID), zap.Error(err))
		score = domain.MinReputation
	}
	score = reputation.Clamp(score)

	var note *domain.CommunityNote
	for attempt := 1; ; attempt++ {
		note, err = g.castVote(ctx, noteID, voterID, isHelpful, score)
		if err == nil || !errors.Is(err, store.ErrConflict) || attempt >= voteRetries {
			break
		}
		g.logger.Debug("vote raced, retrying",
			zap.String("note_id", noteID.String()),
			zap.String("voter_id", voterID),
			zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	noteVotes.WithLabelValues(boolLabel(isHelpful)).Inc()
	return note, nil
}

func (g *NoteGovernor) castVote(ctx context.Context, noteID uuid.UUID, voterID string, isHelpful bool, score float64) (*domain.CommunityNote, error) {
	var note *domain.CommunityNote
	err := g.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := g.notes.GetByIDForUpdate(ctx, noteID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidState
			}
			return err
		}

		if err := g.votes.Replace(ctx, &domain.CommunityNoteVote{
			NoteID:          noteID,
			VoterID:         voterID,
			IsHelpful:       isHelpful,
			VoterReputation: score,
		}); err != nil {
			return err
		}

		votes, err := g.votes.ListByNote(ctx, noteID)
		if err != nil {
			return err
		}
		scores := ComputeNoteScores(n, votes, g.cfg.MinVotes)
		if err := g.notes.UpdateScores(ctx, noteID, scores); err != nil {
			return err
		}

		wasDisplayed := n.IsDisplayed
		applyScores(n, scores)
		if wasDisplayed != n.IsDisplayed {
			noteDisplayTransitions.WithLabelValues(boolLabel(n.IsDisplayed)).Inc()
			g.logger.Debug("note display changed",
				zap.String("note_id", noteID.String()),
				zap.Bool("is_displayed", n.IsDisplayed),
				zap.Float64("helpful_score", n.HelpfulScore))
		}

		if !wasDisplayed && n.IsDisplayed {
			if err := g.applyImpact(ctx, n); err != nil {
				return err
			}
		}
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// applyImpact moves the targeted fact's confidence by the note's asserted
// delta. The interaction id makes it happen at most once per note.
func (g *NoteGovernor) applyImpact(ctx context.Context, n *domain.CommunityNote) error {
	if g.engine == nil || n.FactClaimID == nil || n.ConfidenceImpact == nil || *n.ConfidenceImpact == 0 {
		return nil
	}
	res, err := g.engine.ApplyDelta(ctx, domain.EntityFactClaim, *n.FactClaimID, *n.ConfidenceImpact,
		noteImpactReason, noteImpactIDPrefix+n.ID.String())
	if err != nil {
		return err
	}
	g.logger.Debug("note impact applied",
		zap.String("note_id", n.ID.String()),
		zap.String("fact_claim_id", n.FactClaimID.String()),
		zap.Float64("old_confidence", res.OldConfidence),
		zap.Float64("new_confidence", res.NewConfidence),
		zap.Bool("replayed", res.Replayed))
	return nil
}

// Appeal may be filed once, by the author of the noted content, while the
// note is displayed.
func (g *NoteGovernor) Appeal(ctx context.Context, noteID uuid.UUID, requesterID string, reason *string) (*domain.CommunityNote, error) {
	var note *domain.CommunityNote
	err := g.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := g.notes.GetByIDForUpdate(ctx, noteID)
		if err != nil {
			return notFound(err)
		}
		if requesterID == "" || n.TargetAuthorID == "" || requesterID != n.TargetAuthorID {
			return ErrNotAuthorized
		}
		if n.IsAppealed || !n.IsDisplayed {
			return ErrInvalidState
		}
		if err := g.notes.MarkAppealed(ctx, noteID, reason); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrInvalidState
			}
			return err
		}
		n.IsAppealed = true
		n.AppealReason = reason
		n.Status = domain.NoteStatusAppealed
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Debug("note appealed",
		zap.String("note_id", noteID.String()),
		zap.String("requester_id", requesterID))

	return note, nil
}

// ResolveAppeal is admin-only. Upheld takes the note down for good; rejected
// leaves its display state as it was.
func (g *NoteGovernor) ResolveAppeal(ctx context.Context, noteID uuid.UUID, isAdmin bool, outcome string) (*domain.CommunityNote, error) {
	if !isAdmin {
		return nil, ErrNotAuthorized
	}
	if !domain.ValidAppealOutcome(outcome) {
		return nil, ErrInvalidAppealOutcome
	}
	o := domain.AppealOutcome(outcome)

	var note *domain.CommunityNote
	err := g.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := g.notes.GetByIDForUpdate(ctx, noteID)
		if err != nil {
			return notFound(err)
		}
		if !n.AppealPending() {
			return ErrInvalidState
		}

		displayed := n.IsDisplayed
		status := noteStatus(displayed, n.VoteCount, g.cfg.MinVotes)
		if o == domain.AppealUpheld {
			displayed = false
			status = domain.NoteStatusHidden
		}
		if err := g.notes.ResolveAppeal(ctx, noteID, o, displayed, status); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrInvalidState
			}
			return err
		}

		if n.IsDisplayed != displayed {
			noteDisplayTransitions.WithLabelValues(boolLabel(displayed)).Inc()
		}
		n.AppealResolved = true
		n.AppealOutcome = &o
		n.IsDisplayed = displayed
		n.Status = status
		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.logger.Debug("appeal resolved",
		zap.String("note_id", noteID.String()),
		zap.String("outcome", outcome))

	return note, nil
}

func (g *NoteGovernor) Get(ctx context.Context, id uuid.UUID) (*domain.CommunityNote, error) {
	n, err := g.notes.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return n, nil
}

func (g *NoteGovernor) ByPost(ctx context.Context, postID string) ([]domain.CommunityNote, error) {
	return g.notes.GetByPost(ctx, postID)
}

func (g *NoteGovernor) ByFact(ctx context.Context, factID uuid.UUID) ([]domain.CommunityNote, error) {
	return g.notes.GetByFact(ctx, factID)
}

func (g *NoteGovernor) PendingAppeals(ctx context.Context, limit int) ([]domain.CommunityNote, error) {
	if limit <= 0 {
		limit = defaultAppealsPageSz
	}
	return g.notes.ListPendingAppeals(ctx, limit)
}

// Effectiveness returns the reward weight for the note's author.
func (g *NoteGovernor) Effectiveness(ctx context.Context, id uuid.UUID) (float64, error) {
	n, err := g.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return NoteEffectiveness(n), nil
}

func applyScores(n *domain.CommunityNote, s domain.NoteScores) {
	n.HelpfulScore = s.HelpfulScore
	n.NotHelpfulScore = s.NotHelpfulScore
	n.VoteCount = s.VoteCount
	n.IsDisplayed = s.IsDisplayed
	n.Status = s.Status
}
