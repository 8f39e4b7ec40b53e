package store

import (
	"context"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

const noteColumns = `id, author_id, content, note_type, post_id, fact_claim_id, target_author_id,
	helpful_score, not_helpful_score, vote_count, display_threshold, is_displayed, status,
	is_appealed, appeal_reason, appeal_resolved, appeal_outcome, confidence_impact, created_at, updated_at`

type NoteStore struct {
	pool Pool
}

func NewNoteStore(pool Pool) *NoteStore {
	return &NoteStore{pool: pool}
}

func (s *NoteStore) Create(ctx context.Context, n *domain.CommunityNote) error {
	if n.Status == "" {
		n.Status = domain.NoteStatusDraft
	}
	err := conn(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO community_notes (author_id, content, note_type, post_id, fact_claim_id, target_author_id,
		                              display_threshold, status, confidence_impact)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		n.AuthorID, n.Content, n.NoteType, n.PostID, n.FactClaimID, n.TargetAuthorID,
		n.DisplayThreshold, n.Status, n.ConfidenceImpact,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	return translate(err, "notes: insert")
}

func (s *NoteStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommunityNote, error) {
	return s.get(ctx, `SELECT `+noteColumns+` FROM community_notes WHERE id = $1`, id)
}

func (s *NoteStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CommunityNote, error) {
	return s.get(ctx, `SELECT `+noteColumns+` FROM community_notes WHERE id = $1 FOR UPDATE`, id)
}

func (s *NoteStore) GetByPost(ctx context.Context, postID string) ([]domain.CommunityNote, error) {
	return s.list(ctx, "notes: by post",
		`SELECT `+noteColumns+` FROM community_notes
		 WHERE post_id = $1
		 ORDER BY is_displayed DESC, helpful_score DESC, created_at ASC`, postID)
}

func (s *NoteStore) GetByFact(ctx context.Context, factID uuid.UUID) ([]domain.CommunityNote, error) {
	return s.list(ctx, "notes: by fact",
		`SELECT `+noteColumns+` FROM community_notes
		 WHERE fact_claim_id = $1
		 ORDER BY is_displayed DESC, helpful_score DESC, created_at ASC`, factID)
}

func (s *NoteStore) ListPendingAppeals(ctx context.Context, limit int) ([]domain.CommunityNote, error) {
	return s.list(ctx, "notes: pending appeals",
		`SELECT `+noteColumns+` FROM community_notes
		 WHERE is_appealed AND NOT appeal_resolved
		 ORDER BY updated_at ASC
		 LIMIT $1`, limitOrDefault(limit))
}

func (s *NoteStore) UpdateScores(ctx context.Context, id uuid.UUID, scores domain.NoteScores) error {
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`UPDATE community_notes
		 SET helpful_score = $1, not_helpful_score = $2, vote_count = $3, is_displayed = $4, status = $5, updated_at = NOW()
		 WHERE id = $6`,
		scores.HelpfulScore, scores.NotHelpfulScore, scores.VoteCount, scores.IsDisplayed, scores.Status, id,
	)
	if err != nil {
		return translate(err, "notes: update scores")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAppealed flips is_appealed only if the note is displayed and has never
// been appealed; otherwise it returns ErrConflict.
func (s *NoteStore) MarkAppealed(ctx context.Context, id uuid.UUID, reason *string) error {
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`UPDATE community_notes
		 SET is_appealed = TRUE, appeal_reason = $1, status = $2, updated_at = NOW()
		 WHERE id = $3 AND is_displayed AND NOT is_appealed`,
		reason, domain.NoteStatusAppealed, id,
	)
	if err != nil {
		return translate(err, "notes: mark appealed")
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// ResolveAppeal closes a pending appeal; a note without one yields ErrConflict.
func (s *NoteStore) ResolveAppeal(ctx context.Context, id uuid.UUID, outcome domain.AppealOutcome, isDisplayed bool, status domain.NoteStatus) error {
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`UPDATE community_notes
		 SET appeal_resolved = TRUE, appeal_outcome = $1, is_displayed = $2, status = $3, updated_at = NOW()
		 WHERE id = $4 AND is_appealed AND NOT appeal_resolved`,
		outcome, isDisplayed, status, id,
	)
	if err != nil {
		return translate(err, "notes: resolve appeal")
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *NoteStore) get(ctx context.Context, query string, id uuid.UUID) (*domain.CommunityNote, error) {
	n, err := scanNote(conn(ctx, s.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err, "notes: get")
	}
	return n, nil
}

func (s *NoteStore) list(ctx context.Context, op, query string, args ...any) ([]domain.CommunityNote, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err, op)
	}
	defer rows.Close()

	var notes []domain.CommunityNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, eris.Wrap(err, op)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, op)
	}
	return notes, nil
}

func scanNote(row pgx.Row) (*domain.CommunityNote, error) {
	var n domain.CommunityNote
	err := row.Scan(
		&n.ID, &n.AuthorID, &n.Content, &n.NoteType, &n.PostID, &n.FactClaimID, &n.TargetAuthorID,
		&n.HelpfulScore, &n.NotHelpfulScore, &n.VoteCount, &n.DisplayThreshold, &n.IsDisplayed, &n.Status,
		&n.IsAppealed, &n.AppealReason, &n.AppealResolved, &n.AppealOutcome, &n.ConfidenceImpact, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

type VoteStore struct {
	pool Pool
}

func NewVoteStore(pool Pool) *VoteStore {
	return &VoteStore{pool: pool}
}

func (s *VoteStore) Replace(ctx context.Context, v *domain.CommunityNoteVote) error {
	db := conn(ctx, s.pool)
	if _, err := db.Exec(ctx,
		`DELETE FROM community_note_votes WHERE note_id = $1 AND voter_id = $2`,
		v.NoteID, v.VoterID,
	); err != nil {
		return translate(err, "votes: delete previous")
	}

	err := db.QueryRow(ctx,
		`INSERT INTO community_note_votes (note_id, voter_id, is_helpful, voter_reputation)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		v.NoteID, v.VoterID, v.IsHelpful, v.VoterReputation,
	).Scan(&v.ID, &v.CreatedAt)
	return translate(err, "votes: insert")
}

func (s *VoteStore) ListByNote(ctx context.Context, noteID uuid.UUID) ([]domain.CommunityNoteVote, error) {
	rows, err := conn(ctx, s.pool).Query(ctx,
		`SELECT id, note_id, voter_id, is_helpful, voter_reputation, created_at
		 FROM community_note_votes
		 WHERE note_id = $1
		 ORDER BY voter_id ASC`,
		noteID,
	)
	if err != nil {
		return nil, translate(err, "votes: by note")
	}
	defer rows.Close()

	var votes []domain.CommunityNoteVote
	for rows.Next() {
		var v domain.CommunityNoteVote
		if err := rows.Scan(&v.ID, &v.NoteID, &v.VoterID, &v.IsHelpful, &v.VoterReputation, &v.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "votes: scan")
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "votes: by note")
	}
	return votes, nil
}
