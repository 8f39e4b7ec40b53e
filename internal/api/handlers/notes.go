package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/epistemic/internal/api/middleware"
	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type NoteHandler struct {
	notes  Notes
	logger *zap.Logger
}

func NewNoteHandler(notes Notes, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

type createNoteRequest struct {
	Content          string     `json:"content" validate:"required,max=5000"`
	NoteType         string     `json:"note_type" validate:"required"`
	PostID           *string    `json:"post_id" validate:"omitempty,max=255"`
	FactClaimID      *uuid.UUID `json:"fact_claim_id"`
	DisplayThreshold *float64   `json:"display_threshold"`
	ConfidenceImpact *float64   `json:"confidence_impact"`
}

type voteRequest struct {
	IsHelpful *bool `json:"is_helpful" validate:"required"`
}

type appealRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=2000"`
}

type resolveRequest struct {
	Outcome string `json:"outcome" validate:"required"`
}

type effectivenessResponse struct {
	NoteID        uuid.UUID `json:"note_id"`
	Effectiveness float64   `json:"effectiveness"`
}

// principal returns the caller's user id, writing a 401 when the gateway
// did not supply one.
func principal(w http.ResponseWriter, r *http.Request) (middleware.Principal, bool) {
	p := middleware.PrincipalFromContext(r.Context())
	if p.UserID == "" {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing "+middleware.UserIDHeader+" header")
		return p, false
	}
	return p, true
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req createNoteRequest
	if !decode(w, r, &req) {
		return
	}

	note, err := h.notes.Create(r.Context(), service.CreateNoteInput{
		AuthorID:         p.UserID,
		Content:          req.Content,
		NoteType:         req.NoteType,
		PostID:           req.PostID,
		FactClaimID:      req.FactClaimID,
		DisplayThreshold: req.DisplayThreshold,
		ConfidenceImpact: req.ConfidenceImpact,
		IsAdmin:          p.IsAdmin,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	note, err := h.notes.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// List requires one of post_id or fact_id.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		notes []domain.CommunityNote
		err   error
	)
	switch {
	case q.Get("post_id") != "":
		notes, err = h.notes.ByPost(r.Context(), q.Get("post_id"))
	case q.Get("fact_id") != "":
		factID, perr := uuid.Parse(q.Get("fact_id"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid fact_id")
			return
		}
		notes, err = h.notes.ByFact(r.Context(), factID)
	default:
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "post_id or fact_id is required")
		return
	}
	if err != nil {
		writeServiceError(w, h.logger, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilNotes(notes))
}

// PendingAppeals is the moderation queue and is admin-only.
func (h *NoteHandler) PendingAppeals(w http.ResponseWriter, r *http.Request) {
	p := middleware.PrincipalFromContext(r.Context())
	if !p.IsAdmin {
		writeError(w, http.StatusForbidden, codeForbidden, service.ErrNotAuthorized.Error())
		return
	}
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}
	notes, err := h.notes.PendingAppeals(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, "list pending appeals", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilNotes(notes))
}

func (h *NoteHandler) Vote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req voteRequest
	if !decode(w, r, &req) {
		return
	}

	note, err := h.notes.Vote(r.Context(), id, p.UserID, *req.IsHelpful)
	if err != nil {
		writeServiceError(w, h.logger, "vote on note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Appeal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req appealRequest
	if !decodeOptional(w, r, &req) {
		return
	}

	note, err := h.notes.Appeal(r.Context(), id, p.UserID, req.Reason)
	if err != nil {
		writeServiceError(w, h.logger, "appeal note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	var req resolveRequest
	if !decode(w, r, &req) {
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	note, err := h.notes.ResolveAppeal(r.Context(), id, p.IsAdmin, req.Outcome)
	if err != nil {
		writeServiceError(w, h.logger, "resolve appeal", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Effectiveness(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "note")
	if !ok {
		return
	}
	score, err := h.notes.Effectiveness(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "note effectiveness", err)
		return
	}
	writeJSON(w, http.StatusOK, effectivenessResponse{NoteID: id, Effectiveness: score})
}

func nonNilNotes(notes []domain.CommunityNote) []domain.CommunityNote {
	if notes == nil {
		return []domain.CommunityNote{}
	}
	return notes
}
