package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/epistemic/internal/api/middleware"
	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FactHandler struct {
	ledger Ledger
	engine ConfidenceEngine
	logger *zap.Logger
}

func NewFactHandler(ledger Ledger, engine ConfidenceEngine, logger *zap.Logger) *FactHandler {
	return &FactHandler{ledger: ledger, engine: engine, logger: logger}
}

type createFactRequest struct {
	Claim             string    `json:"claim" validate:"required,max=5000"`
	Embedding         []float32 `json:"embedding" validate:"omitempty,max=4096"`
	InitialConfidence *float64  `json:"initial_confidence"`
	SourcePostID      *string   `json:"source_post_id" validate:"omitempty,max=255"`
	SourceUserID      *string   `json:"source_user_id" validate:"omitempty,max=255"`
}

type similarFactsRequest struct {
	Claim         string  `json:"claim" validate:"required,max=5000"`
	Limit         int     `json:"limit" validate:"gte=0,lte=100"`
	MinSimilarity float64 `json:"min_similarity"`
}

type recomputeResponse struct {
	FactClaimID uuid.UUID   `json:"fact_claim_id"`
	Recomputed  []uuid.UUID `json:"recomputed"`
}

func (h *FactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFactRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SourceUserID == nil {
		if uid := middleware.PrincipalFromContext(r.Context()).UserID; uid != "" {
			req.SourceUserID = &uid
		}
	}

	fact, err := h.ledger.CreateFact(r.Context(), service.CreateFactInput{
		Claim:             req.Claim,
		Embedding:         req.Embedding,
		InitialConfidence: req.InitialConfidence,
		SourcePostID:      req.SourcePostID,
		SourceUserID:      req.SourceUserID,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create fact claim", err)
		return
	}
	writeJSON(w, http.StatusCreated, fact)
}

func (h *FactHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fact claim")
	if !ok {
		return
	}
	fact, err := h.ledger.GetFact(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get fact claim", err)
		return
	}
	writeJSON(w, http.StatusOK, fact)
}

func (h *FactHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := listLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	var facts []domain.FactClaim
	switch {
	case q.Get("post_id") != "":
		facts, err = h.ledger.FactsByPost(r.Context(), q.Get("post_id"))
	case q.Has("below") || q.Has("above"):
		filter, ferr := confidenceFilter(r, limit)
		if ferr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, ferr.Error())
			return
		}
		facts, err = h.ledger.FactsByConfidence(r.Context(), filter)
	default:
		facts, err = h.ledger.TopFacts(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, h.logger, "list fact claims", err)
		return
	}
	if facts == nil {
		facts = []domain.FactClaim{}
	}
	writeJSON(w, http.StatusOK, facts)
}

func (h *FactHandler) Cite(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "cite fact claim", h.engine.Cite)
}

func (h *FactHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "challenge fact claim", h.engine.Challenge)
}

func (h *FactHandler) mutate(w http.ResponseWriter, r *http.Request, op string, fn mutateFunc) {
	id, ok := pathID(w, r, "fact claim")
	if !ok {
		return
	}
	var req mutationRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	res, err := fn(r.Context(), id, interactionID(r, req.InteractionID))
	if err != nil {
		writeServiceError(w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *FactHandler) SetConfidence(w http.ResponseWriter, r *http.Request) {
	setConfidence(w, r, h.engine, h.logger, domain.EntityFactClaim)
}

// Recompute refreshes the effective confidence of every dependent argument.
func (h *FactHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "fact claim")
	if !ok {
		return
	}
	ids, err := h.engine.RecomputeForFact(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "recompute dependents", err)
		return
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	writeJSON(w, http.StatusOK, recomputeResponse{FactClaimID: id, Recomputed: ids})
}

func (h *FactHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req similarFactsRequest
	if !decode(w, r, &req) {
		return
	}
	matches, err := h.ledger.FindSimilarFacts(r.Context(), req.Claim, service.SimilarityOptions{
		Limit:         req.Limit,
		MinSimilarity: req.MinSimilarity,
	})
	if err != nil {
		writeServiceError(w, h.logger, "similar fact claims", err)
		return
	}
	if matches == nil {
		matches = []domain.SimilarityMatch{}
	}
	writeJSON(w, http.StatusOK, matches)
}
