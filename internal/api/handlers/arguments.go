package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/epistemic/internal/api/middleware"
	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultListLimit = 10

type ArgumentHandler struct {
	ledger Ledger
	engine ConfidenceEngine
	logger *zap.Logger
}

func NewArgumentHandler(ledger Ledger, engine ConfidenceEngine, logger *zap.Logger) *ArgumentHandler {
	return &ArgumentHandler{ledger: ledger, engine: engine, logger: logger}
}

type createArgumentRequest struct {
	Content           string    `json:"content" validate:"required,max=20000"`
	Summary           *string   `json:"summary" validate:"omitempty,max=2000"`
	Embedding         []float32 `json:"embedding" validate:"omitempty,max=4096"`
	InitialConfidence *float64  `json:"initial_confidence"`
	LogicalValidity   *float64  `json:"logical_validity"`
	EvidenceQuality   *float64  `json:"evidence_quality"`
	Coherence         *float64  `json:"coherence"`
	EntropyScore      *float64  `json:"entropy_score"`
	SourcePostID      string    `json:"source_post_id" validate:"required,max=255"`
	SourceUserID      string    `json:"source_user_id" validate:"max=255"`
}

type mutationRequest struct {
	InteractionID string `json:"interaction_id" validate:"max=255"`
}

type setConfidenceRequest struct {
	Value         *float64 `json:"value" validate:"required"`
	Reason        string   `json:"reason" validate:"max=255"`
	InteractionID string   `json:"interaction_id" validate:"max=255"`
}

type linkFactRequest struct {
	FactClaimID uuid.UUID `json:"fact_claim_id" validate:"required"`
	Strength    *float64  `json:"dependency_strength"`
}

type similarArgumentsRequest struct {
	ArgumentID    *uuid.UUID `json:"argument_id"`
	Embedding     []float32  `json:"embedding" validate:"required_without=ArgumentID,max=4096"`
	Limit         int        `json:"limit" validate:"gte=0,lte=100"`
	MinSimilarity float64    `json:"min_similarity"`
}

type linkFactResponse struct {
	Dependency *domain.ArgumentFactDependency `json:"dependency"`
	Argument   *domain.Argument               `json:"argument"`
}

func (h *ArgumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createArgumentRequest
	if !decode(w, r, &req) {
		return
	}
	if req.SourceUserID == "" {
		req.SourceUserID = middleware.PrincipalFromContext(r.Context()).UserID
	}

	arg, err := h.ledger.CreateArgument(r.Context(), service.CreateArgumentInput{
		Content:           req.Content,
		Summary:           req.Summary,
		Embedding:         req.Embedding,
		InitialConfidence: req.InitialConfidence,
		LogicalValidity:   req.LogicalValidity,
		EvidenceQuality:   req.EvidenceQuality,
		Coherence:         req.Coherence,
		EntropyScore:      req.EntropyScore,
		SourcePostID:      req.SourcePostID,
		SourceUserID:      req.SourceUserID,
	})
	if err != nil {
		writeServiceError(w, h.logger, "create argument", err)
		return
	}
	writeJSON(w, http.StatusCreated, arg)
}

func (h *ArgumentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "argument")
	if !ok {
		return
	}
	arg, err := h.ledger.GetArgument(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get argument", err)
		return
	}
	writeJSON(w, http.StatusOK, arg)
}

// List selects by cluster_id, then post_id, then a below/above confidence
// band, and otherwise returns the top arguments.
func (h *ArgumentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := listLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	var args []domain.Argument
	switch {
	case q.Get("cluster_id") != "":
		clusterID, perr := uuid.Parse(q.Get("cluster_id"))
		if perr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid cluster_id")
			return
		}
		args, err = h.ledger.ArgumentsByCluster(r.Context(), clusterID)
	case q.Get("post_id") != "":
		args, err = h.ledger.ArgumentsByPost(r.Context(), q.Get("post_id"))
	case q.Has("below") || q.Has("above"):
		filter, ferr := confidenceFilter(r, limit)
		if ferr != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequest, ferr.Error())
			return
		}
		args, err = h.ledger.ArgumentsByConfidence(r.Context(), filter)
	default:
		args, err = h.ledger.TopArguments(r.Context(), limit)
	}
	if err != nil {
		writeServiceError(w, h.logger, "list arguments", err)
		return
	}
	if args == nil {
		args = []domain.Argument{}
	}
	writeJSON(w, http.StatusOK, args)
}

func (h *ArgumentHandler) Support(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "support argument", h.engine.Support)
}

func (h *ArgumentHandler) Refute(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "refute argument", h.engine.Refute)
}

func (h *ArgumentHandler) mutate(w http.ResponseWriter, r *http.Request, op string, fn mutateFunc) {
	id, ok := pathID(w, r, "argument")
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

func (h *ArgumentHandler) SetConfidence(w http.ResponseWriter, r *http.Request) {
	setConfidence(w, r, h.engine, h.logger, domain.EntityArgument)
}

func (h *ArgumentHandler) LinkFact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "argument")
	if !ok {
		return
	}
	var req linkFactRequest
	if !decode(w, r, &req) {
		return
	}
	strength := 1.0
	if req.Strength != nil {
		strength = *req.Strength
	}

	dep, arg, err := h.engine.LinkToFact(r.Context(), id, req.FactClaimID, strength)
	if err != nil {
		writeServiceError(w, h.logger, "link argument to fact", err)
		return
	}
	writeJSON(w, http.StatusCreated, linkFactResponse{Dependency: dep, Argument: arg})
}

// Similar searches by a stored argument's embedding when argument_id is
// given, otherwise by the supplied vector.
func (h *ArgumentHandler) Similar(w http.ResponseWriter, r *http.Request) {
	var req similarArgumentsRequest
	if !decode(w, r, &req) {
		return
	}
	opts := service.SimilarityOptions{Limit: req.Limit, MinSimilarity: req.MinSimilarity}

	var (
		matches []domain.SimilarityMatch
		err     error
	)
	if req.ArgumentID != nil {
		matches, err = h.ledger.NeighborsOfArgument(r.Context(), *req.ArgumentID, opts)
	} else {
		matches, err = h.ledger.FindSimilarArguments(r.Context(), req.Embedding, opts)
	}
	if err != nil {
		writeServiceError(w, h.logger, "similar arguments", err)
		return
	}
	if matches == nil {
		matches = []domain.SimilarityMatch{}
	}
	writeJSON(w, http.StatusOK, matches)
}
