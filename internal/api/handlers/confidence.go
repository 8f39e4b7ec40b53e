package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/Harshitk-cp/epistemic/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mutateFunc func(ctx context.Context, id uuid.UUID, interactionID string) (*service.MutationResult, error)

func setConfidence(w http.ResponseWriter, r *http.Request, engine ConfidenceEngine, logger *zap.Logger, kind domain.EntityType) {
	id, ok := pathID(w, r, string(kind))
	if !ok {
		return
	}
	var req setConfidenceRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := engine.UpdateConfidence(r.Context(), kind, id, *req.Value, req.Reason, interactionID(r, req.InteractionID))
	if err != nil {
		writeServiceError(w, logger, "update confidence", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func listLimit(r *http.Request) (int, error) {
	if top, set, err := queryInt(r, "top"); set {
		if err == nil && top == 0 {
			err = errors.New("top must be positive")
		}
		return top, err
	}
	limit, set, err := queryInt(r, "limit")
	if err != nil {
		return 0, err
	}
	if !set || limit == 0 {
		return defaultListLimit, nil
	}
	return limit, nil
}

func confidenceFilter(r *http.Request, limit int) (domain.ConfidenceFilter, error) {
	below, err := queryFloat(r, "below")
	if err != nil {
		return domain.ConfidenceFilter{}, err
	}
	above, err := queryFloat(r, "above")
	if err != nil {
		return domain.ConfidenceFilter{}, err
	}
	return domain.ConfidenceFilter{Below: below, Above: above, Limit: limit}, nil
}
