package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/epistemic/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AuditHandler struct {
	audit  AuditLog
	logger *zap.Logger
}

func NewAuditHandler(audit AuditLog, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, logger: logger}
}

// History serves GET /v1/audit/{type}/{id}?limit=n.
func (h *AuditHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "entity")
	if !ok {
		return
	}
	limit, _, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	entries, err := h.audit.History(r.Context(), chi.URLParam(r, "type"), id, limit)
	if err != nil {
		writeServiceError(w, h.logger, "audit history", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilEntries(entries))
}

// ByInteraction serves GET /v1/audit?interaction_id=x.
func (h *AuditHandler) ByInteraction(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.ByInteraction(r.Context(), r.URL.Query().Get("interaction_id"))
	if err != nil {
		writeServiceError(w, h.logger, "audit by interaction", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilEntries(entries))
}

func nonNilEntries(entries []domain.ConfidenceAuditEntry) []domain.ConfidenceAuditEntry {
	if entries == nil {
		return []domain.ConfidenceAuditEntry{}
	}
	return entries
}
