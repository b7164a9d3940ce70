package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sidukcapil/apiserver/internal/services"
)

// AuditHandler serves the read side of the audit trail.
type AuditHandler struct {
	auditService *services.AuditService
}

func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// AuditRouter registers audit routes on the given router. The caller is
// expected to gate the subtree behind ADMIN/SUPER_ADMIN.
func AuditRouter(r chi.Router, handler *AuditHandler) {
	r.Get("/", handler.List)
	r.Get("/users/{userID}", handler.ListByUser)
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, total, err := h.auditService.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: entries, Page: page, Limit: limit, Total: total})
}

func (h *AuditHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseIDParam(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, total, err := h.auditService.ListByUser(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit entries")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: entries, Page: page, Limit: limit, Total: total})
}
