package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sidukcapil/apiserver/internal/services"
)

// DashboardHandler serves the read-only admin rollups.
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// DashboardRouter registers dashboard routes on the given router. The
// caller is expected to gate the subtree behind staff roles.
func DashboardRouter(r chi.Router, handler *DashboardHandler) {
	r.Get("/stats", handler.Stats)
	r.Get("/applications/by-type", handler.ApplicationsByType)
	r.Get("/population/by-region", handler.PopulationByRegion)
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dashboard stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *DashboardHandler) ApplicationsByType(w http.ResponseWriter, r *http.Request) {
	counts, err := h.dashboardService.ApplicationsByType(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load application counts")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *DashboardHandler) PopulationByRegion(w http.ResponseWriter, r *http.Request) {
	counts, err := h.dashboardService.PopulationByRegion(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load population counts")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
