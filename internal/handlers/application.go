package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sidukcapil/apiserver/internal/services"
	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

// ApplicationHandler provides HTTP handlers for service applications.
type ApplicationHandler struct {
	applicationService *services.ApplicationService
	userService        *services.UserService
}

func NewApplicationHandler(applicationService *services.ApplicationService, userService *services.UserService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		userService:        userService,
	}
}

// ApplicationRouter registers application routes. Citizen routes need only
// authentication; the list-all and status routes are gated by staffOnly.
func ApplicationRouter(r chi.Router, handler *ApplicationHandler, staffOnly func(http.Handler) http.Handler) {
	r.Post("/", handler.Create)
	r.Get("/mine", handler.ListMine)
	r.With(staffOnly).Get("/", handler.List)
	r.Route("/{applicationID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Post("/submit", handler.Submit)
		r.Delete("/", handler.Cancel)
		r.With(staffOnly).Put("/status", handler.UpdateStatus)
	})
}

func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateApplicationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !input.ApplicationType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid application_type")
		return
	}

	applicantID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	created, err := h.applicationService.Create(r.Context(), input, applicantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "population record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create application")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := parseApplicationQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.applicationService.List(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: items, Page: query.Page, Limit: query.Limit, Total: total})
}

func (h *ApplicationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	query, err := parseApplicationQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	applicantID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	items, total, err := h.applicationService.ListMine(r.Context(), applicantID, query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: items, Page: query.Page, Limit: query.Limit, Total: total})
}

func parseApplicationQuery(r *http.Request) (types.ApplicationQuery, error) {
	page, limit, err := parsePagination(r)
	if err != nil {
		return types.ApplicationQuery{}, err
	}

	query := types.ApplicationQuery{Page: page, Limit: limit}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := types.ApplicationStatus(raw)
		if !status.Valid() {
			return types.ApplicationQuery{}, errors.New("invalid status")
		}
		query.Status = status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("application_type")); raw != "" {
		appType := types.ApplicationType(raw)
		if !appType.Valid() {
			return types.ApplicationQuery{}, errors.New("invalid application_type")
		}
		query.ApplicationType = appType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("applicant_id")); raw != "" {
		applicantID, err := strconv.Atoi(raw)
		if err != nil || applicantID < 1 {
			return types.ApplicationQuery{}, errors.New("invalid applicant_id")
		}
		query.ApplicantID = applicantID
	}

	return query, nil
}

func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	app, err := h.applicationService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "application not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch application")
		return
	}

	writeJSON(w, http.StatusOK, app)
}

// Submit hands the caller's draft application to the office.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	updated, err := h.applicationService.Submit(r.Context(), id, actorID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "application not found")
		case errors.Is(err, services.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "only draft applications can be submitted")
		default:
			writeError(w, http.StatusInternalServerError, "failed to submit application")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

type UpdateStatusRequest struct {
	Status types.ApplicationStatus `json:"status"`
	Notes  *string                 `json:"notes"`
}

// UpdateStatus moves an application through a staff-side transition.
func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	actor, err := h.userService.GetByID(r.Context(), actorID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	updated, err := h.applicationService.UpdateStatus(r.Context(), id, req.Status, actor, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "application not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "insufficient role")
		case errors.Is(err, services.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "status transition not allowed")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update application status")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// Cancel withdraws the caller's own application.
func (h *ApplicationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}

	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.applicationService.Cancel(r.Context(), id, actorID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "application not found")
		case errors.Is(err, services.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "application can no longer be cancelled")
		default:
			writeError(w, http.StatusInternalServerError, "failed to cancel application")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
