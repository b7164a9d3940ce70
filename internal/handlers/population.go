package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sidukcapil/apiserver/internal/services"
	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

// PopulationHandler provides HTTP handlers for the citizen registry.
type PopulationHandler struct {
	populationService *services.PopulationService
}

func NewPopulationHandler(populationService *services.PopulationService) *PopulationHandler {
	return &PopulationHandler{populationService: populationService}
}

// PopulationRouter registers population routes on the given router. The
// caller is expected to gate the whole subtree behind staff roles.
func PopulationRouter(r chi.Router, handler *PopulationHandler) {
	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Get("/nik/{nik}", handler.GetByNIK)
	r.Route("/{populationID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Put("/", handler.Update)
		r.Delete("/", handler.Delete)
	})
}

func (h *PopulationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query := types.PopulationQuery{
		Page:      page,
		Limit:     limit,
		Search:    strings.TrimSpace(r.URL.Query().Get("search")),
		Kelurahan: strings.TrimSpace(r.URL.Query().Get("kelurahan")),
		Kecamatan: strings.TrimSpace(r.URL.Query().Get("kecamatan")),
		Kabupaten: strings.TrimSpace(r.URL.Query().Get("kabupaten")),
	}

	items, total, err := h.populationService.List(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list population records")
		return
	}

	writeJSON(w, http.StatusOK, ListResponse{Data: items, Page: page, Limit: limit, Total: total})
}

func (h *PopulationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreatePopulationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validateCreatePopulation(input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	created, err := h.populationService.Create(r.Context(), input, actorID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateKey):
			writeError(w, http.StatusConflict, "nik already registered")
		case errors.Is(err, services.ErrInvalidDate):
			writeError(w, http.StatusBadRequest, "tanggal_lahir must be YYYY-MM-DD")
		default:
			writeError(w, http.StatusInternalServerError, "failed to create population record")
		}
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func validateCreatePopulation(input services.CreatePopulationInput) error {
	if strings.TrimSpace(input.NIK) == "" {
		return errors.New("nik is required")
	}
	if len(input.NIK) != 16 {
		return errors.New("nik must be 16 digits")
	}
	if strings.TrimSpace(input.NamaLengkap) == "" {
		return errors.New("nama_lengkap is required")
	}
	if !input.JenisKelamin.Valid() {
		return errors.New("invalid jenis_kelamin")
	}
	if !input.Agama.Valid() {
		return errors.New("invalid agama")
	}
	if !input.StatusPerkawinan.Valid() {
		return errors.New("invalid status_perkawinan")
	}
	return nil
}

func (h *PopulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "populationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid population id")
		return
	}

	record, err := h.populationService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "population record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch population record")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *PopulationHandler) GetByNIK(w http.ResponseWriter, r *http.Request) {
	nik := strings.TrimSpace(chi.URLParam(r, "nik"))
	if nik == "" {
		writeError(w, http.StatusBadRequest, "invalid nik")
		return
	}

	record, err := h.populationService.FindByNIK(r.Context(), nik)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "population record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch population record")
		return
	}

	writeJSON(w, http.StatusOK, record)
}

func (h *PopulationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "populationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid population id")
		return
	}

	var input services.UpdatePopulationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if input.JenisKelamin != nil && !input.JenisKelamin.Valid() {
		writeError(w, http.StatusBadRequest, "invalid jenis_kelamin")
		return
	}
	if input.Agama != nil && !input.Agama.Valid() {
		writeError(w, http.StatusBadRequest, "invalid agama")
		return
	}
	if input.StatusPerkawinan != nil && !input.StatusPerkawinan.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status_perkawinan")
		return
	}

	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	updated, err := h.populationService.Update(r.Context(), id, input, actorID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "population record not found")
		case errors.Is(err, services.ErrInvalidDate):
			writeError(w, http.StatusBadRequest, "tanggal_lahir must be YYYY-MM-DD")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update population record")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PopulationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "populationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid population id")
		return
	}

	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.populationService.Delete(r.Context(), id, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "population record not found")
			return
		}
		if errors.Is(err, services.ErrHasDependents) {
			writeError(w, http.StatusConflict, "record has dependent documents or applications")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete population record")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
