package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sidukcapil/apiserver/internal/services"
	"github.com/sidukcapil/apiserver/internal/store"
	"github.com/sidukcapil/apiserver/types"
)

const (
	maxUploadMemory = 8 << 20

	formFieldFile           = "file"
	formFieldPopulationID   = "population_id"
	formFieldDocumentType   = "document_type"
	formFieldDocumentNumber = "document_number"
)

// DocumentHandler provides HTTP handlers for document files.
type DocumentHandler struct {
	documentService *services.DocumentService
	userService     *services.UserService
}

func NewDocumentHandler(documentService *services.DocumentService, userService *services.UserService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		userService:     userService,
	}
}

// DocumentRouter registers document routes on the given router. The caller
// is expected to gate the whole subtree behind staff roles.
func DocumentRouter(r chi.Router, handler *DocumentHandler) {
	r.Post("/", handler.Upload)
	r.Get("/population/{populationID}", handler.ListByPopulation)
	r.Route("/{documentID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Get("/download", handler.Download)
		r.Post("/validate", handler.Validate)
		r.Delete("/", handler.Delete)
	})
}

// Upload accepts a multipart form with the file and its metadata fields.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	populationID, err := strconv.Atoi(strings.TrimSpace(r.FormValue(formFieldPopulationID)))
	if err != nil || populationID < 1 {
		writeError(w, http.StatusBadRequest, "invalid population_id")
		return
	}

	docType := types.DocumentType(strings.TrimSpace(r.FormValue(formFieldDocumentType)))
	if !docType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid document_type")
		return
	}

	var docNumber *string
	if raw := strings.TrimSpace(r.FormValue(formFieldDocumentNumber)); raw != "" {
		docNumber = &raw
	}

	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	created, err := h.documentService.Upload(r.Context(), services.UploadDocumentInput{
		PopulationID:   populationID,
		DocumentType:   docType,
		DocumentNumber: docNumber,
		FileName:       header.Filename,
		FileSize:       header.Size,
		MimeType:       mimeType,
		Body:           file,
	}, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidFileType):
			writeError(w, http.StatusBadRequest, "file type not allowed")
		case errors.Is(err, services.ErrFileTooLarge):
			writeError(w, http.StatusBadRequest, "file exceeds the 5 MiB limit")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "population record not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to upload document")
		}
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *DocumentHandler) ListByPopulation(w http.ResponseWriter, r *http.Request) {
	populationID, err := parseIDParam(chi.URLParam(r, "populationID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid population id")
		return
	}

	documents, err := h.documentService.ListByPopulation(r.Context(), populationID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, documents)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.documentService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// Download streams the file bytes with the stored name and mime type.
func (h *DocumentHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, body, err := h.documentService.Download(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, services.ErrFileMissing):
			writeError(w, http.StatusNotFound, "file missing from storage")
		default:
			writeError(w, http.StatusInternalServerError, "failed to download document")
		}
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", strconv.FormatInt(doc.FileSize, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

type ValidateDocumentRequest struct {
	IsValidated bool `json:"is_validated"`
}

// Validate records a staff attestation on the document.
func (h *DocumentHandler) Validate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	var req ValidateDocumentRequest
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

	updated, err := h.documentService.Validate(r.Context(), id, req.IsValidated, actor)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "document not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "insufficient role")
		default:
			writeError(w, http.StatusInternalServerError, "failed to validate document")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	actorID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.documentService.Delete(r.Context(), id, actorID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete document")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
