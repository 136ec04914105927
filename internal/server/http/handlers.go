// Package http exposes the verification protocol as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akulikov/driveguard/internal/common"
	"github.com/akulikov/driveguard/internal/logging"
	"github.com/akulikov/driveguard/internal/server/blob"
	"github.com/akulikov/driveguard/internal/server/services"
)

// maxMultipartMemory bounds the in-memory part of multipart parsing; the
// remainder spills to temp files.
const maxMultipartMemory = 10 << 20

type Handlers struct {
	verifier *services.Verifier
	logger   logging.Logger
}

func NewHandlers(verifier *services.Verifier, logger logging.Logger) *Handlers {
	return &Handlers{verifier: verifier, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service-layer failures to HTTP statuses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var te *blob.TransportError
	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	case errors.Is(err, common.ErrorEmptyName), errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorFileTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.As(err, &te):
		h.logger.Error(r.Context(), "blob transport failure", "op", te.Op, "error", err)
		writeError(w, http.StatusBadGateway, "remote storage unavailable")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// UploadFile handles POST /api/files. The file arrives as the multipart
// field "file"; an optional "name" field overrides the client filename.
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a \"file\" field")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing \"file\" field")
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	rec, err := h.verifier.Upload(r.Context(), name, file)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// ListFiles handles GET /api/files.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	list, err := h.verifier.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetFile handles GET /api/files/{name}.
func (h *Handlers) GetFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rec, err := h.verifier.Get(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// VerifyFile handles POST /api/files/{name}/verify.
func (h *Handlers) VerifyFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	res, err := h.verifier.Verify(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// VerifyAll handles POST /api/verify-all.
func (h *Handlers) VerifyAll(w http.ResponseWriter, r *http.Request) {
	res, err := h.verifier.VerifyAll(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteFile handles DELETE /api/files/{name}.
func (h *Handlers) DeleteFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.verifier.Delete(r.Context(), name); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchFiles handles GET /api/search?q=.
func (h *Handlers) SearchFiles(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter \"q\"")
		return
	}

	list, err := h.verifier.Search(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetStats handles GET /api/stats.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.verifier.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Healthz handles GET /healthz.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
