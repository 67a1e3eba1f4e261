package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/contexta-sources/internal/core"
	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/models"
	"github.com/markdave123-py/contexta-sources/internal/services"
)

type ScanHandler struct {
	scans *services.ScanService
}

func NewScanHandler(scans *services.ScanService) *ScanHandler {
	return &ScanHandler{scans: scans}
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
}

// StartDocuments opens a document scan over a storage context path.
func (h *ScanHandler) StartDocuments(w http.ResponseWriter, r *http.Request) {
	var cfg models.StorageConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sess, err := h.scans.StartDocumentScan(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID, Kind: sess.Kind})
}

// StartSources opens a source inventory scan over a vector store.
func (h *ScanHandler) StartSources(w http.ResponseWriter, r *http.Request) {
	var cfg models.StoreConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	sess, err := h.scans.StartSourceScan(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{SessionID: sess.ID, Kind: sess.Kind})
}

func (h *ScanHandler) NextPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.scans.NextPage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *ScanHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.scans.Inventory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *ScanHandler) End(w http.ResponseWriter, r *http.Request) {
	if err := h.scans.EndScan(chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScanHandler) SingleDocument(w http.ResponseWriter, r *http.Request) {
	var cfg models.StorageConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	doc, err := h.scans.SingleDocument(r.Context(), cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func statusFor(err error) int {
	var ve *services.ValidationError
	var be *core.BackendError
	switch {
	case errors.As(err, &ve),
		errors.Is(err, core.ErrUnsupportedFileType),
		errors.Is(err, core.ErrUnsupportedBackend):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrClosed):
		return http.StatusGone
	case core.IsBlankDocument(err):
		return http.StatusUnprocessableEntity
	case errors.As(err, &be):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("scan request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
