package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/shelfimport/internal/importfile"
	"github.com/lehigh-university-libraries/shelfimport/internal/models"
	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
	"github.com/lehigh-university-libraries/shelfimport/internal/report"
)

type previewRequest struct {
	Records []models.ImportRecord `json:"records" validate:"required"`
}

type confirmRequest struct {
	Classifications []reconcile.Classification `json:"classifications" validate:"required"`
	Decisions       map[string]string          `json:"decisions" validate:"omitempty,dive,keys,required,endkeys,oneof=accept reject"`
}

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request previewRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	h.preview(w, r, request.Records)
}

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	format, err := importfile.FormatFromPath(header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Limit file size to 10MB
	data, err := io.ReadAll(io.LimitReader(file, maxBodyBytes))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(data) >= maxBodyBytes {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	records, err := importfile.ParseBytes(data, format)
	if err != nil {
		h.writeError(w, "Failed to parse import file: "+err.Error(), http.StatusBadRequest)
		return
	}

	slog.Info("Import file uploaded", "filename", header.Filename, "format", format, "records", len(records))
	h.preview(w, r, records)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request, records []models.ImportRecord) {
	classifications, err := h.engine.Preview(r.Context(), records)
	if err != nil {
		h.writeError(w, "Failed to preview import: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, report.NewPreview(classifications))
}

func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request confirmRequest
	if !h.decodeJSON(w, r, &request) {
		return
	}

	decisions := make(reconcile.Decisions, len(request.Decisions))
	for bookID, value := range request.Decisions {
		decisions[bookID] = reconcile.Decision(value)
	}

	result, err := h.engine.Confirm(r.Context(), request.Classifications, decisions)
	switch {
	case err == nil:
		h.writeJSON(w, result)
	case result != nil:
		// Some records failed; the result explains each one
		slog.Warn("Import confirmed with failures", "failed", result.Failed, "err", err)
		h.writeJSONStatus(w, http.StatusMultiStatus, result)
	case errors.Is(err, reconcile.ErrMalformedBatch):
		h.writeError(w, err.Error(), http.StatusBadRequest)
	default:
		h.writeError(w, "Failed to confirm import: "+err.Error(), http.StatusBadGateway)
	}
}
