package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
	"github.com/lehigh-university-libraries/shelfimport/internal/storage"
)

// maxBodyBytes bounds JSON bodies and uploads.
const maxBodyBytes = 10 * 1024 * 1024

var validate = validator.New()

type Handler struct {
	store  storage.Store
	engine *reconcile.Engine
}

func New(store storage.Store, engine *reconcile.Engine) *Handler {
	return &Handler{
		store:  store,
		engine: engine,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/books", h.HandleBooks)
	mux.HandleFunc("/api/imports/preview", h.HandlePreview)
	mux.HandleFunc("/api/imports/upload", h.HandleUpload)
	mux.HandleFunc("/api/imports/confirm", h.HandleConfirm)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// decodeJSON decodes and validates a request body into v.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(v); err != nil {
		h.writeError(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
