package handlers

import (
	"errors"
	"net/http"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
	"github.com/lehigh-university-libraries/shelfimport/internal/storage"
)

type createBookRequest struct {
	Title        string       `json:"title" validate:"required"`
	Author       string       `json:"author"`
	ReadingLevel models.Level `json:"reading_level"`
	ISBN         string       `json:"isbn"`
}

func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		books, err := h.store.ListAll(r.Context())
		if err != nil {
			h.writeError(w, "Failed to list books: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, books)
	case "POST":
		var request createBookRequest
		if !h.decodeJSON(w, r, &request) {
			return
		}
		book, err := h.store.Create(r.Context(), models.NewBookFromRecord(models.ImportRecord{
			Title:        request.Title,
			Author:       request.Author,
			ReadingLevel: request.ReadingLevel,
			ISBN:         request.ISBN,
		}))
		if errors.Is(err, storage.ErrEmptyTitle) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			h.writeError(w, "Failed to create book: "+err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSONStatus(w, http.StatusCreated, book)
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
