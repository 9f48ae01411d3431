package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/document"
)

type documentHandler struct {
	documents DocumentStore
	logger    *slog.Logger
}

// versions returns every stored version of a document, oldest first.
func (h *documentHandler) versions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	versions, err := h.documents.VersionsByID(r.Context(), id)
	if err != nil {
		h.logger.Error("listing document versions", "document_id", id, "error", err)
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}
	if len(versions) == 0 {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

// suggestions returns the suggestions recorded for a document.
func (h *documentHandler) suggestions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("documentId"))
	if err != nil {
		http.Error(w, "documentId is required", http.StatusBadRequest)
		return
	}

	suggestions, err := h.documents.SuggestionsByDocument(r.Context(), id)
	if err != nil {
		h.logger.Error("listing suggestions", "document_id", id, "error", err)
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}
	if suggestions == nil {
		suggestions = []document.Suggestion{}
	}
	writeJSON(w, http.StatusOK, suggestions)
}
