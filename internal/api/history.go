package api

import (
	"log/slog"
	"net/http"

	"github.com/courtsideai/courtside/internal/chat"
	"github.com/courtsideai/courtside/internal/identity"
)

type historyHandler struct {
	chats  ChatStore
	logger *slog.Logger
}

// list returns the requesting owner's chats, newest first.
func (h *historyHandler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := identity.Owner(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chats, err := h.chats.ChatsByOwner(r.Context(), owner)
	if err != nil {
		h.logger.Error("listing chats", "owner", owner, "error", err)
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}
	if chats == nil {
		chats = []chat.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}
