package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/chat"
)

type voteHandler struct {
	chats  ChatStore
	logger *slog.Logger
}

// list returns all votes in a chat.
func (h *voteHandler) list(w http.ResponseWriter, r *http.Request) {
	chatID, err := uuid.Parse(r.URL.Query().Get("chatId"))
	if err != nil {
		http.Error(w, "chatId is required", http.StatusBadRequest)
		return
	}

	votes, err := h.chats.VotesByChat(r.Context(), chatID)
	if err != nil {
		h.logger.Error("listing votes", "chat_id", chatID, "error", err)
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}
	if votes == nil {
		votes = []chat.Vote{}
	}
	writeJSON(w, http.StatusOK, votes)
}

type voteRequest struct {
	ChatID    uuid.UUID `json:"chatId"`
	MessageID uuid.UUID `json:"messageId"`
	Type      string    `json:"type"`
}

// upsert records a vote on a message. Repeat votes overwrite.
func (h *voteHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChatID == uuid.Nil || req.MessageID == uuid.Nil {
		http.Error(w, "chatId and messageId are required", http.StatusBadRequest)
		return
	}
	if req.Type != "up" && req.Type != "down" {
		http.Error(w, `type must be "up" or "down"`, http.StatusBadRequest)
		return
	}

	if err := h.chats.UpsertVote(r.Context(), req.ChatID, req.MessageID, req.Type == "up"); err != nil {
		h.logger.Error("recording vote", "chat_id", req.ChatID, "message_id", req.MessageID, "error", err)
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Message voted"))
}
