package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/courtsideai/courtside/internal/chat"
	"github.com/courtsideai/courtside/internal/identity"
	"github.com/courtsideai/courtside/internal/orchestrator"
	"github.com/courtsideai/courtside/internal/stream"
)

// maxChatBodyBytes bounds the inbound turn payload.
const maxChatBodyBytes = 1 << 20

// NewTurns adapts an orchestrator to the Turns interface.
func NewTurns(o *orchestrator.Orchestrator) Turns {
	return turnStarter{o: o}
}

type turnStarter struct {
	o *orchestrator.Orchestrator
}

func (s turnStarter) NewTurn(ctx context.Context, req orchestrator.TurnRequest) (TurnRunner, error) {
	t, err := s.o.NewTurn(ctx, req)
	if err != nil {
		return nil, err
	}
	return t, nil
}

type chatHandler struct {
	turns  Turns
	chats  ChatStore
	logger *slog.Logger
}

// send runs one chat turn as an SSE stream. Validation failures answer
// with plain status codes; once streaming starts, failures go in-band.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	var req orchestrator.TurnRequest
	body := http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	turn, err := h.turns.NewTurn(r.Context(), req)
	switch {
	case errors.Is(err, orchestrator.ErrUnknownModel):
		http.Error(w, "Model not found", http.StatusNotFound)
		return
	case errors.Is(err, orchestrator.ErrNoUserMessage):
		http.Error(w, "No user message found", http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	writer, err := stream.NewWriter(w)
	if err != nil {
		h.logger.Error("creating stream writer", "error", err)
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	if err := turn.Run(r.Context(), writer); err != nil {
		h.logger.Warn("chat turn failed", "chat_id", req.ChatID, "error", err)
		_ = writer.Error("turn_failed", err.Error())
	}
	_ = writer.Done()
}

// delete removes a chat owned by the requesting identity.
func (h *chatHandler) delete(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	owner, ok := identity.Owner(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	c, err := h.chats.ChatByID(r.Context(), id)
	if errors.Is(err, chat.ErrNotFound) {
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}
	if err != nil {
		h.logger.Error("loading chat for delete", "chat_id", id, "error", err)
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}
	if c.OwnerID != owner {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.chats.DeleteChat(r.Context(), id); err != nil {
		h.logger.Error("deleting chat", "chat_id", id, "error", err)
		http.Error(w, "An error occurred while processing your request", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Chat deleted"))
}
