package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// CommandHandler answers a chat command with a text reply.
type CommandHandler interface {
	Handle(ctx context.Context, text string) string
}

type commandRequest struct {
	Text string `json:"text"`
}

type commandResponse struct {
	Reply string `json:"reply"`
}

// BotHandler exposes chat commands over HTTP for bot relays.
type BotHandler struct {
	h CommandHandler
}

// NewBotHandler creates a new bot handler.
func NewBotHandler(h CommandHandler) *BotHandler {
	return &BotHandler{h: h}
}

// HandleCommand handles POST /bot/command with {"text": "/top 5"}.
func (b *BotHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.Join(ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, commandResponse{Reply: b.h.Handle(r.Context(), req.Text)})
}
