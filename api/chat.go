package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagefy-edu/sagefy/internal/assistant"
	"github.com/sagefy-edu/sagefy/internal/prompt"
)

// Asker is what the chat endpoint needs from the assistant.
type Asker interface {
	Ask(ctx context.Context, req assistant.Request) (assistant.Response, error)
}

// ChatHandler serves POST /api/chat.
type ChatHandler struct {
	auth   Authenticator
	asker  Asker
	logger *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(auth Authenticator, asker Asker, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{auth: auth, asker: asker, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Question string        `json:"question"`
	History  []prompt.Turn `json:"history,omitempty"`
}

// ChatResponse is the POST /api/chat success body.
type ChatResponse struct {
	RequestID string        `json:"request_id"`
	Response  string        `json:"response"`
	SmallTalk bool          `json:"smalltalk"`
	History   []prompt.Turn `json:"history"`
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	caller, err := h.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid identity")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	resp, err := h.asker.Ask(r.Context(), assistant.Request{
		Question: req.Question,
		History:  req.History,
		Caller:   caller,
	})
	if err != nil {
		if errors.Is(err, assistant.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		h.logger.Error("chat request failed", "error", err, "user", caller.Email)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to answer the question")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		RequestID: resp.RequestID,
		Response:  resp.Answer,
		SmallTalk: resp.SmallTalk,
		History:   resp.History,
	})
}
