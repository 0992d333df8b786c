package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/logger"
	"mindwellAPI/services"
)

type ChatHandler struct {
	chat *services.ChatService
	log  *logger.Logger
}

func NewChatHandler(chat *services.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, log: log.With("handler", "ChatHandler")}
}

// GET /api/v1/chat/sessions
func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.chat.ListSessions(ctx, userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// POST /api/v1/chat/sessions
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req chat.CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.chat.CreateSession(ctx, userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, s)
}

// GET /api/v1/chat/sessions/{id}
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	s, err := h.chat.GetSession(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

// PUT /api/v1/chat/sessions/{id}
func (h *ChatHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req chat.UpdateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, err := h.chat.UpdateSession(ctx, userID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

// DELETE /api/v1/chat/sessions/{id}
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.chat.DeleteSession(ctx, userID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/chat/sessions/{id}/send_message
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req chat.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.chat.SendMessage(ctx, userID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, msg)
}

// GET /api/v1/chat/sessions/{id}/messages
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.chat.Messages(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/chat/ai-prompts?category=therapy
func (h *ChatHandler) Prompts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := h.chat.Prompts(ctx, chat.PromptCategory(r.URL.Query().Get("category")))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}
