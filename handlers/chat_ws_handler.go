package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/realtime"
	"mindwellAPI/middleware"
	"mindwellAPI/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundFrame is what clients send over the chat socket.
type inboundFrame struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	IsTyping bool   `json:"is_typing"`
}

type ChatSocketHandler struct {
	chat   *services.ChatService
	hub    *realtime.Hub
	tokens middleware.TokenValidator
	log    *logger.Logger
}

func NewChatSocketHandler(chat *services.ChatService, hub *realtime.Hub, tokens middleware.TokenValidator, log *logger.Logger) *ChatSocketHandler {
	return &ChatSocketHandler{
		chat:   chat,
		hub:    hub,
		tokens: tokens,
		log:    log.With("handler", "ChatSocketHandler"),
	}
}

// GET /api/v1/chat/ws/{sessionID}?token=<access token>
func (h *ChatSocketHandler) Connect(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]

	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	userID := claims.Subject

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	err = h.chat.Authorize(ctx, userID, sessionID)
	cancel()
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("could not upgrade connection", "error", err)
		return
	}

	client := realtime.NewClient(userID, conn)
	h.hub.Join(realtime.ChatRoom(sessionID), client)

	go client.WritePump()
	go client.ReadPump(h.hub, func(c *realtime.Client, message []byte) {
		h.handleFrame(c.UserID, sessionID, message)
	})
}

func (h *ChatSocketHandler) handleFrame(userID, sessionID string, message []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		h.log.Debug("dropping malformed frame", "session_id", sessionID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch frame.Type {
	case services.EventMessage:
		_, err = h.chat.SendMessage(ctx, userID, sessionID, &chat.SendMessageRequest{Content: frame.Content})
	case services.EventTyping:
		h.chat.Typing(ctx, userID, sessionID, frame.IsTyping)
	case services.EventRead:
		_, err = h.chat.MarkRead(ctx, userID, sessionID)
	default:
		h.log.Debug("unknown frame type", "type", frame.Type, "session_id", sessionID)
	}
	if err != nil {
		h.log.Warn("chat frame failed", "type", frame.Type, "session_id", sessionID, "error", err)
	}
}
