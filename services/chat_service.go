package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"mindwellAPI/internal/ai"
	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/realtime"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/validation"
	"mindwellAPI/utils"
)

const maxMessageLength = 4000

// Realtime event types sent to chat rooms.
const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventRead    = "read"
)

type ChatEvent struct {
	Type     string        `json:"type"`
	Message  *chat.Message `json:"message,omitempty"`
	UserID   string        `json:"user_id,omitempty"`
	IsTyping *bool         `json:"is_typing,omitempty"`
}

type ChatService struct {
	store     store.Store
	queue     queue.Queue
	assistant ai.Completer
	publisher realtime.Publisher
	log       *logger.Logger
	clock     Clock
}

type ChatServiceConfig struct {
	Store     store.Store
	Queue     queue.Queue
	Assistant ai.Completer
	Publisher realtime.Publisher
	Log       *logger.Logger
	Clock     Clock
}

func NewChatService(cfg ChatServiceConfig) *ChatService {
	if cfg.Assistant == nil {
		cfg.Assistant = ai.Unavailable{}
	}
	return &ChatService{
		store:     cfg.Store,
		queue:     cfg.Queue,
		assistant: cfg.Assistant,
		publisher: cfg.Publisher,
		log:       orNop(cfg.Log).With("service", "ChatService"),
		clock:     cfg.Clock,
	}
}

func (s *ChatService) publish(ctx context.Context, sessionID string, ev ChatEvent) {
	if s.publisher == nil {
		return
	}
	env, err := realtime.NewEnvelope(realtime.ChatRoom(sessionID), ev)
	if err != nil {
		s.log.Error("failed to encode chat event", "session_id", sessionID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil {
		s.log.Warn("failed to publish chat event", "session_id", sessionID, "type", ev.Type, "error", err)
	}
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]chat.SessionSummary, error) {
	sessions, err := s.store.ListChatSessions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	out := make([]chat.SessionSummary, 0, len(sessions))
	for i := range sessions {
		msgs, err := s.store.ListChatMessages(ctx, sessions[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list chat messages: %w", err)
		}
		sum := chat.SessionSummary{Session: &sessions[i]}
		if len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			sum.LastMessage = &last
		}
		for _, m := range msgs {
			if m.Sender == chat.SenderAssistant && !m.IsRead {
				sum.UnreadCount++
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *ChatService) CreateSession(ctx context.Context, userID string, req *chat.CreateSessionRequest) (*chat.Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = chat.DefaultTitle
	}
	now := s.clock.now().UTC()
	sess := &chat.Session{UserID: userID, Title: title, IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := s.store.CreateChatSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return sess, nil
}

// GetSession returns the session with its messages and marks the
// assistant's messages read.
func (s *ChatService) GetSession(ctx context.Context, userID, id string) (*chat.SessionDetail, error) {
	sess, err := s.store.GetChatSession(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	if _, err := s.store.MarkMessagesRead(ctx, id, chat.SenderAssistant); err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}
	msgs, err := s.store.ListChatMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return &chat.SessionDetail{Session: sess, Messages: msgs}, nil
}

func (s *ChatService) UpdateSession(ctx context.Context, userID, id string, req *chat.UpdateSessionRequest) (*chat.Session, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	sess, err := s.store.GetChatSession(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	if req.Title != nil {
		sess.Title = strings.TrimSpace(*req.Title)
	}
	if req.IsActive != nil {
		sess.IsActive = *req.IsActive
	}
	sess.UpdatedAt = s.clock.now().UTC()
	if err := s.store.UpdateChatSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to update chat session: %w", err)
	}
	return sess, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteChatSession(ctx, userID, id); err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	return nil
}

func (s *ChatService) Messages(ctx context.Context, userID, sessionID string) ([]chat.Message, error) {
	if _, err := s.store.GetChatSession(ctx, userID, sessionID); err != nil {
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}
	msgs, err := s.store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	return msgs, nil
}

// SendMessage stores the user's message and queues the assistant reply.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID string, req *chat.SendMessageRequest) (*chat.Message, error) {
	content := strings.TrimSpace(req.Content)
	switch n := utf8.RuneCountInString(content); {
	case n == 0:
		return nil, validation.Field("content", "this field is required")
	case n > maxMessageLength:
		return nil, validation.Field("content", fmt.Sprintf("must be at most %d characters", maxMessageLength))
	}

	var msg *chat.Message
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		sess, err := q.GetChatSession(ctx, userID, sessionID)
		if err != nil {
			return fmt.Errorf("failed to get chat session: %w", err)
		}
		now := s.clock.now().UTC()
		msg = &chat.Message{SessionID: sessionID, Content: content, Sender: chat.SenderUser, Timestamp: now, IsRead: true}
		if err := q.CreateChatMessage(ctx, msg); err != nil {
			return fmt.Errorf("failed to save chat message: %w", err)
		}

		if sess.Title == chat.DefaultTitle || sess.Title == "" {
			sess.Title = utils.Truncate(content, chat.TitleLength)
		}
		sess.UpdatedAt = now
		if err := q.UpdateChatSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to update chat session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, sessionID, ChatEvent{Type: EventMessage, Message: msg})
	enqueue(ctx, s.queue, s.log, queue.TypeGenerateAIResponse, queue.GenerateAIResponsePayload{SessionID: sessionID, MessageID: msg.ID})
	return msg, nil
}

func (s *ChatService) Prompts(ctx context.Context, category chat.PromptCategory) ([]chat.AssistantPrompt, error) {
	list, err := s.store.ListAssistantPrompts(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistant prompts: %w", err)
	}
	return list, nil
}

// MarkRead marks the assistant's messages read and tells the room.
func (s *ChatService) MarkRead(ctx context.Context, userID, sessionID string) (int, error) {
	if _, err := s.store.GetChatSession(ctx, userID, sessionID); err != nil {
		return 0, fmt.Errorf("failed to get chat session: %w", err)
	}
	n, err := s.store.MarkMessagesRead(ctx, sessionID, chat.SenderAssistant)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	s.publish(ctx, sessionID, ChatEvent{Type: EventRead, UserID: userID})
	return n, nil
}

func (s *ChatService) Typing(ctx context.Context, userID, sessionID string, isTyping bool) {
	s.publish(ctx, sessionID, ChatEvent{Type: EventTyping, UserID: userID, IsTyping: &isTyping})
}

// Authorize reports whether userID owns the session.
func (s *ChatService) Authorize(ctx context.Context, userID, sessionID string) error {
	if _, err := s.store.GetChatSession(ctx, userID, sessionID); err != nil {
		return fmt.Errorf("failed to get chat session: %w", err)
	}
	return nil
}

// history builds the conversation up to and including the trigger message.
func history(msgs []chat.Message, trigger *chat.Message) []ai.Message {
	out := make([]ai.Message, 0, len(msgs)+1)
	for _, m := range msgs {
		if m.ID == trigger.ID || m.Timestamp.After(trigger.Timestamp) {
			continue
		}
		role := ai.RoleUser
		if m.Sender == chat.SenderAssistant {
			role = ai.RoleAssistant
		}
		out = append(out, ai.Message{Role: role, Content: m.Content})
	}
	return append(out, ai.Message{Role: ai.RoleUser, Content: trigger.Content})
}

// GenerateResponse writes the assistant's reply to messageID. A provider
// failure stores the fallback reply instead. A redelivery for a message that
// already has a reply does nothing.
func (s *ChatService) GenerateResponse(ctx context.Context, sessionID, messageID string) error {
	if _, err := s.store.GetChatSessionByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to get chat session: %w", err)
	}
	trigger, err := s.store.GetChatMessage(ctx, messageID)
	if err != nil {
		return fmt.Errorf("failed to get chat message: %w", err)
	}
	msgs, err := s.store.ListChatMessages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to list chat messages: %w", err)
	}
	for i := range msgs {
		if msgs[i].Sender == chat.SenderAssistant && msgs[i].Meta().ReplyTo == messageID {
			s.log.Debug("reply already exists", "session_id", sessionID, "message_id", messageID)
			return nil
		}
	}

	meta := chat.Metadata{ReplyTo: messageID}
	content := chat.FallbackReply
	reply, err := s.assistant.Complete(ctx, history(msgs, trigger))
	if err != nil {
		s.log.Warn("assistant unavailable, using fallback", "session_id", sessionID, "error", err)
		meta.Error = true
	} else {
		content = reply.Content
		meta.Model = reply.Model
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	answer := &chat.Message{
		SessionID: sessionID,
		Content:   content,
		Sender:    chat.SenderAssistant,
		Timestamp: s.clock.now().UTC(),
		Metadata:  raw,
	}
	if err := s.store.CreateChatMessage(ctx, answer); err != nil {
		return fmt.Errorf("failed to save assistant message: %w", err)
	}
	s.publish(ctx, sessionID, ChatEvent{Type: EventMessage, Message: answer})
	return nil
}
