package chat

import (
	"encoding/json"
	"time"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

const (
	DefaultTitle = "New conversation"
	TitleLength  = 50

	FallbackReply = "Sorry, there was a problem generating a response. Please try again later."
)

type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Message struct {
	ID        string          `json:"id" db:"id"`
	SessionID string          `json:"session_id" db:"session_id"`
	Content   string          `json:"content" db:"content"`
	Sender    Sender          `json:"sender" db:"sender"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
	IsRead    bool            `json:"is_read" db:"is_read"`
	Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
}

// Metadata keys written on assistant messages.
type Metadata struct {
	ReplyTo string `json:"reply_to,omitempty"`
	Model   string `json:"model,omitempty"`
	Error   bool   `json:"error,omitempty"`
}

func (m *Message) Meta() Metadata {
	var md Metadata
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &md)
	}
	return md
}

type PromptCategory string

const (
	CategoryGeneral      PromptCategory = "general"
	CategoryTherapy      PromptCategory = "therapy"
	CategoryMentalHealth PromptCategory = "mental_health"
	CategoryMotivation   PromptCategory = "motivation"
	CategoryMeditation   PromptCategory = "meditation"
)

// AssistantPrompt is a suggested conversation starter shown in the client.
type AssistantPrompt struct {
	ID       string         `json:"id" db:"id"`
	Title    string         `json:"title" db:"title"`
	Prompt   string         `json:"prompt" db:"prompt"`
	Category PromptCategory `json:"category" db:"category"`
	IsActive bool           `json:"is_active" db:"is_active"`
}

type SessionSummary struct {
	*Session
	LastMessage *Message `json:"last_message"`
	UnreadCount int      `json:"unread_count"`
}

type SessionDetail struct {
	*Session
	Messages []Message `json:"messages"`
}

type CreateSessionRequest struct {
	Title string `json:"title" validate:"max=255"`
}

type UpdateSessionRequest struct {
	Title    *string `json:"title" validate:"omitempty,min=1,max=255"`
	IsActive *bool   `json:"is_active"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}
