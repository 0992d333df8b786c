package notification

import "time"

type Type string

const (
	TypeLevelUp        Type = "level_up"
	TypeAchievement    Type = "achievement_unlocked"
	TypeStreakReminder Type = "streak_reminder"
	TypeWelcome        Type = "welcome"
	TypePasswordReset  Type = "password_reset"
)

// Notification is one user-facing message. It is delivered as a push when
// the user has devices and as an email when Email is set.
type Notification struct {
	UserID string         `json:"user_id"`
	Type   Type           `json:"type"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Data   map[string]any `json:"data,omitempty"`
	Email  string         `json:"email,omitempty"`
}

type DeviceToken struct {
	UserID    string    `json:"-" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
