package queue

const (
	TypeCheckAchievements  = "check_achievements"
	TypeGenerateAIResponse = "generate_ai_response"
	TypeNotifyLevelUp      = "notify_level_up"
	TypeNotifyAchievement  = "notify_achievement"
	TypeSendEmail          = "send_email"
)

type CheckAchievementsPayload struct {
	UserID string `json:"user_id"`
}

type GenerateAIResponsePayload struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
}

type NotifyLevelUpPayload struct {
	UserID string `json:"user_id"`
	Level  int    `json:"level"`
}

type NotifyAchievementPayload struct {
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
}

type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
