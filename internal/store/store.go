// Package store defines persistence for every aggregate the API owns.
// Implementations live in store/postgres and store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/breathing"
	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/mood"
	"mindwellAPI/internal/notification"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/user"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// Queries is the set of operations usable both inside and outside a transaction.
type Queries interface {
	UserQueries
	TherapyQueries
	ProgressQueries
	MoodQueries
	BreathingQueries
	ChatQueries
	DeviceQueries
}

type Store interface {
	Queries

	// WithTx runs fn in one transaction. fn's error rolls everything back.
	WithTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close()
}

type UserQueries interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByID(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	// UpdateUser writes every mutable column of u.
	UpdateUser(ctx context.Context, u *user.User) error

	CreatePasswordResetToken(ctx context.Context, t *user.PasswordResetToken) error
	GetPasswordResetToken(ctx context.Context, token string) (*user.PasswordResetToken, error)
	DeletePasswordResetTokens(ctx context.Context, userID string) error
}

type TherapyQueries interface {
	SaveExercise(ctx context.Context, e *exercise.Exercise) error
	GetExercise(ctx context.Context, id string) (*exercise.Exercise, error)
	ListExercises(ctx context.Context, f exercise.Filter) ([]exercise.Exercise, error)

	CreateCompletion(ctx context.Context, c *exercise.CompletedExercise) error
	// CompletionsBetween returns the user's completions in [from, to), newest first.
	// exerciseID may be empty to match any exercise.
	CompletionsBetween(ctx context.Context, userID, exerciseID string, from, to time.Time) ([]exercise.CompletedExercise, error)
	ListCompletions(ctx context.Context, userID string) ([]exercise.CompletedExercise, error)
	// CountCompletions counts completions of exercises of type t, or all when t is empty.
	CountCompletions(ctx context.Context, userID string, t exercise.Type) (int, error)

	CreateDailyPrompt(ctx context.Context, p *exercise.DailyPrompt) error
	GetDailyPromptByDate(ctx context.Context, date time.Time) (*exercise.DailyPrompt, error)
	LatestDailyPrompt(ctx context.Context) (*exercise.DailyPrompt, error)
	CountDailyPrompts(ctx context.Context, t exercise.PromptType) (int, error)
	ListDailyPrompts(ctx context.Context, limit int) ([]exercise.DailyPrompt, error)

	SaveAchievement(ctx context.Context, a *achievement.Achievement) error
	GetAchievement(ctx context.Context, id string) (*achievement.Achievement, error)
	ListAchievements(ctx context.Context, f achievement.Filter) ([]achievement.Achievement, error)
	ListUserAchievements(ctx context.Context, userID string) ([]achievement.UserAchievement, error)
	// SetAchievementProgress upserts current_value and never touches unlocked_at.
	SetAchievementProgress(ctx context.Context, userID, achievementID string, value int) error
	// UnlockAchievement sets unlocked_at only if it is still null and reports whether it did.
	UnlockAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error)
}

type ProgressQueries interface {
	// GetProgressStats returns ErrNotFound when the user has no row yet.
	GetProgressStats(ctx context.Context, userID string) (*progress.Stats, error)
	SaveProgressStats(ctx context.Context, s *progress.Stats) error
	// ListActiveStreaks returns every row with current_streak >= minStreak.
	ListActiveStreaks(ctx context.Context, minStreak int) ([]progress.Stats, error)

	IncrementWeeklyActivity(ctx context.Context, userID string, date time.Time) error
	ListWeeklyActivity(ctx context.Context, userID string, from, to time.Time) ([]progress.WeeklyActivity, error)
}

type MoodQueries interface {
	// SaveMoodEntry inserts or updates by ID. Returns ErrConflict when another
	// entry already exists for (user, date).
	SaveMoodEntry(ctx context.Context, e *mood.Entry) error
	GetMoodEntry(ctx context.Context, userID, id string) (*mood.Entry, error)
	GetMoodEntryByDate(ctx context.Context, userID string, date time.Time) (*mood.Entry, error)
	DeleteMoodEntry(ctx context.Context, userID, id string) error
	// ListMoodEntries returns entries newest date first.
	ListMoodEntries(ctx context.Context, userID string, f mood.Filter) ([]mood.Entry, error)

	GetMoodStats(ctx context.Context, userID string) (*mood.Stats, error)
	SaveMoodStats(ctx context.Context, s *mood.Stats) error
}

type BreathingQueries interface {
	SaveTechnique(ctx context.Context, t *breathing.Technique) error
	GetTechnique(ctx context.Context, id string) (*breathing.Technique, error)
	ListTechniques(ctx context.Context, f breathing.TechniqueFilter) ([]breathing.Technique, error)

	SaveRecommendation(ctx context.Context, r *breathing.Recommendation) error
	ListRecommendations(ctx context.Context, techniqueID string) ([]breathing.Recommendation, error)
	// TechniquesForCondition matches condition case-insensitively, ordered by priority.
	TechniquesForCondition(ctx context.Context, condition string) ([]breathing.Technique, error)

	CreateBreathingSession(ctx context.Context, s *breathing.Session) error
	GetBreathingSession(ctx context.Context, userID, id string) (*breathing.Session, error)
	ListBreathingSessions(ctx context.Context, userID string, f breathing.SessionFilter) ([]breathing.Session, error)
}

type ChatQueries interface {
	CreateChatSession(ctx context.Context, s *chat.Session) error
	GetChatSession(ctx context.Context, userID, id string) (*chat.Session, error)
	// GetChatSessionByID skips the ownership check. Used by workers.
	GetChatSessionByID(ctx context.Context, id string) (*chat.Session, error)
	ListChatSessions(ctx context.Context, userID string) ([]chat.Session, error)
	UpdateChatSession(ctx context.Context, s *chat.Session) error
	DeleteChatSession(ctx context.Context, userID, id string) error

	CreateChatMessage(ctx context.Context, m *chat.Message) error
	GetChatMessage(ctx context.Context, id string) (*chat.Message, error)
	// ListChatMessages returns the session's messages oldest first.
	ListChatMessages(ctx context.Context, sessionID string) ([]chat.Message, error)
	MarkMessagesRead(ctx context.Context, sessionID string, sender chat.Sender) (int, error)

	SaveAssistantPrompt(ctx context.Context, p *chat.AssistantPrompt) error
	ListAssistantPrompts(ctx context.Context, category chat.PromptCategory) ([]chat.AssistantPrompt, error)
}

type DeviceQueries interface {
	SaveDeviceToken(ctx context.Context, t *notification.DeviceToken) error
	ListDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error)
	DeleteDeviceToken(ctx context.Context, userID, token string) error
}
