package progress

import "time"

// Stats is the per-user progress aggregate. A user without a row behaves
// like the zero value: no completions, no streak, no last activity.
type Stats struct {
	UserID                  string     `json:"-" db:"user_id"`
	TotalExercisesCompleted int        `json:"total_exercises_completed" db:"total_exercises_completed"`
	CurrentStreak           int        `json:"current_streak" db:"current_streak"`
	LongestStreak           int        `json:"longest_streak" db:"longest_streak"`
	LastActivityDate        *time.Time `json:"last_activity_date" db:"last_activity_date"`
	UpdatedAt               time.Time  `json:"updated_at" db:"updated_at"`
}

func NewStats(userID string) *Stats {
	return &Stats{UserID: userID}
}

// WeeklyActivity counts completions for one user on one date.
type WeeklyActivity struct {
	UserID string    `json:"-" db:"user_id"`
	Date   time.Time `json:"date" db:"date"`
	Count  int       `json:"count" db:"count"`
}

type Response struct {
	*Stats
	Level                int              `json:"level"`
	Points               int              `json:"points"`
	NextLevelPoints      int              `json:"next_level_points"`
	AchievementsUnlocked int              `json:"achievements_unlocked"`
	WeeklyActivity       []WeeklyActivity `json:"weekly_activity"`
}
