package achievement

import (
	"time"

	"mindwellAPI/utils"
)

type Category string

const (
	CategoryMeditation Category = "meditation"
	CategoryJournaling Category = "journaling"
	CategoryStreak     Category = "streak"
	CategoryMilestones Category = "milestones"
	CategoryLevel      Category = "level"
)

// Categories in evaluation order. Level comes last so that points awarded
// by earlier unlocks are already reflected in the user's level.
var Categories = []Category{
	CategoryMeditation,
	CategoryJournaling,
	CategoryStreak,
	CategoryMilestones,
	CategoryLevel,
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

type Achievement struct {
	ID            string    `json:"id" db:"id"`
	Title         string    `json:"title" db:"title"`
	Description   string    `json:"description" db:"description"`
	Icon          string    `json:"icon" db:"icon"`
	Category      Category  `json:"category" db:"category"`
	RequiredValue int       `json:"required_value" db:"required_value"`
	Points        int       `json:"points" db:"points"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type UserAchievement struct {
	UserID        string     `json:"-" db:"user_id"`
	AchievementID string     `json:"achievement_id" db:"achievement_id"`
	CurrentValue  int        `json:"current_value" db:"current_value"`
	UnlockedAt    *time.Time `json:"unlocked_at" db:"unlocked_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type Filter struct {
	Title    string
	Category Category
}

func (f Filter) Match(a *Achievement) bool {
	if f.Title != "" && !utils.ContainsFold(a.Title, f.Title) {
		return false
	}
	if f.Category != "" && a.Category != f.Category {
		return false
	}
	return true
}

type WithStatus struct {
	*Achievement
	CurrentValue int        `json:"current_value"`
	Progress     int        `json:"progress"`
	UnlockedAt   *time.Time `json:"unlocked_at"`
}

func NewWithStatus(a *Achievement, ua *UserAchievement) WithStatus {
	out := WithStatus{Achievement: a}
	if ua != nil {
		out.CurrentValue = ua.CurrentValue
		out.UnlockedAt = ua.UnlockedAt
	}
	out.Progress = Progress(out.CurrentValue, a.RequiredValue)
	return out
}

// Progress is the percentage towards required, capped at 100.
func Progress(current, required int) int {
	if required <= 0 {
		return 100
	}
	p := current * 100 / required
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
