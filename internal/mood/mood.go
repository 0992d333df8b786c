package mood

import "time"

type Mood string

const (
	VeryGood Mood = "verygood"
	Good     Mood = "good"
	Neutral  Mood = "neutral"
	Bad      Mood = "bad"
	VeryBad  Mood = "verybad"
)

var Moods = []Mood{VeryGood, Good, Neutral, Bad, VeryBad}

// Score maps a mood onto 1 (verybad) .. 5 (verygood). Unknown moods count as neutral.
func (m Mood) Score() int {
	switch m {
	case VeryBad:
		return 1
	case Bad:
		return 2
	case Good:
		return 4
	case VeryGood:
		return 5
	default:
		return 3
	}
}

const DefaultAverage = 3.0

type Entry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"-" db:"user_id"`
	Mood      Mood      `json:"mood" db:"mood"`
	Notes     string    `json:"notes" db:"notes"`
	Date      time.Time `json:"date" db:"date"`
	Factors   []string  `json:"factors" db:"factors"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Stats struct {
	UserID        string     `json:"-" db:"user_id"`
	AverageMood   float64    `json:"average_mood" db:"average_mood"`
	StreakDays    int        `json:"streak_days" db:"streak_days"`
	LastEntryDate *time.Time `json:"last_entry_date" db:"last_entry_date"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

type Filter struct {
	Mood     Mood
	DateFrom *time.Time
	DateTo   *time.Time
	Factor   string
}

func (f Filter) Match(e *Entry) bool {
	if f.Mood != "" && e.Mood != f.Mood {
		return false
	}
	if f.DateFrom != nil && e.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && e.Date.After(*f.DateTo) {
		return false
	}
	if f.Factor != "" {
		for _, name := range e.Factors {
			if name == f.Factor {
				return true
			}
		}
		return false
	}
	return true
}

// EntryRequest is used for create and partial update. Nil fields are left unchanged on update.
type EntryRequest struct {
	Mood    *Mood     `json:"mood" validate:"omitempty,oneof=verygood good neutral bad verybad"`
	Notes   *string   `json:"notes" validate:"omitempty,max=2000"`
	Date    *string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Factors *[]string `json:"factors" validate:"omitempty,max=20,dive,min=1,max=100"`
}

type FactorCount struct {
	Factor string `json:"factor"`
	Count  int    `json:"count"`
}

type StatsResponse struct {
	*Stats
	MoodCounts     map[Mood]int  `json:"mood_counts"`
	MostCommonMood *Mood         `json:"most_common_mood"`
	TopFactors     []FactorCount `json:"top_factors"`
}
