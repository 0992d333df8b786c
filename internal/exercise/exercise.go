package exercise

import (
	"time"

	"mindwellAPI/utils"
)

type Type string

const (
	TypeMeditation Type = "meditation"
	TypeJournaling Type = "journaling"
	TypeBreathwork Type = "breathwork"
	TypeCognitive  Type = "cognitive"
	TypeBehavioral Type = "behavioral"
)

func (t Type) Valid() bool {
	switch t {
	case TypeMeditation, TypeJournaling, TypeBreathwork, TypeCognitive, TypeBehavioral:
		return true
	}
	return false
}

type Exercise struct {
	ID              string    `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	Type            Type      `json:"type" db:"type"`
	DurationMinutes int       `json:"duration" db:"duration_minutes"`
	Points          int       `json:"points" db:"points"`
	Content         string    `json:"content" db:"content"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type CompletedExercise struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"-" db:"user_id"`
	ExerciseID  string    `json:"exercise_id" db:"exercise_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
	Notes       string    `json:"notes" db:"notes"`

	Exercise *Exercise `json:"exercise,omitempty" db:"-"`
}

// Filter narrows the exercise catalog. Zero fields are ignored.
type Filter struct {
	Title       string
	Type        Type
	DurationMin int
	DurationMax int
}

func (f Filter) Match(e *Exercise) bool {
	if f.Title != "" && !utils.ContainsFold(e.Title, f.Title) {
		return false
	}
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.DurationMin > 0 && e.DurationMinutes < f.DurationMin {
		return false
	}
	if f.DurationMax > 0 && e.DurationMinutes > f.DurationMax {
		return false
	}
	return true
}

type CompleteRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

type CompleteResponse struct {
	Detail       string             `json:"detail"`
	PointsEarned int                `json:"points_earned"`
	NewLevel     int                `json:"new_level"`
	Completion   *CompletedExercise `json:"completion"`
}

// WithStatus adds the caller's completion of today, if any.
type WithStatus struct {
	*Exercise
	CompletedAt *time.Time `json:"completed_at"`
}

type PromptType string

const (
	PromptReflection  PromptType = "reflection"
	PromptGratitude   PromptType = "gratitude"
	PromptChallenge   PromptType = "challenge"
	PromptMindfulness PromptType = "mindfulness"
)

var PromptTypes = []PromptType{PromptReflection, PromptGratitude, PromptChallenge, PromptMindfulness}

type DailyPrompt struct {
	ID        string     `json:"id" db:"id"`
	Date      time.Time  `json:"date" db:"date"`
	Type      PromptType `json:"type" db:"type"`
	Content   string     `json:"content" db:"content"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
