package breathing

import (
	"strings"
	"time"

	"mindwellAPI/utils"
)

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// PointsPerMinute is awarded for each full minute of a breathing session.
const PointsPerMinute = 5

type Technique struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	Inhale      int        `json:"inhale" db:"inhale"`
	HoldIn      int        `json:"hold_in" db:"hold_in"`
	Exhale      int        `json:"exhale" db:"exhale"`
	HoldOut     int        `json:"hold_out" db:"hold_out"`
	Cycles      int        `json:"cycles" db:"cycles"`
	Duration    int        `json:"duration" db:"duration"`
	Difficulty  Difficulty `json:"difficulty" db:"difficulty"`
	Benefits    string     `json:"-" db:"benefits"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// CycleDuration is the length of one breath in seconds.
func (t *Technique) CycleDuration() int {
	return t.Inhale + t.HoldIn + t.Exhale + t.HoldOut
}

func (t *Technique) BenefitList() []string {
	out := []string{}
	for _, line := range strings.Split(t.Benefits, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

type Pattern struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InhaleTime  int    `json:"inhaleTime"`
	HoldInTime  int    `json:"holdInTime"`
	ExhaleTime  int    `json:"exhaleTime"`
	HoldOutTime int    `json:"holdOutTime"`
	Cycles      int    `json:"cycles"`
}

func (t *Technique) Pattern() Pattern {
	return Pattern{
		Name:        t.Name,
		Description: t.Description,
		InhaleTime:  t.Inhale,
		HoldInTime:  t.HoldIn,
		ExhaleTime:  t.Exhale,
		HoldOutTime: t.HoldOut,
		Cycles:      t.Cycles,
	}
}

type Recommendation struct {
	ID          string `json:"id" db:"id"`
	TechniqueID string `json:"technique_id" db:"technique_id"`
	Condition   string `json:"condition" db:"condition"`
	Priority    int    `json:"priority" db:"priority"`
}

type Session struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"-" db:"user_id"`
	TechniqueID     string    `json:"technique_id" db:"technique_id"`
	CompletedCycles int       `json:"completed_cycles" db:"completed_cycles"`
	DurationSeconds int       `json:"duration_seconds" db:"duration_seconds"`
	Notes           string    `json:"notes" db:"notes"`
	CompletedAt     time.Time `json:"completed_at" db:"completed_at"`

	TechniqueName string `json:"technique_name,omitempty" db:"-"`
}

type TechniqueFilter struct {
	Name        string
	Difficulty  Difficulty
	DurationMin int
	DurationMax int
}

func (f TechniqueFilter) Match(t *Technique) bool {
	if !t.IsActive {
		return false
	}
	if f.Name != "" && !utils.ContainsFold(t.Name, f.Name) {
		return false
	}
	if f.Difficulty != "" && t.Difficulty != f.Difficulty {
		return false
	}
	if f.DurationMin > 0 && t.Duration < f.DurationMin {
		return false
	}
	if f.DurationMax > 0 && t.Duration > f.DurationMax {
		return false
	}
	return true
}

type SessionFilter struct {
	TechniqueID   string
	CompletedFrom *time.Time
	CompletedTo   *time.Time
}

func (f SessionFilter) Match(s *Session) bool {
	if f.TechniqueID != "" && s.TechniqueID != f.TechniqueID {
		return false
	}
	if f.CompletedFrom != nil && s.CompletedAt.Before(*f.CompletedFrom) {
		return false
	}
	if f.CompletedTo != nil && s.CompletedAt.After(*f.CompletedTo) {
		return false
	}
	return true
}

type CreateSessionRequest struct {
	TechniqueID     string `json:"technique_id" validate:"required"`
	CompletedCycles int    `json:"completed_cycles" validate:"gt=0"`
	DurationSeconds int    `json:"duration_seconds" validate:"gt=0"`
	Notes           string `json:"notes" validate:"max=2000"`
}

type TechniqueResponse struct {
	*Technique
	Benefits       []string `json:"benefits"`
	Pattern        Pattern  `json:"pattern"`
	RecommendedFor []string `json:"recommended_for"`
}

type SessionResponse struct {
	*Session
	PointsEarned int `json:"points_earned"`
	NewLevel     int `json:"new_level"`
}
