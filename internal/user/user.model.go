package user

import "time"

const PointsPerLevel = 100

type User struct {
	ID              string    `json:"id" db:"id"`
	Username        string    `json:"username" db:"username"`
	Email           string    `json:"email" db:"email"`
	FirstName       string    `json:"first_name" db:"first_name"`
	LastName        string    `json:"last_name" db:"last_name"`
	PasswordHash    string    `json:"-" db:"password_hash"`
	TherapyProgress int       `json:"therapy_progress" db:"therapy_progress"`
	StreakDays      int       `json:"streak_days" db:"streak_days"`
	Points          int       `json:"points" db:"points"`
	Level           int       `json:"level" db:"level"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// NextLevelPoints is how many points are still needed for the next level.
func (u *User) NextLevelPoints() int {
	n := u.Level*PointsPerLevel - u.Points
	if n < 0 {
		return 0
	}
	return n
}

type PasswordResetToken struct {
	Token     string    `json:"token" db:"token"`
	UserID    string    `json:"user_id" db:"user_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
