package user

import "mindwellAPI/internal/progress"

type RegisterRequest struct {
	Username        string `json:"username" validate:"required,min=3,max=150"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

type LoginRequest struct {
	// Username or email.
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type UpdateProfileRequest struct {
	Username        *string `json:"username,omitempty" validate:"omitempty,min=3,max=150"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	FirstName       *string `json:"first_name,omitempty" validate:"omitempty,max=150"`
	LastName        *string `json:"last_name,omitempty" validate:"omitempty,max=150"`
	TherapyProgress *int    `json:"therapy_progress,omitempty" validate:"omitempty,min=0,max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword    string `json:"current_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token              string `json:"token" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required,min=8"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AuthResponse struct {
	User   *ProfileResponse `json:"user"`
	Tokens TokenPair        `json:"tokens"`
}

type ProfileResponse struct {
	*User
	NextLevelPoints int             `json:"next_level_points"`
	Progress        *progress.Stats `json:"progress,omitempty"`
}

func NewProfileResponse(u *User, stats *progress.Stats) *ProfileResponse {
	return &ProfileResponse{User: u, NextLevelPoints: u.NextLevelPoints(), Progress: stats}
}
