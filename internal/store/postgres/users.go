package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"mindwellAPI/internal/user"
)

const userColumns = `id, username, email, first_name, last_name, password_hash, therapy_progress, streak_days, points, level, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*user.User, error) {
	u := &user.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.TherapyProgress,
		&u.StreakDays,
		&u.Points,
		&u.Level,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (q queries) CreateUser(ctx context.Context, u *user.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.UpdatedAt = u.CreatedAt

	query := `
	INSERT INTO users (` + userColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := q.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.FirstName,
		u.LastName,
		u.PasswordHash,
		u.TherapyProgress,
		u.StreakDays,
		u.Points,
		u.Level,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return wrap("create user", err)
}

func (q queries) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, wrap("get user", err)
}

func (q queries) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
	return u, wrap("get user by email", err)
}

func (q queries) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	return u, wrap("get user by username", err)
}

func (q queries) UpdateUser(ctx context.Context, u *user.User) error {
	u.UpdatedAt = time.Now().UTC()
	query := `
	UPDATE users
	SET username = $2, email = $3, first_name = $4, last_name = $5, password_hash = $6,
	    therapy_progress = $7, streak_days = $8, points = $9, level = $10, updated_at = $11
	WHERE id = $1
	`
	return execOne(ctx, q.db, "update user", query,
		u.ID,
		u.Username,
		u.Email,
		u.FirstName,
		u.LastName,
		u.PasswordHash,
		u.TherapyProgress,
		u.StreakDays,
		u.Points,
		u.Level,
		u.UpdatedAt,
	)
}

func (q queries) CreatePasswordResetToken(ctx context.Context, t *user.PasswordResetToken) error {
	if t.Token == "" {
		t.Token = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO password_reset_tokens (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		t.Token, t.UserID, t.CreatedAt, t.ExpiresAt,
	)
	return wrap("create password reset token", err)
}

func (q queries) GetPasswordResetToken(ctx context.Context, token string) (*user.PasswordResetToken, error) {
	t := &user.PasswordResetToken{}
	err := q.db.QueryRow(ctx,
		`SELECT token, user_id, created_at, expires_at FROM password_reset_tokens WHERE token = $1`, token,
	).Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		return nil, wrap("get password reset token", err)
	}
	return t, nil
}

func (q queries) DeletePasswordResetTokens(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1`, userID)
	return wrap("delete password reset tokens", err)
}
