package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/auth"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/user"
	"mindwellAPI/internal/validation"
)

func newUserService(f *fixture) *UserService {
	return NewUserService(UserServiceConfig{
		Store:       f.store,
		Tokens:      auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour),
		Hasher:      auth.NewFastHasher(),
		Queue:       f.queue,
		Clock:       f.clock,
		FrontendURL: "https://app.example.com/",
	})
}

func register(t *testing.T, s *UserService, name string) *user.AuthResponse {
	t.Helper()
	resp, err := s.Register(context.Background(), &user.RegisterRequest{
		Username:        name,
		Email:           name + "@example.com",
		Password:        "s3cret-pass",
		PasswordConfirm: "s3cret-pass",
	})
	require.NoError(t, err)
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	s := newUserService(f)
	ctx := context.Background()

	resp := register(t, s, "alice")
	assert.Equal(t, 1, resp.User.Level)
	assert.NotEmpty(t, resp.Tokens.Access)
	assert.NotEmpty(t, resp.Tokens.Refresh)

	tasks := f.drain(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, queue.TypeSendEmail, tasks[0].Type)

	got, err := s.Login(ctx, &user.LoginRequest{Login: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, got.User.ID)

	_, err = s.Login(ctx, &user.LoginRequest{Login: "alice", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login(ctx, &user.LoginRequest{Login: "nobody", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicatesAndMismatch(t *testing.T) {
	f := newFixture(t)
	s := newUserService(f)
	ctx := context.Background()
	register(t, s, "alice")

	_, err := s.Register(ctx, &user.RegisterRequest{Username: "alice", Email: "new@example.com", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.Register(ctx, &user.RegisterRequest{Username: "bob", Email: "alice@example.com", Password: "s3cret-pass", PasswordConfirm: "s3cret-pass"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Register(ctx, &user.RegisterRequest{Username: "carol", Email: "carol@example.com", Password: "s3cret-pass", PasswordConfirm: "other-pass"})
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "password_confirm")
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newFixture(t)
	s := newUserService(f)
	ctx := context.Background()
	resp := register(t, s, "alice")

	pair, err := s.Refresh(ctx, &user.RefreshRequest{Refresh: resp.Tokens.Refresh})
	require.NoError(t, err)
	assert.NotEqual(t, resp.Tokens.Refresh, pair.Refresh)

	_, err = s.Refresh(ctx, &user.RefreshRequest{Refresh: resp.Tokens.Refresh})
	assert.ErrorIs(t, err, ErrInvalidToken, "a rotated refresh token must not work twice")

	require.NoError(t, s.Logout(ctx, resp.User.ID, &user.RefreshRequest{Refresh: pair.Refresh}))
	_, err = s.Refresh(ctx, &user.RefreshRequest{Refresh: pair.Refresh})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.Refresh(ctx, &user.RefreshRequest{Refresh: resp.Tokens.Access})
	assert.ErrorIs(t, err, ErrInvalidToken, "access tokens are not refresh tokens")
}

func TestUpdateProfileChecksUniquenessExcludingSelf(t *testing.T) {
	f := newFixture(t)
	s := newUserService(f)
	ctx := context.Background()
	alice := register(t, s, "alice")
	register(t, s, "bob")

	same := "alice"
	progressValue := 40
	got, err := s.UpdateProfile(ctx, alice.User.ID, &user.UpdateProfileRequest{Username: &same, TherapyProgress: &progressValue})
	require.NoError(t, err)
	assert.Equal(t, 40, got.TherapyProgress)

	taken := "bob"
	_, err = s.UpdateProfile(ctx, alice.User.ID, &user.UpdateProfileRequest{Username: &taken})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	tooMuch := 101
	_, err = s.UpdateProfile(ctx, alice.User.ID, &user.UpdateProfileRequest{TherapyProgress: &tooMuch})
	_, ok := validation.As(err)
	assert.True(t, ok)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	s := newUserService(f)
	ctx := context.Background()
	resp := register(t, s, "alice")

	err := s.ChangePassword(ctx, resp.User.ID, &user.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "another-pass", NewPasswordConfirm: "another-pass"})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	require.NoError(t, s.ChangePassword(ctx, resp.User.ID, &user.ChangePasswordRequest{CurrentPassword: "s3cret-pass", NewPassword: "another-pass", NewPasswordConfirm: "another-pass"}))
	_, err = s.Login(ctx, &user.LoginRequest{Login: "alice", Password: "another-pass"})
	assert.NoError(t, err)
}

var resetTokenPattern = regexp.MustCompile(`reset-password\?token=([0-9a-f-]+)`)

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	s := newUserService(f)
	ctx := context.Background()
	register(t, s, "alice")
	f.drain(t)

	require.NoError(t, s.ForgotPassword(ctx, &user.ForgotPasswordRequest{Email: "nobody@example.com"}))
	assert.Empty(t, f.drain(t), "unknown emails send nothing")

	require.NoError(t, s.ForgotPassword(ctx, &user.ForgotPasswordRequest{Email: "alice@example.com"}))
	tasks := f.drain(t)
	require.Len(t, tasks, 1)
	var mail queue.SendEmailPayload
	require.NoError(t, tasks[0].Decode(&mail))
	assert.Contains(t, mail.Body, "https://app.example.com/reset-password?token=")
	m := resetTokenPattern.FindStringSubmatch(mail.Body)
	require.Len(t, m, 2)
	token := m[1]

	require.NoError(t, s.ResetPassword(ctx, &user.ResetPasswordRequest{Token: token, NewPassword: "brand-new-pass", NewPasswordConfirm: "brand-new-pass"}))
	_, err := s.Login(ctx, &user.LoginRequest{Login: "alice", Password: "brand-new-pass"})
	require.NoError(t, err)

	err = s.ResetPassword(ctx, &user.ResetPasswordRequest{Token: token, NewPassword: "brand-new-pass", NewPasswordConfirm: "brand-new-pass"})
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens are consumed")
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	f := newFixture(t)
	s := newUserService(f)
	ctx := context.Background()
	register(t, s, "alice")
	f.drain(t)

	require.NoError(t, s.ForgotPassword(ctx, &user.ForgotPasswordRequest{Email: "alice@example.com"}))
	var mail queue.SendEmailPayload
	require.NoError(t, f.drain(t)[0].Decode(&mail))
	token := resetTokenPattern.FindStringSubmatch(mail.Body)[1]

	f.now = f.now.Add(25 * time.Hour)
	err := s.ResetPassword(ctx, &user.ResetPasswordRequest{Token: token, NewPassword: "brand-new-pass", NewPasswordConfirm: "brand-new-pass"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}
