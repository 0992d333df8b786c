package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"mindwellAPI/internal/auth"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/user"
	"mindwellAPI/internal/validation"
)

const resetTokenTTL = 24 * time.Hour

type UserService struct {
	store       store.Store
	tokens      *auth.TokenManager
	hasher      *auth.PasswordHasher
	revoked     auth.TokenCache
	queue       queue.Queue
	log         *logger.Logger
	clock       Clock
	frontendURL string
}

type UserServiceConfig struct {
	Store       store.Store
	Tokens      *auth.TokenManager
	Hasher      *auth.PasswordHasher
	Revoked     auth.TokenCache
	Queue       queue.Queue
	Log         *logger.Logger
	Clock       Clock
	FrontendURL string
}

func NewUserService(cfg UserServiceConfig) *UserService {
	if cfg.Hasher == nil {
		cfg.Hasher = auth.NewPasswordHasher()
	}
	if cfg.Revoked == nil {
		cfg.Revoked = auth.NewMemoryTokenCache()
	}
	return &UserService{
		store:       cfg.Store,
		tokens:      cfg.Tokens,
		hasher:      cfg.Hasher,
		revoked:     cfg.Revoked,
		queue:       cfg.Queue,
		log:         orNop(cfg.Log).With("service", "UserService"),
		clock:       cfg.Clock,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
	}
}

func passwordsMatch(field, password, confirm string) error {
	if password != confirm {
		return validation.Field(field, "passwords do not match")
	}
	return nil
}

func (s *UserService) issue(ctx context.Context, u *user.User) (*user.AuthResponse, error) {
	pair, err := s.tokens.Generate(u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	stats, err := s.progressStats(ctx, s.store, u.ID)
	if err != nil {
		return nil, err
	}
	return &user.AuthResponse{
		User:   user.NewProfileResponse(u, stats),
		Tokens: user.TokenPair{Access: pair.Access, Refresh: pair.Refresh},
	}, nil
}

func (s *UserService) progressStats(ctx context.Context, q store.Queries, userID string) (*progress.Stats, error) {
	stats, err := q.GetProgressStats(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return progress.NewStats(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress stats: %w", err)
	}
	return stats, nil
}

// checkUnique reports which identity field is already taken by someone other than selfID.
func (s *UserService) checkUnique(ctx context.Context, q store.Queries, selfID, username, email string) error {
	if username != "" {
		other, err := q.GetUserByUsername(ctx, username)
		if err == nil && other.ID != selfID {
			return ErrUsernameTaken
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}
	}
	if email != "" {
		other, err := q.GetUserByEmail(ctx, email)
		if err == nil && other.ID != selfID {
			return ErrEmailTaken
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to check email: %w", err)
		}
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, req *user.RegisterRequest) (*user.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := passwordsMatch("password_confirm", req.Password, req.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Level:        1,
	}
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		if err := s.checkUnique(ctx, q, "", u.Username, u.Email); err != nil {
			return err
		}
		if err := q.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return q.SaveProgressStats(ctx, progress.NewStats(u.ID))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", u.ID)
	enqueue(ctx, s.queue, s.log, queue.TypeSendEmail, queue.SendEmailPayload(welcomeEmail(u)))
	return s.issue(ctx, u)
}

func (s *UserService) Login(ctx context.Context, req *user.LoginRequest) (*user.AuthResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	login := strings.TrimSpace(req.Login)

	u, err := s.store.GetUserByUsername(ctx, login)
	if errors.Is(err, store.ErrNotFound) {
		u, err = s.store.GetUserByEmail(ctx, login)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token. The presented token is revoked.
func (s *UserService) Refresh(ctx context.Context, req *user.RefreshRequest) (*user.TokenPair, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	claims, err := s.validRefresh(ctx, req.Refresh)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, claims.Subject); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	pair, err := s.tokens.Generate(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &user.TokenPair{Access: pair.Access, Refresh: pair.Refresh}, nil
}

func (s *UserService) validRefresh(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.ValidateRefreshToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *UserService) Logout(ctx context.Context, userID string, req *user.RefreshRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	claims, err := s.validRefresh(ctx, req.Refresh)
	if err != nil {
		return err
	}
	if claims.Subject != userID {
		return ErrInvalidToken
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *UserService) Profile(ctx context.Context, userID string) (*user.ProfileResponse, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	stats, err := s.progressStats(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	return user.NewProfileResponse(u, stats), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *user.UpdateProfileRequest) (*user.ProfileResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var out *user.ProfileResponse
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		var username, email string
		if req.Username != nil {
			username = strings.TrimSpace(*req.Username)
			u.Username = username
		}
		if req.Email != nil {
			email = strings.TrimSpace(*req.Email)
			u.Email = email
		}
		if err := s.checkUnique(ctx, q, u.ID, username, email); err != nil {
			return err
		}
		if req.FirstName != nil {
			u.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			u.LastName = *req.LastName
		}
		if req.TherapyProgress != nil {
			u.TherapyProgress = *req.TherapyProgress
		}
		if err := q.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		stats, err := s.progressStats(ctx, q, userID)
		if err != nil {
			return err
		}
		out = user.NewProfileResponse(u, stats)
		return nil
	})
	return out, err
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, req *user.ChangePasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := passwordsMatch("new_password_confirm", req.NewPassword, req.NewPasswordConfirm); err != nil {
		return err
	}

	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(u.PasswordHash, req.CurrentPassword); err != nil {
		return ErrPasswordMismatch
	}
	return s.setPassword(ctx, s.store, u, req.NewPassword)
}

func (s *UserService) setPassword(ctx context.Context, q store.Queries, u *user.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := q.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// ForgotPassword never reveals whether the email belongs to an account.
func (s *UserService) ForgotPassword(ctx context.Context, req *user.ForgotPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	u, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	now := s.clock.now().UTC()
	token := &user.PasswordResetToken{
		Token:     uuid.New().String(),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(resetTokenTTL),
	}
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		if err := q.DeletePasswordResetTokens(ctx, u.ID); err != nil {
			return fmt.Errorf("failed to delete old reset tokens: %w", err)
		}
		if err := q.CreatePasswordResetToken(ctx, token); err != nil {
			return fmt.Errorf("failed to create reset token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	link := s.frontendURL + "/reset-password?token=" + url.QueryEscape(token.Token)
	enqueue(ctx, s.queue, s.log, queue.TypeSendEmail, queue.SendEmailPayload(passwordResetEmail(u, link)))
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, req *user.ResetPasswordRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := passwordsMatch("new_password_confirm", req.NewPassword, req.NewPasswordConfirm); err != nil {
		return err
	}

	return s.store.WithTx(ctx, func(q store.Queries) error {
		token, err := q.GetPasswordResetToken(ctx, req.Token)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidToken
		}
		if err != nil {
			return fmt.Errorf("failed to get reset token: %w", err)
		}
		if token.Expired(s.clock.now()) {
			return ErrInvalidToken
		}
		u, err := q.GetUserByID(ctx, token.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if err := s.setPassword(ctx, q, u, req.NewPassword); err != nil {
			return err
		}
		return q.DeletePasswordResetTokens(ctx, u.ID)
	})
}
