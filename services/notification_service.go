package services

import (
	"context"
	"fmt"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/notification"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/validation"
)

type NotificationService struct {
	store      store.Store
	dispatcher *NotificationDispatcher
	log        *logger.Logger
	clock      Clock
}

func NewNotificationService(st store.Store, dispatcher *NotificationDispatcher, clock Clock, log *logger.Logger) *NotificationService {
	return &NotificationService{store: st, dispatcher: dispatcher, clock: clock, log: orNop(log).With("service", "NotificationService")}
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) (*notification.DeviceToken, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	platform := req.Platform
	if platform == "" {
		platform = "android"
	}
	t := &notification.DeviceToken{UserID: userID, Token: req.Token, Platform: platform, CreatedAt: s.clock.now().UTC()}
	if err := s.store.SaveDeviceToken(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to save device token: %w", err)
	}
	return t, nil
}

func (s *NotificationService) UnregisterDevice(ctx context.Context, userID string, req *notification.UnregisterDeviceRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	if err := s.store.DeleteDeviceToken(ctx, userID, req.Token); err != nil {
		return fmt.Errorf("failed to delete device token: %w", err)
	}
	return nil
}

func (s *NotificationService) NotifyLevelUp(ctx context.Context, userID string, level int) error {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	email := levelUpEmail(u, level)
	return s.dispatcher.Send(ctx, &notification.Notification{
		UserID: userID,
		Type:   notification.TypeLevelUp,
		Title:  email.Subject,
		Body:   email.Body,
		Data:   map[string]any{"level": level},
		Email:  u.Email,
	})
}

func (s *NotificationService) NotifyAchievement(ctx context.Context, userID, achievementID string) error {
	a, err := s.store.GetAchievement(ctx, achievementID)
	if err != nil {
		return fmt.Errorf("failed to get achievement: %w", err)
	}
	return s.dispatcher.Send(ctx, &notification.Notification{
		UserID: userID,
		Type:   notification.TypeAchievement,
		Title:  "Achievement unlocked!",
		Body:   fmt.Sprintf("You earned %q and %d points.", a.Title, a.Points),
		Data:   map[string]any{"achievement_id": a.ID, "points": a.Points},
	})
}

// NotifyStreakReminder pushes the reminder to the user's devices. The email
// copy is sent as its own send_email task.
func (s *NotificationService) NotifyStreakReminder(ctx context.Context, userID string, streak int) error {
	return s.dispatcher.Send(ctx, &notification.Notification{
		UserID: userID,
		Type:   notification.TypeStreakReminder,
		Title:  "Keep your streak going",
		Body:   fmt.Sprintf("You are on a %d day streak. A short exercise today keeps it alive.", streak),
		Data:   map[string]any{"streak": streak},
	})
}

func (s *NotificationService) SendEmail(ctx context.Context, e notification.Email) error {
	return s.dispatcher.SendEmail(ctx, e)
}
