package services

import (
	"context"
	"errors"
	"fmt"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/notification"
	"mindwellAPI/internal/store"
)

type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type EmailSender interface {
	Send(ctx context.Context, email notification.Email) error
}

// NotificationDispatcher delivers one notification over push and email.
// It runs inside queue workers, so an error means the task is retried.
type NotificationDispatcher struct {
	devices store.DeviceQueries
	push    PushProvider
	email   EmailSender
	log     *logger.Logger
}

func NewNotificationDispatcher(devices store.DeviceQueries, log *logger.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{devices: devices, log: orNop(log).With("service", "NotificationDispatcher")}
}

// SetPushProvider allows injecting the FCM provider from main.go.
func (d *NotificationDispatcher) SetPushProvider(p PushProvider) {
	d.push = p
}

func (d *NotificationDispatcher) SetEmailSender(e EmailSender) {
	d.email = e
}

func (d *NotificationDispatcher) Send(ctx context.Context, n *notification.Notification) error {
	var errs []error

	if d.push == nil {
		d.log.Debug("skipping push, no provider", "user_id", n.UserID, "type", n.Type)
	} else if n.UserID != "" {
		tokens, err := d.devices.ListDeviceTokens(ctx, n.UserID)
		if err != nil {
			return fmt.Errorf("failed to list device tokens: %w", err)
		}
		if len(tokens) == 0 {
			d.log.Debug("skipping push, no devices", "user_id", n.UserID)
		} else if err := d.push.SendPush(ctx, tokens, n.Title, n.Body, n.Data); err != nil {
			d.log.Warn("push failed", "user_id", n.UserID, "type", n.Type, "error", err)
			errs = append(errs, err)
		}
	}

	if n.Email != "" {
		if err := d.SendEmail(ctx, notification.Email{To: n.Email, Subject: n.Title, Body: n.Body}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *NotificationDispatcher) SendEmail(ctx context.Context, e notification.Email) error {
	if d.email == nil {
		d.log.Info("skipping email, no sender configured", "to", e.To, "subject", e.Subject)
		return nil
	}
	if err := d.email.Send(ctx, e); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
