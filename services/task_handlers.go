package services

import (
	"context"

	"mindwellAPI/internal/notification"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/workers"
)

// TaskHandlers bundles what the worker pool needs to run every task type.
type TaskHandlers struct {
	Achievements  *AchievementService
	Chat          *ChatService
	Notifications *NotificationService
}

func (h TaskHandlers) Register(pool *workers.Pool) {
	pool.Register(queue.TypeCheckAchievements, func(ctx context.Context, t queue.Task) error {
		var p queue.CheckAchievementsPayload
		if err := t.Decode(&p); err != nil {
			return err
		}
		_, err := h.Achievements.Evaluate(ctx, p.UserID)
		return err
	})

	pool.Register(queue.TypeGenerateAIResponse, func(ctx context.Context, t queue.Task) error {
		var p queue.GenerateAIResponsePayload
		if err := t.Decode(&p); err != nil {
			return err
		}
		return h.Chat.GenerateResponse(ctx, p.SessionID, p.MessageID)
	})

	pool.Register(queue.TypeNotifyLevelUp, func(ctx context.Context, t queue.Task) error {
		var p queue.NotifyLevelUpPayload
		if err := t.Decode(&p); err != nil {
			return err
		}
		return h.Notifications.NotifyLevelUp(ctx, p.UserID, p.Level)
	})

	pool.Register(queue.TypeNotifyAchievement, func(ctx context.Context, t queue.Task) error {
		var p queue.NotifyAchievementPayload
		if err := t.Decode(&p); err != nil {
			return err
		}
		return h.Notifications.NotifyAchievement(ctx, p.UserID, p.AchievementID)
	})

	pool.Register(queue.TypeSendEmail, func(ctx context.Context, t queue.Task) error {
		var p queue.SendEmailPayload
		if err := t.Decode(&p); err != nil {
			return err
		}
		return h.Notifications.SendEmail(ctx, notification.Email(p))
	})
}
