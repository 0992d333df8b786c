package services

import (
	"context"
	"errors"
	"fmt"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/gamification"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
)

type AchievementService struct {
	store store.Store
	queue queue.Queue
	log   *logger.Logger
	clock Clock
}

func NewAchievementService(st store.Store, q queue.Queue, clock Clock, log *logger.Logger) *AchievementService {
	return &AchievementService{store: st, queue: q, clock: clock, log: orNop(log).With("service", "AchievementService")}
}

func (s *AchievementService) progressByID(ctx context.Context, userID string) (map[string]achievement.UserAchievement, error) {
	list, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	out := make(map[string]achievement.UserAchievement, len(list))
	for _, ua := range list {
		out[ua.AchievementID] = ua
	}
	return out, nil
}

func (s *AchievementService) List(ctx context.Context, userID string, f achievement.Filter) ([]achievement.WithStatus, error) {
	list, err := s.store.ListAchievements(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	byID, err := s.progressByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]achievement.WithStatus, 0, len(list))
	for i := range list {
		var ua *achievement.UserAchievement
		if v, ok := byID[list[i].ID]; ok {
			ua = &v
		}
		out = append(out, achievement.NewWithStatus(&list[i], ua))
	}
	return out, nil
}

func (s *AchievementService) Get(ctx context.Context, userID, id string) (*achievement.WithStatus, error) {
	a, err := s.store.GetAchievement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get achievement: %w", err)
	}
	byID, err := s.progressByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ua *achievement.UserAchievement
	if v, ok := byID[id]; ok {
		ua = &v
	}
	out := achievement.NewWithStatus(a, ua)
	return &out, nil
}

func (s *AchievementService) metrics(ctx context.Context, userID string) (gamification.Metrics, error) {
	var m gamification.Metrics
	var err error
	if m.MeditationCount, err = s.store.CountCompletions(ctx, userID, exercise.TypeMeditation); err != nil {
		return m, fmt.Errorf("failed to count meditation completions: %w", err)
	}
	if m.JournalingCount, err = s.store.CountCompletions(ctx, userID, exercise.TypeJournaling); err != nil {
		return m, fmt.Errorf("failed to count journaling completions: %w", err)
	}
	if m.TotalCompleted, err = s.store.CountCompletions(ctx, userID, ""); err != nil {
		return m, fmt.Errorf("failed to count completions: %w", err)
	}
	stats, err := s.store.GetProgressStats(ctx, userID)
	switch {
	case err == nil:
		m.CurrentStreak = stats.CurrentStreak
	case !errors.Is(err, store.ErrNotFound):
		return m, fmt.Errorf("failed to get progress stats: %w", err)
	}
	return m, nil
}

// Evaluate refreshes the user's achievement progress and unlocks whatever is
// newly reached. Running it again for the same state unlocks nothing.
func (s *AchievementService) Evaluate(ctx context.Context, userID string) ([]achievement.Achievement, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	m, err := s.metrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.Level = u.Level

	all, err := s.store.ListAchievements(ctx, achievement.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	byCategory := make(map[achievement.Category][]achievement.Achievement)
	for _, a := range all {
		byCategory[a.Category] = append(byCategory[a.Category], a)
	}

	var unlocked []achievement.Achievement
	for _, cat := range achievement.Categories {
		for _, a := range byCategory[cat] {
			value := m.ValueFor(cat)
			if err := s.store.SetAchievementProgress(ctx, userID, a.ID, value); err != nil {
				return unlocked, fmt.Errorf("failed to save progress for %s: %w", a.ID, err)
			}
			if !gamification.Reached(&a, value) {
				continue
			}

			ok, level, leveledUp, err := s.unlock(ctx, userID, &a)
			if err != nil {
				return unlocked, err
			}
			if !ok {
				continue
			}
			// Later categories see the level after this award.
			m.Level = level
			unlocked = append(unlocked, a)
			s.log.Info("achievement unlocked", "user_id", userID, "achievement_id", a.ID, "points", a.Points)

			enqueue(ctx, s.queue, s.log, queue.TypeNotifyAchievement, queue.NotifyAchievementPayload{UserID: userID, AchievementID: a.ID})
			if leveledUp {
				enqueue(ctx, s.queue, s.log, queue.TypeNotifyLevelUp, queue.NotifyLevelUpPayload{UserID: userID, Level: level})
			}
		}
	}
	return unlocked, nil
}

// unlock sets unlocked_at and awards the points in one transaction. The
// award only happens when this call is the one that set unlocked_at.
func (s *AchievementService) unlock(ctx context.Context, userID string, a *achievement.Achievement) (ok bool, level int, leveledUp bool, err error) {
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		changed, err := q.UnlockAchievement(ctx, userID, a.ID, s.clock.now().UTC())
		if err != nil {
			return fmt.Errorf("failed to unlock %s: %w", a.ID, err)
		}
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		level = u.Level
		if !changed {
			return nil
		}
		ok = true
		if leveledUp, err = gamification.Award(u, a.Points); err != nil {
			return err
		}
		level = u.Level
		return q.UpdateUser(ctx, u)
	})
	return ok, level, leveledUp, err
}
