package services

import (
	"context"
	"errors"
	"fmt"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/store"
)

const weekDays = 7

type ProgressService struct {
	store store.Store
	log   *logger.Logger
	clock Clock
}

func NewProgressService(st store.Store, clock Clock, log *logger.Logger) *ProgressService {
	return &ProgressService{store: st, clock: clock, log: orNop(log).With("service", "ProgressService")}
}

// Get returns the progress stats plus the last seven days of activity,
// oldest first, with missing days filled in as zero.
func (s *ProgressService) Get(ctx context.Context, userID string) (*progress.Response, error) {
	u, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	stats, err := s.store.GetProgressStats(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		stats, err = progress.NewStats(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress stats: %w", err)
	}

	today := s.clock.Today()
	from := today.AddDate(0, 0, -(weekDays - 1))
	activity, err := s.store.ListWeeklyActivity(ctx, userID, from, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly activity: %w", err)
	}
	counts := make(map[int64]int, len(activity))
	for _, a := range activity {
		counts[a.Date.Unix()] = a.Count
	}
	week := make([]progress.WeeklyActivity, 0, weekDays)
	for d := from; !d.After(today); d = d.AddDate(0, 0, 1) {
		week = append(week, progress.WeeklyActivity{UserID: userID, Date: d, Count: counts[d.Unix()]})
	}

	achievements, err := s.store.ListUserAchievements(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	unlocked := 0
	for _, ua := range achievements {
		if ua.UnlockedAt != nil {
			unlocked++
		}
	}

	return &progress.Response{
		Stats:                stats,
		Level:                u.Level,
		Points:               u.Points,
		NextLevelPoints:      u.NextLevelPoints(),
		AchievementsUnlocked: unlocked,
		WeeklyActivity:       week,
	}, nil
}
