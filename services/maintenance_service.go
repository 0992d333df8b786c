package services

import (
	"context"
	"fmt"
	"time"

	"mindwellAPI/internal/gamification"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
)

type DecaySummary struct {
	Scanned int `json:"scanned"`
	Reset   int `json:"reset"`
	Failed  int `json:"failed"`
}

type streakReminder interface {
	NotifyStreakReminder(ctx context.Context, userID string, streak int) error
}

// MaintenanceService holds the daily scheduled jobs.
type MaintenanceService struct {
	store     store.Store
	queue     queue.Queue
	exercises *ExerciseService
	reminders streakReminder
	log       *logger.Logger
	clock     Clock
}

func NewMaintenanceService(st store.Store, q queue.Queue, exercises *ExerciseService, reminders streakReminder, clock Clock, log *logger.Logger) *MaintenanceService {
	return &MaintenanceService{
		store:     st,
		queue:     q,
		exercises: exercises,
		reminders: reminders,
		clock:     clock,
		log:       orNop(log).With("service", "MaintenanceService"),
	}
}

func (s *MaintenanceService) completedBetween(ctx context.Context, userID string, day time.Time) (bool, error) {
	from, to := s.clock.DayBounds(day)
	done, err := s.store.CompletionsBetween(ctx, userID, "", from, to)
	if err != nil {
		return false, fmt.Errorf("failed to get completions: %w", err)
	}
	return len(done) > 0, nil
}

// DecayStreaks resets the streak of every user who missed yesterday.
// A failing user is counted and skipped.
func (s *MaintenanceService) DecayStreaks(ctx context.Context) (DecaySummary, error) {
	var sum DecaySummary
	active, err := s.store.ListActiveStreaks(ctx, 1)
	if err != nil {
		return sum, fmt.Errorf("failed to list active streaks: %w", err)
	}
	today := s.clock.Today()
	yesterday := today.AddDate(0, 0, -1)

	for i := range active {
		sum.Scanned++
		reset, err := s.decayOne(ctx, &active[i], today, yesterday)
		if err != nil {
			sum.Failed++
			s.log.Error("streak decay failed", "user_id", active[i].UserID, "error", err)
			continue
		}
		if reset {
			sum.Reset++
		}
	}
	s.log.Info("streak decay done", "scanned", sum.Scanned, "reset", sum.Reset, "failed", sum.Failed)
	return sum, nil
}

func (s *MaintenanceService) decayOne(ctx context.Context, stats *progress.Stats, today, yesterday time.Time) (bool, error) {
	activeYesterday, err := s.completedBetween(ctx, stats.UserID, yesterday)
	if err != nil {
		return false, err
	}
	if !gamification.ShouldDecay(stats, today, activeYesterday) {
		return false, nil
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		current, err := q.GetProgressStats(ctx, stats.UserID)
		if err != nil {
			return fmt.Errorf("failed to get progress stats: %w", err)
		}
		current.CurrentStreak = 0
		current.UpdatedAt = s.clock.now().UTC()
		if err := q.SaveProgressStats(ctx, current); err != nil {
			return fmt.Errorf("failed to save progress stats: %w", err)
		}
		u, err := q.GetUserByID(ctx, stats.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		u.StreakDays = 0
		return q.UpdateUser(ctx, u)
	})
	return err == nil, err
}

// SendStreakReminders nudges users with a streak above one who have not
// completed anything today. It returns how many were reminded.
func (s *MaintenanceService) SendStreakReminders(ctx context.Context) (int, error) {
	active, err := s.store.ListActiveStreaks(ctx, 2)
	if err != nil {
		return 0, fmt.Errorf("failed to list active streaks: %w", err)
	}
	today := s.clock.Today()

	sent := 0
	for _, st := range active {
		done, err := s.completedBetween(ctx, st.UserID, today)
		if err != nil {
			s.log.Error("reminder check failed", "user_id", st.UserID, "error", err)
			continue
		}
		if done {
			continue
		}
		u, err := s.store.GetUserByID(ctx, st.UserID)
		if err != nil {
			s.log.Error("reminder user lookup failed", "user_id", st.UserID, "error", err)
			continue
		}

		enqueue(ctx, s.queue, s.log, queue.TypeSendEmail, queue.SendEmailPayload(streakReminderEmail(u, st.CurrentStreak)))
		if s.reminders != nil {
			if err := s.reminders.NotifyStreakReminder(ctx, u.ID, st.CurrentStreak); err != nil {
				s.log.Warn("reminder push failed", "user_id", u.ID, "error", err)
			}
		}
		sent++
	}
	s.log.Info("streak reminders sent", "count", sent)
	return sent, nil
}

func (s *MaintenanceService) EnsureDailyPrompt(ctx context.Context) error {
	p, err := s.exercises.TodayPrompt(ctx)
	if err != nil {
		return err
	}
	s.log.Info("daily prompt ready", "prompt_type", p.Type, "date", p.Date.Format(time.DateOnly))
	return nil
}
