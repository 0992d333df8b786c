package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/gamification"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/validation"
)

type ExerciseService struct {
	store store.Store
	queue queue.Queue
	log   *logger.Logger
	clock Clock
}

func NewExerciseService(st store.Store, q queue.Queue, clock Clock, log *logger.Logger) *ExerciseService {
	return &ExerciseService{store: st, queue: q, clock: clock, log: orNop(log).With("service", "ExerciseService")}
}

// completedToday maps exercise id to the caller's completion time today.
func (s *ExerciseService) completedToday(ctx context.Context, userID string) (map[string]exercise.CompletedExercise, error) {
	from, to := s.clock.DayBounds(s.clock.Today())
	done, err := s.store.CompletionsBetween(ctx, userID, "", from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get today's completions: %w", err)
	}
	out := make(map[string]exercise.CompletedExercise, len(done))
	for _, c := range done {
		if _, ok := out[c.ExerciseID]; !ok {
			out[c.ExerciseID] = c
		}
	}
	return out, nil
}

func withStatus(e *exercise.Exercise, done map[string]exercise.CompletedExercise) exercise.WithStatus {
	out := exercise.WithStatus{Exercise: e}
	if c, ok := done[e.ID]; ok {
		at := c.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

func (s *ExerciseService) ListExercises(ctx context.Context, userID string, f exercise.Filter) ([]exercise.WithStatus, error) {
	list, err := s.store.ListExercises(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	done, err := s.completedToday(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]exercise.WithStatus, 0, len(list))
	for i := range list {
		out = append(out, withStatus(&list[i], done))
	}
	return out, nil
}

func (s *ExerciseService) GetExercise(ctx context.Context, userID, id string) (*exercise.WithStatus, error) {
	e, err := s.store.GetExercise(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise: %w", err)
	}
	done, err := s.completedToday(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := withStatus(e, done)
	return &out, nil
}

// Complete records a completion and everything it implies in one transaction:
// points, level, progress stats, the legacy streak mirror and weekly activity.
func (s *ExerciseService) Complete(ctx context.Context, userID, exerciseID string, req *exercise.CompleteRequest) (*exercise.CompleteResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	now := s.clock.now().UTC()
	today := s.clock.Today()
	from, to := s.clock.DayBounds(today)

	var (
		resp      *exercise.CompleteResponse
		leveledUp bool
	)
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		ex, err := q.GetExercise(ctx, exerciseID)
		if err != nil {
			return fmt.Errorf("failed to get exercise: %w", err)
		}
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		already, err := q.CompletionsBetween(ctx, userID, exerciseID, from, to)
		if err != nil {
			return fmt.Errorf("failed to check completions: %w", err)
		}
		if len(already) > 0 {
			return ErrDuplicateCompletion
		}

		c := &exercise.CompletedExercise{
			ID:          uuid.New().String(),
			UserID:      userID,
			ExerciseID:  exerciseID,
			CompletedAt: now,
			Notes:       req.Notes,
		}
		if err := q.CreateCompletion(ctx, c); err != nil {
			return fmt.Errorf("failed to record completion: %w", err)
		}
		c.Exercise = ex

		if leveledUp, err = gamification.Award(u, ex.Points); err != nil {
			return err
		}

		stats, err := q.GetProgressStats(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			stats, err = progress.NewStats(userID), nil
		}
		if err != nil {
			return fmt.Errorf("failed to get progress stats: %w", err)
		}
		gamification.RecordActivity(stats, today)
		if err := q.SaveProgressStats(ctx, stats); err != nil {
			return fmt.Errorf("failed to save progress stats: %w", err)
		}

		u.StreakDays = stats.CurrentStreak
		if err := q.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if err := q.IncrementWeeklyActivity(ctx, userID, today); err != nil {
			return fmt.Errorf("failed to update weekly activity: %w", err)
		}

		resp = &exercise.CompleteResponse{
			Detail:       fmt.Sprintf("Exercise %q completed", ex.Title),
			PointsEarned: ex.Points,
			NewLevel:     u.Level,
			Completion:   c,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	enqueue(ctx, s.queue, s.log, queue.TypeCheckAchievements, queue.CheckAchievementsPayload{UserID: userID})
	if leveledUp {
		enqueue(ctx, s.queue, s.log, queue.TypeNotifyLevelUp, queue.NotifyLevelUpPayload{UserID: userID, Level: resp.NewLevel})
	}
	return resp, nil
}

func (s *ExerciseService) ListCompletions(ctx context.Context, userID string) ([]exercise.CompletedExercise, error) {
	list, err := s.store.ListCompletions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	return list, nil
}

func (s *ExerciseService) ListDailyPrompts(ctx context.Context, limit int) ([]exercise.DailyPrompt, error) {
	list, err := s.store.ListDailyPrompts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily prompts: %w", err)
	}
	return list, nil
}

// TodayPrompt returns today's prompt and creates it when missing.
func (s *ExerciseService) TodayPrompt(ctx context.Context) (*exercise.DailyPrompt, error) {
	today := s.clock.Today()
	p, err := s.store.GetDailyPromptByDate(ctx, today)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to get daily prompt: %w", err)
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		last, err := q.LatestDailyPrompt(ctx)
		if errors.Is(err, store.ErrNotFound) {
			last, err = nil, nil
		}
		if err != nil {
			return fmt.Errorf("failed to get latest prompt: %w", err)
		}
		t := exercise.NextPromptType(last)
		used, err := q.CountDailyPrompts(ctx, t)
		if err != nil {
			return fmt.Errorf("failed to count prompts: %w", err)
		}
		p = &exercise.DailyPrompt{
			ID:      uuid.New().String(),
			Date:    today,
			Type:    t,
			Content: exercise.PromptContent(t, used),
		}
		return q.CreateDailyPrompt(ctx, p)
	})
	if errors.Is(err, store.ErrConflict) {
		// Another request created it first.
		return s.store.GetDailyPromptByDate(ctx, today)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create daily prompt: %w", err)
	}
	s.log.Info("daily prompt created", "date", today.Format("2006-01-02"), "type", p.Type)
	return p, nil
}
