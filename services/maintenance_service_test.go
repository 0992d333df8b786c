package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/queue"
)

type reminderRecorder struct {
	users []string
}

func (r *reminderRecorder) NotifyStreakReminder(ctx context.Context, userID string, streak int) error {
	r.users = append(r.users, userID)
	return nil
}

func (f *fixture) setStreak(t *testing.T, userID string, streak int, last time.Time) {
	t.Helper()
	ctx := context.Background()
	stats, err := f.store.GetProgressStats(ctx, userID)
	require.NoError(t, err)
	stats.CurrentStreak, stats.LongestStreak = streak, streak
	stats.LastActivityDate = &last
	require.NoError(t, f.store.SaveProgressStats(ctx, stats))
	u, err := f.store.GetUserByID(ctx, userID)
	require.NoError(t, err)
	u.StreakDays = streak
	require.NoError(t, f.store.UpdateUser(ctx, u))
}

func TestDecayStreaks(t *testing.T) {
	f := newFixture(t)
	ex := NewExerciseService(f.store, f.queue, f.clock, nil)
	s := NewMaintenanceService(f.store, f.queue, ex, nil, f.clock, nil)
	ctx := context.Background()
	today := f.clock.Today()

	idle := f.newUser(t, "idle")
	f.setStreak(t, idle.ID, 5, today.AddDate(0, 0, -2))

	yesterday := f.newUser(t, "yesterday")
	f.advanceDays(-1)
	_, err := ex.Complete(ctx, yesterday.ID, seedExerciseID("Gratitude Journal"), &exercise.CompleteRequest{})
	require.NoError(t, err)
	f.advanceDays(1)

	active := f.newUser(t, "today")
	f.setStreak(t, active.ID, 2, today)

	sum, err := s.DecayStreaks(ctx)
	require.NoError(t, err)
	assert.Equal(t, DecaySummary{Scanned: 3, Reset: 1, Failed: 0}, sum)

	stats, err := f.store.GetProgressStats(ctx, idle.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak)
	assert.Equal(t, 5, stats.LongestStreak)
	u, err := f.store.GetUserByID(ctx, idle.ID)
	require.NoError(t, err)
	assert.Zero(t, u.StreakDays)

	stats, err = f.store.GetProgressStats(ctx, yesterday.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CurrentStreak)

	stats, err = f.store.GetProgressStats(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.CurrentStreak)
}

func TestDecayStreaksContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ex := NewExerciseService(f.store, f.queue, f.clock, nil)
	s := NewMaintenanceService(f.store, f.queue, ex, nil, f.clock, nil)
	ctx := context.Background()
	today := f.clock.Today()

	// Stats row without a user: the reset tx fails on the user lookup.
	orphan := progress.NewStats("ghost-user")
	last := today.AddDate(0, 0, -3)
	orphan.CurrentStreak, orphan.LongestStreak = 4, 4
	orphan.LastActivityDate = &last
	require.NoError(t, f.store.SaveProgressStats(ctx, orphan))

	idle := f.newUser(t, "idle")
	f.setStreak(t, idle.ID, 5, today.AddDate(0, 0, -2))

	sum, err := s.DecayStreaks(ctx)
	require.NoError(t, err)
	assert.Equal(t, DecaySummary{Scanned: 2, Reset: 1, Failed: 1}, sum)

	stats, err := f.store.GetProgressStats(ctx, idle.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.CurrentStreak)
	u, err := f.store.GetUserByID(ctx, idle.ID)
	require.NoError(t, err)
	assert.Zero(t, u.StreakDays)

	stats, err = f.store.GetProgressStats(ctx, "ghost-user")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.CurrentStreak, "failed reset rolls back")
}

func TestSendStreakReminders(t *testing.T) {
	f := newFixture(t)
	ex := NewExerciseService(f.store, f.queue, f.clock, nil)
	rec := &reminderRecorder{}
	s := NewMaintenanceService(f.store, f.queue, ex, rec, f.clock, nil)
	ctx := context.Background()
	today := f.clock.Today()

	pending := f.newUser(t, "pending")
	f.setStreak(t, pending.ID, 3, today.AddDate(0, 0, -1))
	short := f.newUser(t, "short")
	f.setStreak(t, short.ID, 1, today.AddDate(0, 0, -1))
	done := f.newUser(t, "done")
	f.setStreak(t, done.ID, 4, today.AddDate(0, 0, -1))
	_, err := ex.Complete(ctx, done.ID, seedExerciseID("Gratitude Journal"), &exercise.CompleteRequest{})
	require.NoError(t, err)
	f.drain(t)

	n, err := s.SendStreakReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{pending.ID}, rec.users)

	tasks := f.drain(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, queue.TypeSendEmail, tasks[0].Type)
	var mail queue.SendEmailPayload
	require.NoError(t, tasks[0].Decode(&mail))
	assert.Equal(t, "pending@example.com", mail.To)
	assert.Contains(t, mail.Subject, "3-day streak")
}

func TestEnsureDailyPrompt(t *testing.T) {
	f := newFixture(t)
	ex := NewExerciseService(f.store, f.queue, f.clock, nil)
	s := NewMaintenanceService(f.store, f.queue, ex, nil, f.clock, nil)
	ctx := context.Background()

	require.NoError(t, s.EnsureDailyPrompt(ctx))
	require.NoError(t, s.EnsureDailyPrompt(ctx))
	list, err := ex.ListDailyPrompts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
