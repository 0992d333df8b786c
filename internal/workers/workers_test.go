package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/queue"
)

func startPool(t *testing.T, q queue.Queue, register func(p *Pool)) {
	t.Helper()
	p := NewPool(q, 2, logger.Nop())
	register(p)
	p.Start(context.Background())
	t.Cleanup(p.Stop)
}

func TestPoolAcksSuccessfulTasks(t *testing.T) {
	q := queue.NewMemory(queue.Options{})
	defer q.Close()

	var got atomic.Value
	startPool(t, q, func(p *Pool) {
		p.Register(queue.TypeCheckAchievements, func(ctx context.Context, task queue.Task) error {
			var payload queue.CheckAchievementsPayload
			if err := task.Decode(&payload); err != nil {
				return err
			}
			got.Store(payload.UserID)
			return nil
		})
	})

	require.NoError(t, queue.Enqueue(context.Background(), q, queue.TypeCheckAchievements, queue.CheckAchievementsPayload{UserID: "u1"}))
	require.Eventually(t, func() bool { return q.Len() == 0 && got.Load() != nil }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "u1", got.Load())
}

func TestPoolRetriesFailuresUntilDeadLetter(t *testing.T) {
	q := queue.NewMemory(queue.Options{MaxAttempts: 3, Backoff: time.Millisecond})
	defer q.Close()

	var calls atomic.Int32
	startPool(t, q, func(p *Pool) {
		p.Register(queue.TypeSendEmail, func(ctx context.Context, task queue.Task) error {
			calls.Add(1)
			return errors.New("smtp down")
		})
	})

	require.NoError(t, queue.Enqueue(context.Background(), q, queue.TypeSendEmail, queue.SendEmailPayload{To: "a@example.com"}))
	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPoolRecoversPanics(t *testing.T) {
	q := queue.NewMemory(queue.Options{MaxAttempts: 2, Backoff: time.Millisecond})
	defer q.Close()

	var calls atomic.Int32
	startPool(t, q, func(p *Pool) {
		p.Register(queue.TypeNotifyLevelUp, func(ctx context.Context, task queue.Task) error {
			if calls.Add(1) == 1 {
				panic("nil map")
			}
			return nil
		})
	})

	require.NoError(t, queue.Enqueue(context.Background(), q, queue.TypeNotifyLevelUp, queue.NotifyLevelUpPayload{UserID: "u1", Level: 2}))
	require.Eventually(t, func() bool { return calls.Load() == 2 && q.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, q.DeadLetters())
}

func TestPoolDeadLettersUnknownTypesAtOnce(t *testing.T) {
	q := queue.NewMemory(queue.Options{MaxAttempts: 3, Backoff: time.Second})
	defer q.Close()
	startPool(t, q, func(p *Pool) {})

	require.NoError(t, queue.Enqueue(context.Background(), q, "mystery", struct{}{}))
	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 500*time.Millisecond, 5*time.Millisecond)

	dead := q.DeadLetters()
	assert.Equal(t, 1, dead[0].Attempt)
	assert.Equal(t, 0, q.Len())
}

func TestPoolDeadLettersUndecodablePayloads(t *testing.T) {
	q := queue.NewMemory(queue.Options{MaxAttempts: 3, Backoff: time.Second})
	defer q.Close()

	var calls atomic.Int32
	startPool(t, q, func(p *Pool) {
		p.Register(queue.TypeCheckAchievements, func(ctx context.Context, task queue.Task) error {
			calls.Add(1)
			var payload queue.CheckAchievementsPayload
			return task.Decode(&payload)
		})
	})

	task := queue.Task{ID: "t1", Type: queue.TypeCheckAchievements, Payload: []byte(`[1,2]`), Attempt: 1}
	require.NoError(t, q.Enqueue(context.Background(), task))
	require.Eventually(t, func() bool { return len(q.DeadLetters()) == 1 }, 500*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNextRun(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Sofia")
	require.NoError(t, err)

	now := time.Date(2024, 3, 10, 17, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 10, 18, 0, 0, 0, loc), NextRun(now, 18, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 5, 0, 0, loc), NextRun(now, 0, 5, loc))

	exact := time.Date(2024, 3, 10, 18, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2024, 3, 11, 18, 0, 0, 0, loc), NextRun(exact, 18, 0, loc))
}

func TestSchedulerDailyAndRunNow(t *testing.T) {
	s := NewScheduler(time.UTC, logger.Nop())
	assert.Error(t, s.Daily("bad", "25:99", func(context.Context) error { return nil }))

	ran := 0
	require.NoError(t, s.Daily("update_streaks", "00:05", func(context.Context) error {
		ran++
		return nil
	}))
	assert.True(t, s.RunNow(context.Background(), "update_streaks"))
	assert.False(t, s.RunNow(context.Background(), "missing"))
	assert.Equal(t, 1, ran)
}

func TestSchedulerStopsWithContext(t *testing.T) {
	s := NewScheduler(time.UTC, logger.Nop())
	require.NoError(t, s.Daily("noop", "03:00", func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
