package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/store/memory"
	"mindwellAPI/internal/user"
)

type fixture struct {
	store *memory.Store
	queue *queue.Memory
	now   time.Time
	clock Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	require.NoError(t, store.Seed(context.Background(), st))
	q := queue.NewMemory(queue.Options{})
	t.Cleanup(func() { _ = q.Close() })

	f := &fixture{store: st, queue: q, now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	f.clock = Clock{Loc: time.UTC, Now: func() time.Time { return f.now }}
	return f
}

func (f *fixture) advanceDays(n int) {
	f.now = f.now.AddDate(0, 0, n)
}

func (f *fixture) newUser(t *testing.T, name string) *user.User {
	t.Helper()
	ctx := context.Background()
	u := &user.User{Username: name, Email: name + "@example.com", Level: 1}
	require.NoError(t, f.store.CreateUser(ctx, u))
	require.NoError(t, f.store.SaveProgressStats(ctx, progress.NewStats(u.ID)))
	return u
}

// drain acks and returns every queued task.
func (f *fixture) drain(t *testing.T) []queue.Task {
	t.Helper()
	var out []queue.Task
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		d, err := f.queue.Dequeue(ctx)
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return out
		}
		require.NoError(t, err)
		require.NoError(t, f.queue.Ack(context.Background(), d))
		out = append(out, d.Task)
	}
}

func taskTypes(tasks []queue.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Type)
	}
	return out
}

func seedExerciseID(title string) string {
	return store.SeedID("exercise", title)
}
