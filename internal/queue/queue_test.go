package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskRoundTrip(t *testing.T) {
	task, err := NewTask(TypeCheckAchievements, CheckAchievementsPayload{UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, 1, task.Attempt)

	var p CheckAchievementsPayload
	require.NoError(t, task.Decode(&p))
	assert.Equal(t, "u1", p.UserID)
}

func TestOptionsNextLinearBackoff(t *testing.T) {
	opts := Options{MaxAttempts: 3, Backoff: time.Second}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	next, dead := opts.next(Task{Attempt: 1}, nil, now)
	assert.False(t, dead)
	assert.Equal(t, 2, next.Attempt)
	assert.Equal(t, now.Add(time.Second), next.NotBefore)

	next, dead = opts.next(next, nil, now)
	assert.False(t, dead)
	assert.Equal(t, 3, next.Attempt)
	assert.Equal(t, now.Add(2*time.Second), next.NotBefore)

	_, dead = opts.next(next, nil, now)
	assert.True(t, dead)
}

func TestOptionsNextDeadLettersPermanentFailures(t *testing.T) {
	opts := Options{MaxAttempts: 5, Backoff: time.Second}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cause := Permanent(errors.New("unknown type"))
	_, dead := opts.next(Task{Attempt: 1}, cause, now)
	assert.True(t, dead)

	_, dead = opts.next(Task{Attempt: 1}, fmt.Errorf("handler: %w", cause), now)
	assert.True(t, dead, "wrapping keeps the mark")

	_, dead = opts.next(Task{Attempt: 1}, errors.New("timeout"), now)
	assert.False(t, dead)
}

func TestDecodeFailureIsPermanent(t *testing.T) {
	task := Task{Type: TypeSendEmail, Payload: []byte(`"not an object"`)}
	var p SendEmailPayload
	err := task.Decode(&p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.Contains(t, err.Error(), "failed to decode send_email payload")
}

func TestMemoryRetryDeadLettersPermanentAtOnce(t *testing.T) {
	q := NewMemory(Options{MaxAttempts: 3, Backoff: time.Millisecond})
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, Enqueue(ctx, q, TypeCheckAchievements, CheckAchievementsPayload{UserID: "u1"}))
	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NoError(t, q.Retry(ctx, d, Permanent(errors.New("bad payload"))))

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, 1, dead[0].Attempt)
	assert.Equal(t, 0, q.Len())
}

func TestMemoryEnqueueDequeueAck(t *testing.T) {
	q := NewMemory(Options{})
	defer q.Close()
	ctx := context.Background()

	require.NoError(t, Enqueue(ctx, q, TypeSendEmail, SendEmailPayload{To: "a@example.com"}))
	require.Equal(t, 1, q.Len())

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSendEmail, d.Type)
	assert.Equal(t, 1, q.Len(), "in-flight tasks still count")

	require.NoError(t, q.Ack(ctx, d))
	assert.Equal(t, 0, q.Len())
}

func TestMemoryDequeueHonoursContext(t *testing.T) {
	q := NewMemory(Options{})
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMemoryRetryThenDeadLetter(t *testing.T) {
	q := NewMemory(Options{MaxAttempts: 3, Backoff: time.Millisecond})
	defer q.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, Enqueue(ctx, q, TypeCheckAchievements, CheckAchievementsPayload{UserID: "u1"}))

	attempts := []int{}
	for i := 0; i < 3; i++ {
		d, err := q.Dequeue(ctx)
		require.NoError(t, err)
		attempts = append(attempts, d.Attempt)
		require.NoError(t, q.Retry(ctx, d, errors.New("boom")))
	}
	assert.Equal(t, []int{1, 2, 3}, attempts)

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, 3, dead[0].Attempt)
	assert.Equal(t, 0, q.Len())
}

func TestMemoryClose(t *testing.T) {
	q := NewMemory(Options{})
	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return after close")
	}
	assert.ErrorIs(t, q.Enqueue(context.Background(), Task{}), ErrClosed)
}

type fakeKafka struct {
	mu        sync.Mutex
	messages  chan kafka.Message
	committed []kafka.Message
	written   []kafka.Message
}

func newFakeKafka() *fakeKafka {
	return &fakeKafka{messages: make(chan kafka.Message, 16)}
}

func (f *fakeKafka) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-f.messages:
		return m, nil
	}
}

func (f *fakeKafka) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeKafka) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	f.written = append(f.written, msgs...)
	f.mu.Unlock()
	for _, m := range msgs {
		f.messages <- m
	}
	return nil
}

func (f *fakeKafka) Close() error { return nil }

type sink struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (s *sink) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func (s *sink) Close() error { return nil }

func TestKafkaRetryRepublishesAndCommits(t *testing.T) {
	broker := newFakeKafka()
	dead := &sink{}
	q := NewKafkaWith("tasks", broker, broker, dead, Options{MaxAttempts: 2, Backoff: time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, Enqueue(ctx, q, TypeNotifyLevelUp, NotifyLevelUpPayload{UserID: "u1", Level: 2}))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Attempt)
	require.NoError(t, q.Retry(ctx, d, errors.New("push down")))

	d, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Attempt)
	require.NoError(t, q.Retry(ctx, d, errors.New("push down")))

	require.Len(t, dead.msgs, 1)
	assert.Equal(t, "push down", string(dead.msgs[0].Headers[len(dead.msgs[0].Headers)-1].Value))
	assert.Len(t, broker.committed, 2)
}

func TestKafkaDeadLettersUnreadableMessages(t *testing.T) {
	broker := newFakeKafka()
	dead := &sink{}
	q := NewKafkaWith("tasks", broker, broker, dead, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	broker.messages <- kafka.Message{Value: []byte("not json")}
	require.NoError(t, Enqueue(ctx, q, TypeSendEmail, SendEmailPayload{To: "a@example.com"}))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeSendEmail, d.Type)
	require.NoError(t, q.Ack(ctx, d))

	assert.Len(t, dead.msgs, 1)
	assert.Len(t, broker.committed, 2)
}
