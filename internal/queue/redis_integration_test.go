//go:build integration

package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestRedisQueueRetryAndDeadLetter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rdb := startRedis(ctx, t)
	q := NewRedis(rdb, "test:tasks", Options{MaxAttempts: 2, Backoff: 50 * time.Millisecond})

	require.NoError(t, Enqueue(ctx, q, TypeCheckAchievements, CheckAchievementsPayload{UserID: "u1"}))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Attempt)

	n, err := rdb.LLen(ctx, "test:tasks:processing").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, q.Retry(ctx, d, errors.New("boom")))

	d, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Attempt)
	require.NoError(t, q.Retry(ctx, d, errors.New("boom")))

	dead, err := q.DeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, d.ID, dead[0].ID)

	n, err = rdb.LLen(ctx, "test:tasks:processing").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisQueueAck(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	rdb := startRedis(ctx, t)
	q := NewRedis(rdb, "ack:tasks", Options{})

	require.NoError(t, Enqueue(ctx, q, TypeSendEmail, SendEmailPayload{To: "a@example.com"}))
	d, err := q.Dequeue(ctx)
	require.NoError(t, err)

	var p SendEmailPayload
	require.NoError(t, d.Decode(&p))
	assert.Equal(t, "a@example.com", p.To)

	require.NoError(t, q.Ack(ctx, d))
	n, err := rdb.LLen(ctx, "ack:tasks:processing").Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
