//go:build integration

package bus

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/realtime"
)

func TestRedisBusRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer rdb.Close()

	b, err := NewRedisBus(rdb, "test:realtime", logger.Nop())
	require.NoError(t, err)

	received := make(chan realtime.Envelope, 1)
	require.NoError(t, b.StartForwarder(ctx, func(env realtime.Envelope) { received <- env }))

	env, err := realtime.NewEnvelope(realtime.ChatRoom("s1"), map[string]string{"type": "message"})
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, env))

	select {
	case got := <-received:
		assert.Equal(t, "chat_s1", got.Room)
		assert.JSONEq(t, `{"type":"message"}`, string(got.Payload))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for redis message")
	}
}
