//go:build integration

package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkaContainer "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func TestKafkaQueueRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	kafkaC, err := kafkaContainer.RunContainer(ctx, testcontainers.WithEnv(map[string]string{
		"KAFKA_AUTO_CREATE_TOPICS_ENABLE": "true",
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = kafkaC.Terminate(context.Background()) })

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	conn, err := kafka.Dial("tcp", brokers[0])
	require.NoError(t, err)
	require.NoError(t, conn.CreateTopics(
		kafka.TopicConfig{Topic: "tasks", NumPartitions: 1, ReplicationFactor: 1},
		kafka.TopicConfig{Topic: "tasks.dead", NumPartitions: 1, ReplicationFactor: 1},
	))
	_ = conn.Close()

	q := NewKafka(KafkaConfig{Brokers: brokers, Topic: "tasks", GroupID: "queue-it"}, Options{MaxAttempts: 2, Backoff: 10 * time.Millisecond})
	t.Cleanup(func() { _ = q.Close() })

	require.NoError(t, Enqueue(ctx, q, TypeGenerateAIResponse, GenerateAIResponsePayload{SessionID: "s1", MessageID: "m1"}))

	d, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, TypeGenerateAIResponse, d.Type)
	assert.Equal(t, 1, d.Attempt)
	require.NoError(t, q.Retry(ctx, d, errors.New("provider down")))

	d, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Attempt)

	var p GenerateAIResponsePayload
	require.NoError(t, d.Decode(&p))
	assert.Equal(t, "m1", p.MessageID)
	require.NoError(t, q.Ack(ctx, d))
}
