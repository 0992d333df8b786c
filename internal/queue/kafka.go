package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
)

// Reader describes the kafka.Reader functions the queue uses.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Writer describes the kafka.Writer functions the queue uses.
type Writer interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Kafka publishes tasks to one topic and consumes them with a consumer group.
// A retry is a re-publish with Attempt+1 followed by a commit of the original.
type Kafka struct {
	opts   Options
	topic  string
	reader Reader
	writer Writer
	dead   Writer
}

var _ Queue = (*Kafka)(nil)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

func NewKafka(cfg KafkaConfig, opts Options) *Kafka {
	if cfg.Topic == "" {
		cfg.Topic = "mindwell.tasks"
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "mindwell-workers"
	}
	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		}
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
	})
	return NewKafkaWith(cfg.Topic, reader, newWriter(cfg.Topic), newWriter(cfg.Topic+".dead"), opts)
}

// NewKafkaWith wires the queue on caller-supplied reader and writers.
func NewKafkaWith(topic string, reader Reader, writer, dead Writer, opts Options) *Kafka {
	return &Kafka{opts: opts.withDefaults(), topic: topic, reader: reader, writer: writer, dead: dead}
}

func encodeMessage(t Task) (kafka.Message, error) {
	value, err := json.Marshal(t)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode task: %w", err)
	}
	return kafka.Message{
		Key:     []byte(t.ID),
		Value:   value,
		Headers: []kafka.Header{{Key: "task_type", Value: []byte(t.Type)}},
	}, nil
}

func (k *Kafka) Enqueue(ctx context.Context, t Task) error {
	msg, err := encodeMessage(t)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	recordEnqueued("kafka", t.Type)
	return nil
}

// Dequeue also waits out the NotBefore of retried tasks, which pauses the
// partition for that long.
func (k *Kafka) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, io.EOF) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("failed to fetch task: %w", err)
		}

		var t Task
		if err := json.Unmarshal(msg.Value, &t); err != nil {
			_ = k.dead.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value})
			_ = k.reader.CommitMessages(ctx, msg)
			recordDeadLetter("kafka", "unknown")
			continue
		}
		if err := WaitReady(ctx, t); err != nil {
			return nil, err
		}
		return &Delivery{Task: t, raw: msg}, nil
	}
}

func (k *Kafka) commit(ctx context.Context, d *Delivery) error {
	msg, ok := d.raw.(kafka.Message)
	if !ok {
		return fmt.Errorf("delivery %s is not a kafka message", d.ID)
	}
	if err := k.reader.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to commit task %s: %w", d.ID, err)
	}
	return nil
}

func (k *Kafka) Ack(ctx context.Context, d *Delivery) error {
	return k.commit(ctx, d)
}

func (k *Kafka) Retry(ctx context.Context, d *Delivery, cause error) error {
	next, dead := k.opts.next(d.Task, cause, time.Now())
	msg, err := encodeMessage(next)
	if err != nil {
		return err
	}
	if dead {
		if cause != nil {
			msg.Headers = append(msg.Headers, kafka.Header{Key: "error", Value: []byte(cause.Error())})
		}
		if err := k.dead.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to dead-letter task %s: %w", d.ID, err)
		}
		recordDeadLetter("kafka", next.Type)
	} else {
		if err := k.writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("failed to republish task %s: %w", d.ID, err)
		}
		recordRetry("kafka", next.Type)
	}
	return k.commit(ctx, d)
}

func (k *Kafka) Close() error {
	var firstErr error
	for _, c := range []io.Closer{k.reader, k.writer, k.dead} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
