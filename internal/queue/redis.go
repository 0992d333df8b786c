package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keeps tasks in lists. Dequeue moves a task atomically from the ready
// list to a processing list, so a crashed worker leaves it visible there.
// Retries wait in a sorted set scored by their ready time.
type Redis struct {
	rdb  *redis.Client
	opts Options

	ready      string
	processing string
	delayed    string
	dead       string

	pollTimeout time.Duration
}

var _ Queue = (*Redis)(nil)

func NewRedis(rdb *redis.Client, prefix string, opts Options) *Redis {
	if prefix == "" {
		prefix = "mindwell:tasks"
	}
	return &Redis{
		rdb:         rdb,
		opts:        opts.withDefaults(),
		ready:       prefix,
		processing:  prefix + ":processing",
		delayed:     prefix + ":delayed",
		dead:        prefix + ":dead",
		pollTimeout: time.Second,
	}
}

func (r *Redis) Enqueue(ctx context.Context, t Task) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	if err := r.rdb.LPush(ctx, r.ready, raw).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	recordEnqueued("redis", t.Type)
	return nil
}

// promote moves due delayed tasks onto the ready list.
func (r *Redis) promote(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := r.rdb.ZRangeByScore(ctx, r.delayed, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return err
	}
	for _, raw := range due {
		// Only the caller that removed it pushes it, so concurrent workers
		// never duplicate a delayed task.
		removed, err := r.rdb.ZRem(ctx, r.delayed, raw).Result()
		if err != nil {
			return err
		}
		if removed == 1 {
			if err := r.rdb.LPush(ctx, r.ready, raw).Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Redis) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.promote(ctx); err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to promote delayed tasks: %w", err)
		}

		raw, err := r.rdb.BLMove(ctx, r.ready, r.processing, "RIGHT", "LEFT", r.pollTimeout).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, redis.ErrClosed) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("failed to dequeue task: %w", err)
		}

		var t Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			// Unreadable payloads go straight to the dead letters.
			_ = r.rdb.LRem(ctx, r.processing, 1, raw).Err()
			_ = r.rdb.LPush(ctx, r.dead, raw).Err()
			recordDeadLetter("redis", "unknown")
			continue
		}
		return &Delivery{Task: t, raw: raw}, nil
	}
}

func (r *Redis) Ack(ctx context.Context, d *Delivery) error {
	raw, _ := d.raw.(string)
	if err := r.rdb.LRem(ctx, r.processing, 1, raw).Err(); err != nil {
		return fmt.Errorf("failed to ack task %s: %w", d.ID, err)
	}
	return nil
}

func (r *Redis) Retry(ctx context.Context, d *Delivery, cause error) error {
	next, dead := r.opts.next(d.Task, cause, time.Now())
	encoded, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	raw, _ := d.raw.(string)
	pipe := r.rdb.TxPipeline()
	pipe.LRem(ctx, r.processing, 1, raw)
	if dead {
		pipe.LPush(ctx, r.dead, encoded)
	} else {
		pipe.ZAdd(ctx, r.delayed, redis.Z{Score: float64(next.NotBefore.UnixMilli()), Member: string(encoded)})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reschedule task %s: %w", d.ID, err)
	}

	if dead {
		recordDeadLetter("redis", next.Type)
	} else {
		recordRetry("redis", next.Type)
	}
	return nil
}

// DeadLetters reads the dead-letter list without removing anything.
func (r *Redis) DeadLetters(ctx context.Context) ([]Task, error) {
	raws, err := r.rdb.LRange(ctx, r.dead, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(raws))
	for _, raw := range raws {
		var t Task
		if err := json.Unmarshal([]byte(raw), &t); err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

// Close leaves the client open. Its owner closes it.
func (r *Redis) Close() error { return nil }
