// Package queue moves background tasks between the API and the workers.
// Delivery is at-least-once: a task is removed only after Ack, and a failed
// task comes back through Retry until MaxAttempts, then goes to the dead letters.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrClosed = errors.New("queue closed")

// ErrPermanent marks failures that no retry can fix. Retry dead-letters
// such tasks on the spot.
var ErrPermanent = errors.New("permanent task failure")

type permanentError struct{ err error }

func (e permanentError) Error() string   { return e.err.Error() }
func (e permanentError) Unwrap() []error { return []error{e.err, ErrPermanent} }

// Permanent wraps err so errors.Is(err, ErrPermanent) holds while the
// original chain stays intact.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 2 * time.Second
)

type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	// NotBefore delays a retried task. Zero means ready now.
	NotBefore time.Time `json:"not_before,omitempty"`
}

func NewTask(taskType string, payload any) (Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("failed to encode %s payload: %w", taskType, err)
	}
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Payload:    b,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

func (t Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return Permanent(fmt.Errorf("failed to decode %s payload: %w", t.Type, err))
	}
	return nil
}

// Delivery is a dequeued task plus whatever the backend needs to ack it.
type Delivery struct {
	Task
	raw any
}

type Queue interface {
	Enqueue(ctx context.Context, t Task) error
	// Dequeue blocks until a task is available or ctx is done.
	Dequeue(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	// Retry schedules the task again with Attempt+1, or dead-letters it once
	// MaxAttempts is reached or cause is marked Permanent.
	Retry(ctx context.Context, d *Delivery, cause error) error
	Close() error
}

type Options struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
	return o
}

// next returns the retried task and whether it must be dead-lettered instead.
func (o Options) next(t Task, cause error, now time.Time) (Task, bool) {
	if t.Attempt >= o.MaxAttempts || errors.Is(cause, ErrPermanent) {
		return t, true
	}
	t.Attempt++
	t.NotBefore = now.Add(time.Duration(t.Attempt-1) * o.Backoff)
	return t, false
}

// Enqueue builds a task and puts it on q.
func Enqueue(ctx context.Context, q Queue, taskType string, payload any) error {
	t, err := NewTask(taskType, payload)
	if err != nil {
		return err
	}
	return q.Enqueue(ctx, t)
}

// WaitReady sleeps until t.NotBefore or until ctx is done.
func WaitReady(ctx context.Context, t Task) error {
	d := time.Until(t.NotBefore)
	if t.NotBefore.IsZero() || d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
