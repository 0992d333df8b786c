package queue

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process queue for tests and single-binary deployments.
// Tasks are lost on restart.
type Memory struct {
	opts Options

	mu       sync.Mutex
	pending  []Task
	inflight map[string]Task
	dead     []Task
	closed   bool

	notify chan struct{}
	done   chan struct{}
}

var _ Queue = (*Memory)(nil)

func NewMemory(opts Options) *Memory {
	return &Memory{
		opts:     opts.withDefaults(),
		inflight: make(map[string]Task),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (m *Memory) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *Memory) push(t Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.pending = append(m.pending, t)
	m.signal()
	return nil
}

func (m *Memory) Enqueue(ctx context.Context, t Task) error {
	if err := m.push(t); err != nil {
		return err
	}
	recordEnqueued("memory", t.Type)
	return nil
}

func (m *Memory) Dequeue(ctx context.Context) (*Delivery, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrClosed
		}
		if len(m.pending) > 0 {
			t := m.pending[0]
			m.pending = m.pending[1:]
			m.inflight[t.ID] = t
			if len(m.pending) > 0 {
				m.signal()
			}
			m.mu.Unlock()
			return &Delivery{Task: t}, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.done:
			return nil, ErrClosed
		case <-m.notify:
		}
	}
}

func (m *Memory) Ack(ctx context.Context, d *Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflight, d.ID)
	return nil
}

func (m *Memory) Retry(ctx context.Context, d *Delivery, cause error) error {
	m.mu.Lock()
	delete(m.inflight, d.ID)
	next, dead := m.opts.next(d.Task, cause, time.Now())
	if dead {
		m.dead = append(m.dead, next)
		m.mu.Unlock()
		recordDeadLetter("memory", next.Type)
		return nil
	}
	m.mu.Unlock()

	recordRetry("memory", next.Type)
	time.AfterFunc(time.Until(next.NotBefore), func() {
		_ = m.push(next)
	})
	return nil
}

// DeadLetters returns the tasks that exhausted their attempts.
func (m *Memory) DeadLetters() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Task(nil), m.dead...)
}

// Len counts pending plus in-flight tasks.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending) + len(m.inflight)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
