// Package workers runs queued tasks and the daily scheduled jobs.
package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/queue"
)

var ErrNoHandler = errors.New("no handler registered for task type")

type HandlerFunc func(ctx context.Context, t queue.Task) error

// Pool pulls tasks from a queue with a fixed number of workers. A handler
// error or panic sends the task back through queue.Retry. Unknown task types
// and errors marked with queue.Permanent are dead-lettered without backoff.
type Pool struct {
	q           queue.Queue
	log         *logger.Logger
	concurrency int
	taskTimeout time.Duration

	mu       sync.RWMutex
	handlers map[string]HandlerFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(q queue.Queue, concurrency int, log *logger.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pool{
		q:           q,
		log:         log.With("service", "WorkerPool"),
		concurrency: concurrency,
		taskTimeout: 2 * time.Minute,
		handlers:    make(map[string]HandlerFunc),
	}
}

// Register binds a handler to a task type. A later call replaces it.
func (p *Pool) Register(taskType string, h HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[taskType] = h
}

func (p *Pool) handler(taskType string) (HandlerFunc, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h, ok := p.handlers[taskType]
	return h, ok
}

// Start launches the workers. They run until Stop or until ctx is done.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.concurrency; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.log.Info("worker pool started", "concurrency", p.concurrency)
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.log.Info("worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		d, err := p.q.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			p.log.Error("dequeue failed", "worker", id, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		p.process(ctx, d)
	}
}

func (p *Pool) process(ctx context.Context, d *queue.Delivery) {
	start := time.Now()
	err := p.run(ctx, d.Task)
	taskDuration.WithLabelValues(d.Type).Observe(time.Since(start).Seconds())

	// Acks and retries still go through after Stop cancelled ctx.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err == nil {
		tasksProcessed.WithLabelValues(d.Type, "ok").Inc()
		if ackErr := p.q.Ack(settleCtx, d); ackErr != nil {
			p.log.Error("ack failed", "task_id", d.ID, "type", d.Type, "error", ackErr)
		}
		return
	}

	if errors.Is(err, queue.ErrPermanent) {
		tasksProcessed.WithLabelValues(d.Type, "permanent").Inc()
		p.log.Error("dead-lettering task", "task_id", d.ID, "type", d.Type, "attempt", d.Attempt, "error", err)
	} else {
		tasksProcessed.WithLabelValues(d.Type, "error").Inc()
		p.log.Warn("task failed", "task_id", d.ID, "type", d.Type, "attempt", d.Attempt, "error", err)
	}
	if retryErr := p.q.Retry(settleCtx, d, err); retryErr != nil {
		p.log.Error("retry failed", "task_id", d.ID, "type", d.Type, "error", retryErr)
	}
}

// run calls the handler and turns a panic into an error.
func (p *Pool) run(ctx context.Context, t queue.Task) (err error) {
	h, ok := p.handler(t.Type)
	if !ok {
		return queue.Permanent(fmt.Errorf("%w: %s", ErrNoHandler, t.Type))
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("task handler panicked", "type", t.Type, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, p.taskTimeout)
	defer cancel()
	return h(taskCtx, t)
}
