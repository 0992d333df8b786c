package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mindwellAPI/internal/logger"
)

type JobFunc func(ctx context.Context) error

type job struct {
	name         string
	hour, minute int
	run          JobFunc
}

// Scheduler runs jobs once a day at a wall-clock time in loc.
type Scheduler struct {
	loc  *time.Location
	log  *logger.Logger
	jobs []job
	now  func() time.Time
	wg   sync.WaitGroup
}

func NewScheduler(loc *time.Location, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{loc: loc, log: log.With("service", "Scheduler"), now: time.Now}
}

// Daily adds a job that runs every day at "15:04".
func (s *Scheduler) Daily(name, at string, fn JobFunc) error {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", at, name, err)
	}
	s.jobs = append(s.jobs, job{name: name, hour: t.Hour(), minute: t.Minute(), run: fn})
	return nil
}

// Start runs every job on its own goroutine until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
}

// Wait blocks until every job loop has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()
	for {
		next := NextRun(s.now(), j.hour, j.minute, s.loc)
		s.log.Debug("job scheduled", "job", j.name, "at", next)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.RunNow(ctx, j.name)
	}
}

// RunNow runs the named job immediately and reports whether it exists.
func (s *Scheduler) RunNow(ctx context.Context, name string) bool {
	for _, j := range s.jobs {
		if j.name != name {
			continue
		}
		start := time.Now()
		if err := j.run(ctx); err != nil {
			jobRuns.WithLabelValues(j.name, "error").Inc()
			s.log.Error("scheduled job failed", "job", j.name, "error", err)
		} else {
			jobRuns.WithLabelValues(j.name, "ok").Inc()
			s.log.Info("scheduled job done", "job", j.name, "took", time.Since(start))
		}
		return true
	}
	return false
}

// NextRun is the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
