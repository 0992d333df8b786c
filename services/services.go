package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
	"mindwellAPI/utils"
)

var (
	ErrDuplicateCompletion = errors.New("exercise already completed today")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrPasswordMismatch    = errors.New("current password is incorrect")

	ErrUsernameTaken = fmt.Errorf("%w: username already taken", store.ErrConflict)
	ErrEmailTaken    = fmt.Errorf("%w: email already registered", store.ErrConflict)
)

// Clock gives the current instant and the calendar timezone used for
// "today", streaks and daily prompts.
type Clock struct {
	Loc *time.Location
	Now func() time.Time
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Loc: loc, Now: time.Now}
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Today is the current calendar date as a utils.Date value.
func (c Clock) Today() time.Time {
	return utils.Date(c.now(), c.Loc)
}

// DayBounds gives the [start, end) instants of day.
func (c Clock) DayBounds(day time.Time) (time.Time, time.Time) {
	return utils.DayBounds(day, c.Loc)
}

// enqueue is used after a commit. The write already happened, so a queue
// failure is logged rather than returned.
func enqueue(ctx context.Context, q queue.Queue, log *logger.Logger, taskType string, payload any) {
	if q == nil {
		return
	}
	if err := queue.Enqueue(ctx, q, taskType, payload); err != nil {
		log.Error("failed to enqueue task", "type", taskType, "error", err)
	}
}

func orNop(log *logger.Logger) *logger.Logger {
	if log == nil {
		return logger.Nop()
	}
	return log
}
