// Package gamification holds the pure bookkeeping rules for points, levels,
// streaks and achievement thresholds. Nothing here touches storage.
package gamification

import (
	"errors"
	"time"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/user"
	"mindwellAPI/utils"
)

var ErrNegativePoints = errors.New("points award must not be negative")

// LevelFor is floor(points/100)+1.
func LevelFor(points int) int {
	if points < 0 {
		return 1
	}
	return points/user.PointsPerLevel + 1
}

// AddPoints awards n points and raises the level when the new total crosses
// a threshold. The level is never lowered.
func AddPoints(points, level, n int) (newPoints, newLevel int, leveledUp bool, err error) {
	if n < 0 {
		return points, level, false, ErrNegativePoints
	}
	newPoints = points + n
	newLevel = level
	if l := LevelFor(newPoints); l > newLevel {
		newLevel = l
		leveledUp = true
	}
	return newPoints, newLevel, leveledUp, nil
}

// Award applies AddPoints to u in place and reports whether the level rose.
func Award(u *user.User, n int) (bool, error) {
	p, l, up, err := AddPoints(u.Points, u.Level, n)
	if err != nil {
		return false, err
	}
	u.Points, u.Level = p, l
	return up, nil
}

// RecordActivity updates s for an activity on today (a utils.Date value).
// The streak continues when the last activity was today or yesterday and
// restarts at 1 otherwise.
func RecordActivity(s *progress.Stats, today time.Time) {
	s.TotalExercisesCompleted++
	s.CurrentStreak = NextStreak(s.CurrentStreak, s.LastActivityDate, today)
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	d := today
	s.LastActivityDate = &d
}

func NextStreak(current int, last *time.Time, today time.Time) int {
	if last == nil {
		return 1
	}
	switch utils.DaysBetween(*last, today) {
	case 0:
		if current < 1 {
			return 1
		}
		return current
	case 1:
		return current + 1
	default:
		return 1
	}
}

// ShouldDecay reports whether a streak must be reset by the daily sweep.
// activeYesterday tells whether any completion exists for yesterday.
func ShouldDecay(s *progress.Stats, today time.Time, activeYesterday bool) bool {
	if s.CurrentStreak <= 0 || activeYesterday {
		return false
	}
	if s.LastActivityDate == nil {
		return true
	}
	// Activity today or yesterday keeps the streak alive.
	return utils.DaysBetween(*s.LastActivityDate, today) > 1
}

// Metrics are the counters achievements are measured against.
type Metrics struct {
	MeditationCount int
	JournalingCount int
	TotalCompleted  int
	CurrentStreak   int
	Level           int
}

func (m Metrics) ValueFor(c achievement.Category) int {
	switch c {
	case achievement.CategoryMeditation:
		return m.MeditationCount
	case achievement.CategoryJournaling:
		return m.JournalingCount
	case achievement.CategoryStreak:
		return m.CurrentStreak
	case achievement.CategoryMilestones:
		return m.TotalCompleted
	case achievement.CategoryLevel:
		return m.Level
	}
	return 0
}

// Reached reports whether value satisfies a.
func Reached(a *achievement.Achievement, value int) bool {
	return value >= a.RequiredValue
}

// DateStreak computes the run of consecutive days ending at the latest date
// in dates (utils.Date values, any order, duplicates allowed). The streak is
// 0 when the latest date is older than yesterday.
func DateStreak(dates []time.Time, today time.Time) (streak int, latest *time.Time) {
	if len(dates) == 0 {
		return 0, nil
	}
	seen := make(map[int64]bool, len(dates))
	var newest time.Time
	for _, d := range dates {
		seen[d.Unix()] = true
		if d.After(newest) {
			newest = d
		}
	}
	latestDate := newest
	if utils.DaysBetween(newest, today) > 1 {
		return 0, &latestDate
	}
	for day := newest; seen[day.Unix()]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak, &latestDate
}
