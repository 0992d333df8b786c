package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"mindwellAPI/internal/progress"
)

const statsColumns = `user_id, total_exercises_completed, current_streak, longest_streak, last_activity_date, updated_at`

func scanStats(row pgx.Row, s *progress.Stats) error {
	return row.Scan(&s.UserID, &s.TotalExercisesCompleted, &s.CurrentStreak, &s.LongestStreak, &s.LastActivityDate, &s.UpdatedAt)
}

func (q queries) GetProgressStats(ctx context.Context, userID string) (*progress.Stats, error) {
	s := &progress.Stats{}
	if err := scanStats(q.db.QueryRow(ctx, `SELECT `+statsColumns+` FROM progress_stats WHERE user_id = $1`, userID), s); err != nil {
		return nil, wrap("get progress stats", err)
	}
	return s, nil
}

func (q queries) SaveProgressStats(ctx context.Context, s *progress.Stats) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := q.db.Exec(ctx, `
	INSERT INTO progress_stats (`+statsColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (user_id) DO UPDATE SET
		total_exercises_completed = EXCLUDED.total_exercises_completed,
		current_streak = EXCLUDED.current_streak,
		longest_streak = EXCLUDED.longest_streak,
		last_activity_date = EXCLUDED.last_activity_date,
		updated_at = EXCLUDED.updated_at
	`, s.UserID, s.TotalExercisesCompleted, s.CurrentStreak, s.LongestStreak, s.LastActivityDate, s.UpdatedAt)
	return wrap("save progress stats", err)
}

func (q queries) ListActiveStreaks(ctx context.Context, minStreak int) ([]progress.Stats, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+statsColumns+` FROM progress_stats WHERE current_streak >= $1 ORDER BY user_id`, minStreak,
	)
	if err != nil {
		return nil, wrap("list active streaks", err)
	}
	defer rows.Close()

	out := []progress.Stats{}
	for rows.Next() {
		var s progress.Stats
		if err := scanStats(rows, &s); err != nil {
			return nil, wrap("scan progress stats", err)
		}
		out = append(out, s)
	}
	return out, wrap("list active streaks", rows.Err())
}

func (q queries) IncrementWeeklyActivity(ctx context.Context, userID string, date time.Time) error {
	_, err := q.db.Exec(ctx, `
	INSERT INTO weekly_activity (user_id, date, count)
	VALUES ($1, $2, 1)
	ON CONFLICT (user_id, date) DO UPDATE SET count = weekly_activity.count + 1
	`, userID, date)
	return wrap("increment weekly activity", err)
}

func (q queries) ListWeeklyActivity(ctx context.Context, userID string, from, to time.Time) ([]progress.WeeklyActivity, error) {
	rows, err := q.db.Query(ctx, `
	SELECT user_id, date, count
	FROM weekly_activity
	WHERE user_id = $1 AND date >= $2 AND date <= $3
	ORDER BY date
	`, userID, from, to)
	if err != nil {
		return nil, wrap("list weekly activity", err)
	}
	defer rows.Close()

	out := []progress.WeeklyActivity{}
	for rows.Next() {
		var wa progress.WeeklyActivity
		if err := rows.Scan(&wa.UserID, &wa.Date, &wa.Count); err != nil {
			return nil, wrap("scan weekly activity", err)
		}
		out = append(out, wa)
	}
	return out, wrap("list weekly activity", rows.Err())
}
