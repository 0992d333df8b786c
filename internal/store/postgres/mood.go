package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mindwellAPI/internal/mood"
)

const moodColumns = `id, user_id, mood, notes, date, factors, created_at`

func scanMood(row pgx.Row, e *mood.Entry) error {
	if err := row.Scan(&e.ID, &e.UserID, &e.Mood, &e.Notes, &e.Date, &e.Factors, &e.CreatedAt); err != nil {
		return err
	}
	if e.Factors == nil {
		e.Factors = []string{}
	}
	return nil
}

func (q queries) SaveMoodEntry(ctx context.Context, e *mood.Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if e.Factors == nil {
		e.Factors = []string{}
	}
	_, err := q.db.Exec(ctx, `
	INSERT INTO mood_entries (`+moodColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		mood = EXCLUDED.mood,
		notes = EXCLUDED.notes,
		date = EXCLUDED.date,
		factors = EXCLUDED.factors
	`, e.ID, e.UserID, e.Mood, e.Notes, e.Date, e.Factors, e.CreatedAt)
	return wrap("save mood entry", err)
}

func (q queries) GetMoodEntry(ctx context.Context, userID, id string) (*mood.Entry, error) {
	e := &mood.Entry{}
	row := q.db.QueryRow(ctx, `SELECT `+moodColumns+` FROM mood_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err := scanMood(row, e); err != nil {
		return nil, wrap("get mood entry", err)
	}
	return e, nil
}

func (q queries) GetMoodEntryByDate(ctx context.Context, userID string, date time.Time) (*mood.Entry, error) {
	e := &mood.Entry{}
	row := q.db.QueryRow(ctx, `SELECT `+moodColumns+` FROM mood_entries WHERE user_id = $1 AND date = $2`, userID, date)
	if err := scanMood(row, e); err != nil {
		return nil, wrap("get mood entry by date", err)
	}
	return e, nil
}

func (q queries) DeleteMoodEntry(ctx context.Context, userID, id string) error {
	return execOne(ctx, q.db, "delete mood entry", `DELETE FROM mood_entries WHERE id = $1 AND user_id = $2`, id, userID)
}

func (q queries) ListMoodEntries(ctx context.Context, userID string, f mood.Filter) ([]mood.Entry, error) {
	w := &where{}
	w.add("user_id = ?", userID)
	if f.Mood != "" {
		w.add("mood = ?", f.Mood)
	}
	if f.DateFrom != nil {
		w.add("date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("date <= ?", *f.DateTo)
	}
	if f.Factor != "" {
		w.add("?::text = ANY(factors)", f.Factor)
	}

	rows, err := q.db.Query(ctx, `SELECT `+moodColumns+` FROM mood_entries`+w.String()+` ORDER BY date DESC, created_at DESC`, w.args...)
	if err != nil {
		return nil, wrap("list mood entries", err)
	}
	defer rows.Close()

	out := []mood.Entry{}
	for rows.Next() {
		var e mood.Entry
		if err := scanMood(rows, &e); err != nil {
			return nil, wrap("scan mood entry", err)
		}
		out = append(out, e)
	}
	return out, wrap("list mood entries", rows.Err())
}

func (q queries) GetMoodStats(ctx context.Context, userID string) (*mood.Stats, error) {
	s := &mood.Stats{}
	err := q.db.QueryRow(ctx, `
	SELECT user_id, average_mood, streak_days, last_entry_date, updated_at
	FROM mood_stats
	WHERE user_id = $1
	`, userID).Scan(&s.UserID, &s.AverageMood, &s.StreakDays, &s.LastEntryDate, &s.UpdatedAt)
	if err != nil {
		return nil, wrap("get mood stats", err)
	}
	return s, nil
}

func (q queries) SaveMoodStats(ctx context.Context, s *mood.Stats) error {
	s.UpdatedAt = time.Now().UTC()
	_, err := q.db.Exec(ctx, `
	INSERT INTO mood_stats (user_id, average_mood, streak_days, last_entry_date, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		average_mood = EXCLUDED.average_mood,
		streak_days = EXCLUDED.streak_days,
		last_entry_date = EXCLUDED.last_entry_date,
		updated_at = EXCLUDED.updated_at
	`, s.UserID, s.AverageMood, s.StreakDays, s.LastEntryDate, s.UpdatedAt)
	return wrap("save mood stats", err)
}
