package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/store"
)

const exerciseColumns = `id, title, description, type, duration_minutes, points, content, created_at`

func scanExercise(row pgx.Row, e *exercise.Exercise) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.DurationMinutes, &e.Points, &e.Content, &e.CreatedAt)
}

func (q queries) SaveExercise(ctx context.Context, e *exercise.Exercise) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `
	INSERT INTO exercises (` + exerciseColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		type = EXCLUDED.type,
		duration_minutes = EXCLUDED.duration_minutes,
		points = EXCLUDED.points,
		content = EXCLUDED.content
	`
	_, err := q.db.Exec(ctx, query, e.ID, e.Title, e.Description, e.Type, e.DurationMinutes, e.Points, e.Content, e.CreatedAt)
	return wrap("save exercise", err)
}

func (q queries) GetExercise(ctx context.Context, id string) (*exercise.Exercise, error) {
	e := &exercise.Exercise{}
	if err := scanExercise(q.db.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id), e); err != nil {
		return nil, wrap("get exercise", err)
	}
	return e, nil
}

func (q queries) ListExercises(ctx context.Context, f exercise.Filter) ([]exercise.Exercise, error) {
	w := &where{}
	if f.Title != "" {
		w.add("title ILIKE '%' || ?::text || '%'", f.Title)
	}
	if f.Type != "" {
		w.add("type = ?", f.Type)
	}
	if f.DurationMin > 0 {
		w.add("duration_minutes >= ?", f.DurationMin)
	}
	if f.DurationMax > 0 {
		w.add("duration_minutes <= ?", f.DurationMax)
	}

	rows, err := q.db.Query(ctx, `SELECT `+exerciseColumns+` FROM exercises`+w.String()+` ORDER BY title`, w.args...)
	if err != nil {
		return nil, wrap("list exercises", err)
	}
	defer rows.Close()

	out := []exercise.Exercise{}
	for rows.Next() {
		var e exercise.Exercise
		if err := scanExercise(rows, &e); err != nil {
			return nil, wrap("scan exercise", err)
		}
		out = append(out, e)
	}
	return out, wrap("list exercises", rows.Err())
}

func (q queries) CreateCompletion(ctx context.Context, c *exercise.CompletedExercise) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO completed_exercises (id, user_id, exercise_id, completed_at, notes) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.UserID, c.ExerciseID, c.CompletedAt, c.Notes,
	)
	return wrap("create completion", err)
}

const completionSelect = `
	SELECT c.id, c.user_id, c.exercise_id, c.completed_at, c.notes,
	       e.id, e.title, e.description, e.type, e.duration_minutes, e.points, e.content, e.created_at
	FROM completed_exercises c
	JOIN exercises e ON e.id = c.exercise_id
`

func (q queries) listCompletions(ctx context.Context, op string, w *where) ([]exercise.CompletedExercise, error) {
	rows, err := q.db.Query(ctx, completionSelect+w.String()+` ORDER BY c.completed_at DESC`, w.args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := []exercise.CompletedExercise{}
	for rows.Next() {
		var c exercise.CompletedExercise
		e := &exercise.Exercise{}
		err := rows.Scan(
			&c.ID, &c.UserID, &c.ExerciseID, &c.CompletedAt, &c.Notes,
			&e.ID, &e.Title, &e.Description, &e.Type, &e.DurationMinutes, &e.Points, &e.Content, &e.CreatedAt,
		)
		if err != nil {
			return nil, wrap("scan completion", err)
		}
		c.Exercise = e
		out = append(out, c)
	}
	return out, wrap(op, rows.Err())
}

func (q queries) CompletionsBetween(ctx context.Context, userID, exerciseID string, from, to time.Time) ([]exercise.CompletedExercise, error) {
	w := &where{}
	w.add("c.user_id = ?", userID)
	if exerciseID != "" {
		w.add("c.exercise_id = ?", exerciseID)
	}
	w.add("c.completed_at >= ?", from)
	w.add("c.completed_at < ?", to)
	return q.listCompletions(ctx, "list completions between", w)
}

func (q queries) ListCompletions(ctx context.Context, userID string) ([]exercise.CompletedExercise, error) {
	w := &where{}
	w.add("c.user_id = ?", userID)
	return q.listCompletions(ctx, "list completions", w)
}

func (q queries) CountCompletions(ctx context.Context, userID string, t exercise.Type) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `
	SELECT COUNT(*)
	FROM completed_exercises c
	JOIN exercises e ON e.id = c.exercise_id
	WHERE c.user_id = $1 AND ($2::text = '' OR e.type = $2)
	`, userID, string(t)).Scan(&n)
	return n, wrap("count completions", err)
}

const promptColumns = `id, date, type, content, created_at`

func scanPrompt(row pgx.Row, p *exercise.DailyPrompt) error {
	return row.Scan(&p.ID, &p.Date, &p.Type, &p.Content, &p.CreatedAt)
}

func (q queries) CreateDailyPrompt(ctx context.Context, p *exercise.DailyPrompt) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO daily_prompts (`+promptColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Date, p.Type, p.Content, p.CreatedAt,
	)
	return wrap("create daily prompt", err)
}

func (q queries) GetDailyPromptByDate(ctx context.Context, date time.Time) (*exercise.DailyPrompt, error) {
	p := &exercise.DailyPrompt{}
	if err := scanPrompt(q.db.QueryRow(ctx, `SELECT `+promptColumns+` FROM daily_prompts WHERE date = $1`, date), p); err != nil {
		return nil, wrap("get daily prompt", err)
	}
	return p, nil
}

func (q queries) LatestDailyPrompt(ctx context.Context) (*exercise.DailyPrompt, error) {
	p := &exercise.DailyPrompt{}
	if err := scanPrompt(q.db.QueryRow(ctx, `SELECT `+promptColumns+` FROM daily_prompts ORDER BY date DESC LIMIT 1`), p); err != nil {
		return nil, wrap("get latest daily prompt", err)
	}
	return p, nil
}

func (q queries) CountDailyPrompts(ctx context.Context, t exercise.PromptType) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM daily_prompts WHERE type = $1`, t).Scan(&n)
	return n, wrap("count daily prompts", err)
}

func (q queries) ListDailyPrompts(ctx context.Context, limit int) ([]exercise.DailyPrompt, error) {
	query := `SELECT ` + promptColumns + ` FROM daily_prompts ORDER BY date DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list daily prompts", err)
	}
	defer rows.Close()

	out := []exercise.DailyPrompt{}
	for rows.Next() {
		var p exercise.DailyPrompt
		if err := scanPrompt(rows, &p); err != nil {
			return nil, wrap("scan daily prompt", err)
		}
		out = append(out, p)
	}
	return out, wrap("list daily prompts", rows.Err())
}

const achievementColumns = `id, title, description, icon, category, required_value, points, created_at`

func scanAchievement(row pgx.Row, a *achievement.Achievement) error {
	return row.Scan(&a.ID, &a.Title, &a.Description, &a.Icon, &a.Category, &a.RequiredValue, &a.Points, &a.CreatedAt)
}

func (q queries) SaveAchievement(ctx context.Context, a *achievement.Achievement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := `
	INSERT INTO achievements (` + achievementColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		icon = EXCLUDED.icon,
		category = EXCLUDED.category,
		required_value = EXCLUDED.required_value,
		points = EXCLUDED.points
	`
	_, err := q.db.Exec(ctx, query, a.ID, a.Title, a.Description, a.Icon, a.Category, a.RequiredValue, a.Points, a.CreatedAt)
	return wrap("save achievement", err)
}

func (q queries) GetAchievement(ctx context.Context, id string) (*achievement.Achievement, error) {
	a := &achievement.Achievement{}
	if err := scanAchievement(q.db.QueryRow(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id = $1`, id), a); err != nil {
		return nil, wrap("get achievement", err)
	}
	return a, nil
}

func (q queries) ListAchievements(ctx context.Context, f achievement.Filter) ([]achievement.Achievement, error) {
	w := &where{}
	if f.Title != "" {
		w.add("title ILIKE '%' || ?::text || '%'", f.Title)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}

	rows, err := q.db.Query(ctx, `SELECT `+achievementColumns+` FROM achievements`+w.String()+` ORDER BY category, required_value`, w.args...)
	if err != nil {
		return nil, wrap("list achievements", err)
	}
	defer rows.Close()

	out := []achievement.Achievement{}
	for rows.Next() {
		var a achievement.Achievement
		if err := scanAchievement(rows, &a); err != nil {
			return nil, wrap("scan achievement", err)
		}
		out = append(out, a)
	}
	return out, wrap("list achievements", rows.Err())
}

func (q queries) ListUserAchievements(ctx context.Context, userID string) ([]achievement.UserAchievement, error) {
	rows, err := q.db.Query(ctx, `
	SELECT user_id, achievement_id, current_value, unlocked_at, updated_at
	FROM user_achievements
	WHERE user_id = $1
	ORDER BY achievement_id
	`, userID)
	if err != nil {
		return nil, wrap("list user achievements", err)
	}
	defer rows.Close()

	out := []achievement.UserAchievement{}
	for rows.Next() {
		var ua achievement.UserAchievement
		if err := rows.Scan(&ua.UserID, &ua.AchievementID, &ua.CurrentValue, &ua.UnlockedAt, &ua.UpdatedAt); err != nil {
			return nil, wrap("scan user achievement", err)
		}
		out = append(out, ua)
	}
	return out, wrap("list user achievements", rows.Err())
}

func (q queries) SetAchievementProgress(ctx context.Context, userID, achievementID string, value int) error {
	_, err := q.db.Exec(ctx, `
	INSERT INTO user_achievements (user_id, achievement_id, current_value, updated_at)
	VALUES ($1, $2, $3, now())
	ON CONFLICT (user_id, achievement_id) DO UPDATE SET
		current_value = EXCLUDED.current_value,
		updated_at = now()
	`, userID, achievementID, value)
	return wrap("set achievement progress", err)
}

func (q queries) UnlockAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	tag, err := q.db.Exec(ctx, `
	UPDATE user_achievements
	SET unlocked_at = $3, updated_at = now()
	WHERE user_id = $1 AND achievement_id = $2 AND unlocked_at IS NULL
	`, userID, achievementID, at.UTC())
	if err != nil {
		return false, wrap("unlock achievement", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	err = q.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_achievements WHERE user_id = $1 AND achievement_id = $2)`,
		userID, achievementID,
	).Scan(&exists)
	if err != nil {
		return false, wrap("unlock achievement", err)
	}
	if !exists {
		return false, wrap("unlock achievement", store.ErrNotFound)
	}
	return false, nil
}
