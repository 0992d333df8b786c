package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mindwellAPI/internal/breathing"
)

const techniqueColumns = `id, name, description, inhale, hold_in, exhale, hold_out, cycles, duration, difficulty, benefits, is_active, created_at`

func scanTechnique(row pgx.Row, t *breathing.Technique) error {
	return row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Inhale,
		&t.HoldIn,
		&t.Exhale,
		&t.HoldOut,
		&t.Cycles,
		&t.Duration,
		&t.Difficulty,
		&t.Benefits,
		&t.IsActive,
		&t.CreatedAt,
	)
}

func collectTechniques(rows pgx.Rows, op string) ([]breathing.Technique, error) {
	defer rows.Close()
	out := []breathing.Technique{}
	for rows.Next() {
		var t breathing.Technique
		if err := scanTechnique(rows, &t); err != nil {
			return nil, wrap("scan technique", err)
		}
		out = append(out, t)
	}
	return out, wrap(op, rows.Err())
}

func (q queries) SaveTechnique(ctx context.Context, t *breathing.Technique) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx, `
	INSERT INTO breathing_techniques (`+techniqueColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		inhale = EXCLUDED.inhale,
		hold_in = EXCLUDED.hold_in,
		exhale = EXCLUDED.exhale,
		hold_out = EXCLUDED.hold_out,
		cycles = EXCLUDED.cycles,
		duration = EXCLUDED.duration,
		difficulty = EXCLUDED.difficulty,
		benefits = EXCLUDED.benefits,
		is_active = EXCLUDED.is_active
	`,
		t.ID, t.Name, t.Description, t.Inhale, t.HoldIn, t.Exhale, t.HoldOut,
		t.Cycles, t.Duration, t.Difficulty, t.Benefits, t.IsActive, t.CreatedAt,
	)
	return wrap("save technique", err)
}

func (q queries) GetTechnique(ctx context.Context, id string) (*breathing.Technique, error) {
	t := &breathing.Technique{}
	if err := scanTechnique(q.db.QueryRow(ctx, `SELECT `+techniqueColumns+` FROM breathing_techniques WHERE id = $1`, id), t); err != nil {
		return nil, wrap("get technique", err)
	}
	return t, nil
}

func (q queries) ListTechniques(ctx context.Context, f breathing.TechniqueFilter) ([]breathing.Technique, error) {
	w := &where{}
	w.add("is_active = ?", true)
	if f.Name != "" {
		w.add("name ILIKE '%' || ?::text || '%'", f.Name)
	}
	if f.Difficulty != "" {
		w.add("difficulty = ?", f.Difficulty)
	}
	if f.DurationMin > 0 {
		w.add("duration >= ?", f.DurationMin)
	}
	if f.DurationMax > 0 {
		w.add("duration <= ?", f.DurationMax)
	}

	rows, err := q.db.Query(ctx, `SELECT `+techniqueColumns+` FROM breathing_techniques`+w.String()+` ORDER BY name`, w.args...)
	if err != nil {
		return nil, wrap("list techniques", err)
	}
	return collectTechniques(rows, "list techniques")
}

func (q queries) SaveRecommendation(ctx context.Context, r *breathing.Recommendation) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := q.db.Exec(ctx, `
	INSERT INTO breathing_recommendations (id, technique_id, condition, priority)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		technique_id = EXCLUDED.technique_id,
		condition = EXCLUDED.condition,
		priority = EXCLUDED.priority
	`, r.ID, r.TechniqueID, r.Condition, r.Priority)
	return wrap("save recommendation", err)
}

func (q queries) ListRecommendations(ctx context.Context, techniqueID string) ([]breathing.Recommendation, error) {
	rows, err := q.db.Query(ctx, `
	SELECT id, technique_id, condition, priority
	FROM breathing_recommendations
	WHERE technique_id = $1
	ORDER BY priority, condition
	`, techniqueID)
	if err != nil {
		return nil, wrap("list recommendations", err)
	}
	defer rows.Close()

	out := []breathing.Recommendation{}
	for rows.Next() {
		var r breathing.Recommendation
		if err := rows.Scan(&r.ID, &r.TechniqueID, &r.Condition, &r.Priority); err != nil {
			return nil, wrap("scan recommendation", err)
		}
		out = append(out, r)
	}
	return out, wrap("list recommendations", rows.Err())
}

func (q queries) TechniquesForCondition(ctx context.Context, condition string) ([]breathing.Technique, error) {
	rows, err := q.db.Query(ctx, `
	SELECT t.id, t.name, t.description, t.inhale, t.hold_in, t.exhale, t.hold_out,
	       t.cycles, t.duration, t.difficulty, t.benefits, t.is_active, t.created_at
	FROM breathing_techniques t
	JOIN (
		SELECT technique_id, MIN(priority) AS priority
		FROM breathing_recommendations
		WHERE lower(condition) = lower($1)
		GROUP BY technique_id
	) r ON r.technique_id = t.id
	WHERE t.is_active
	ORDER BY r.priority, t.name
	`, condition)
	if err != nil {
		return nil, wrap("list techniques for condition", err)
	}
	return collectTechniques(rows, "list techniques for condition")
}

const sessionSelect = `
	SELECT s.id, s.user_id, s.technique_id, s.completed_cycles, s.duration_seconds, s.notes, s.completed_at, t.name
	FROM breathing_sessions s
	JOIN breathing_techniques t ON t.id = s.technique_id
`

func scanSession(row pgx.Row, s *breathing.Session) error {
	return row.Scan(&s.ID, &s.UserID, &s.TechniqueID, &s.CompletedCycles, &s.DurationSeconds, &s.Notes, &s.CompletedAt, &s.TechniqueName)
}

func (q queries) CreateBreathingSession(ctx context.Context, s *breathing.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CompletedAt.IsZero() {
		s.CompletedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx, `
	INSERT INTO breathing_sessions (id, user_id, technique_id, completed_cycles, duration_seconds, notes, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.UserID, s.TechniqueID, s.CompletedCycles, s.DurationSeconds, s.Notes, s.CompletedAt)
	return wrap("create breathing session", err)
}

func (q queries) GetBreathingSession(ctx context.Context, userID, id string) (*breathing.Session, error) {
	s := &breathing.Session{}
	if err := scanSession(q.db.QueryRow(ctx, sessionSelect+` WHERE s.id = $1 AND s.user_id = $2`, id, userID), s); err != nil {
		return nil, wrap("get breathing session", err)
	}
	return s, nil
}

func (q queries) ListBreathingSessions(ctx context.Context, userID string, f breathing.SessionFilter) ([]breathing.Session, error) {
	w := &where{}
	w.add("s.user_id = ?", userID)
	if f.TechniqueID != "" {
		w.add("s.technique_id = ?", f.TechniqueID)
	}
	if f.CompletedFrom != nil {
		w.add("s.completed_at >= ?", *f.CompletedFrom)
	}
	if f.CompletedTo != nil {
		w.add("s.completed_at <= ?", *f.CompletedTo)
	}

	rows, err := q.db.Query(ctx, sessionSelect+w.String()+` ORDER BY s.completed_at DESC`, w.args...)
	if err != nil {
		return nil, wrap("list breathing sessions", err)
	}
	defer rows.Close()

	out := []breathing.Session{}
	for rows.Next() {
		var s breathing.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, wrap("scan breathing session", err)
		}
		out = append(out, s)
	}
	return out, wrap("list breathing sessions", rows.Err())
}
