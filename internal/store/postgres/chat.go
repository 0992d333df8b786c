package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/notification"
)

const chatSessionColumns = `id, user_id, title, is_active, created_at, updated_at`

func scanChatSession(row pgx.Row, s *chat.Session) error {
	return row.Scan(&s.ID, &s.UserID, &s.Title, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
}

func (q queries) CreateChatSession(ctx context.Context, s *chat.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO chat_sessions (`+chatSessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, s.Title, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	return wrap("create chat session", err)
}

func (q queries) GetChatSession(ctx context.Context, userID, id string) (*chat.Session, error) {
	s := &chat.Session{}
	row := q.db.QueryRow(ctx, `SELECT `+chatSessionColumns+` FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err := scanChatSession(row, s); err != nil {
		return nil, wrap("get chat session", err)
	}
	return s, nil
}

func (q queries) GetChatSessionByID(ctx context.Context, id string) (*chat.Session, error) {
	s := &chat.Session{}
	if err := scanChatSession(q.db.QueryRow(ctx, `SELECT `+chatSessionColumns+` FROM chat_sessions WHERE id = $1`, id), s); err != nil {
		return nil, wrap("get chat session", err)
	}
	return s, nil
}

func (q queries) ListChatSessions(ctx context.Context, userID string) ([]chat.Session, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+chatSessionColumns+` FROM chat_sessions WHERE user_id = $1 ORDER BY updated_at DESC`, userID,
	)
	if err != nil {
		return nil, wrap("list chat sessions", err)
	}
	defer rows.Close()

	out := []chat.Session{}
	for rows.Next() {
		var s chat.Session
		if err := scanChatSession(rows, &s); err != nil {
			return nil, wrap("scan chat session", err)
		}
		out = append(out, s)
	}
	return out, wrap("list chat sessions", rows.Err())
}

func (q queries) UpdateChatSession(ctx context.Context, s *chat.Session) error {
	return execOne(ctx, q.db, "update chat session",
		`UPDATE chat_sessions SET title = $2, is_active = $3, updated_at = $4 WHERE id = $1`,
		s.ID, s.Title, s.IsActive, s.UpdatedAt,
	)
}

func (q queries) DeleteChatSession(ctx context.Context, userID, id string) error {
	return execOne(ctx, q.db, "delete chat session", `DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2`, id, userID)
}

const messageColumns = `id, session_id, content, sender, timestamp, is_read, metadata`

func scanMessage(row pgx.Row, m *chat.Message) error {
	var meta []byte
	if err := row.Scan(&m.ID, &m.SessionID, &m.Content, &m.Sender, &m.Timestamp, &m.IsRead, &meta); err != nil {
		return err
	}
	m.Metadata = meta
	return nil
}

func (q queries) CreateChatMessage(ctx context.Context, m *chat.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	var meta any
	if len(m.Metadata) > 0 {
		meta = string(m.Metadata)
	}
	_, err := q.db.Exec(ctx,
		`INSERT INTO chat_messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)`,
		m.ID, m.SessionID, m.Content, m.Sender, m.Timestamp, m.IsRead, meta,
	)
	return wrap("create chat message", err)
}

func (q queries) GetChatMessage(ctx context.Context, id string) (*chat.Message, error) {
	m := &chat.Message{}
	if err := scanMessage(q.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM chat_messages WHERE id = $1`, id), m); err != nil {
		return nil, wrap("get chat message", err)
	}
	return m, nil
}

func (q queries) ListChatMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+messageColumns+` FROM chat_messages WHERE session_id = $1 ORDER BY timestamp, id`, sessionID,
	)
	if err != nil {
		return nil, wrap("list chat messages", err)
	}
	defer rows.Close()

	out := []chat.Message{}
	for rows.Next() {
		var m chat.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, wrap("scan chat message", err)
		}
		out = append(out, m)
	}
	return out, wrap("list chat messages", rows.Err())
}

func (q queries) MarkMessagesRead(ctx context.Context, sessionID string, sender chat.Sender) (int, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE chat_messages SET is_read = TRUE WHERE session_id = $1 AND sender = $2 AND NOT is_read`,
		sessionID, sender,
	)
	if err != nil {
		return 0, wrap("mark messages read", err)
	}
	return int(tag.RowsAffected()), nil
}

func (q queries) SaveAssistantPrompt(ctx context.Context, p *chat.AssistantPrompt) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := q.db.Exec(ctx, `
	INSERT INTO assistant_prompts (id, title, prompt, category, is_active)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		prompt = EXCLUDED.prompt,
		category = EXCLUDED.category,
		is_active = EXCLUDED.is_active
	`, p.ID, p.Title, p.Prompt, p.Category, p.IsActive)
	return wrap("save assistant prompt", err)
}

func (q queries) ListAssistantPrompts(ctx context.Context, category chat.PromptCategory) ([]chat.AssistantPrompt, error) {
	rows, err := q.db.Query(ctx, `
	SELECT id, title, prompt, category, is_active
	FROM assistant_prompts
	WHERE is_active AND ($1::text = '' OR category = $1)
	ORDER BY category, title
	`, string(category))
	if err != nil {
		return nil, wrap("list assistant prompts", err)
	}
	defer rows.Close()

	out := []chat.AssistantPrompt{}
	for rows.Next() {
		var p chat.AssistantPrompt
		if err := rows.Scan(&p.ID, &p.Title, &p.Prompt, &p.Category, &p.IsActive); err != nil {
			return nil, wrap("scan assistant prompt", err)
		}
		out = append(out, p)
	}
	return out, wrap("list assistant prompts", rows.Err())
}

func (q queries) SaveDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := q.db.Exec(ctx, `
	INSERT INTO device_tokens (user_id, token, platform, created_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform
	`, t.UserID, t.Token, t.Platform, t.CreatedAt)
	return wrap("save device token", err)
}

func (q queries) ListDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := q.db.Query(ctx,
		`SELECT user_id, token, platform, created_at FROM device_tokens WHERE user_id = $1 ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, wrap("list device tokens", err)
	}
	defer rows.Close()

	out := []notification.DeviceToken{}
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, wrap("scan device token", err)
		}
		out = append(out, t)
	}
	return out, wrap("list device tokens", rows.Err())
}

func (q queries) DeleteDeviceToken(ctx context.Context, userID, token string) error {
	return execOne(ctx, q.db, "delete device token", `DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, userID, token)
}
