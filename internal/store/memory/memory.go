// Package memory is an in-process store.Store used for tests and STORE=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/breathing"
	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/mood"
	"mindwellAPI/internal/notification"
	"mindwellAPI/internal/progress"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/user"
)

type data struct {
	users            map[string]user.User
	resetTokens      map[string]user.PasswordResetToken
	exercises        map[string]exercise.Exercise
	completions      []exercise.CompletedExercise
	dailyPrompts     map[int64]exercise.DailyPrompt
	achievements     map[string]achievement.Achievement
	userAchievements map[string]achievement.UserAchievement
	progress         map[string]progress.Stats
	weekly           map[string]progress.WeeklyActivity
	moods            map[string]mood.Entry
	moodStats        map[string]mood.Stats
	techniques       map[string]breathing.Technique
	recommendations  map[string]breathing.Recommendation
	breathing        []breathing.Session
	chatSessions     map[string]chat.Session
	chatMessages     []chat.Message
	assistantPrompts map[string]chat.AssistantPrompt
	devices          map[string]notification.DeviceToken
}

func newData() *data {
	return &data{
		users:            map[string]user.User{},
		resetTokens:      map[string]user.PasswordResetToken{},
		exercises:        map[string]exercise.Exercise{},
		dailyPrompts:     map[int64]exercise.DailyPrompt{},
		achievements:     map[string]achievement.Achievement{},
		userAchievements: map[string]achievement.UserAchievement{},
		progress:         map[string]progress.Stats{},
		weekly:           map[string]progress.WeeklyActivity{},
		moods:            map[string]mood.Entry{},
		moodStats:        map[string]mood.Stats{},
		techniques:       map[string]breathing.Technique{},
		recommendations:  map[string]breathing.Recommendation{},
		chatSessions:     map[string]chat.Session{},
		assistantPrompts: map[string]chat.AssistantPrompt{},
		devices:          map[string]notification.DeviceToken{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *data) clone() *data {
	return &data{
		users:            cloneMap(d.users),
		resetTokens:      cloneMap(d.resetTokens),
		exercises:        cloneMap(d.exercises),
		completions:      append([]exercise.CompletedExercise(nil), d.completions...),
		dailyPrompts:     cloneMap(d.dailyPrompts),
		achievements:     cloneMap(d.achievements),
		userAchievements: cloneMap(d.userAchievements),
		progress:         cloneMap(d.progress),
		weekly:           cloneMap(d.weekly),
		moods:            cloneMap(d.moods),
		moodStats:        cloneMap(d.moodStats),
		techniques:       cloneMap(d.techniques),
		recommendations:  cloneMap(d.recommendations),
		breathing:        append([]breathing.Session(nil), d.breathing...),
		chatSessions:     cloneMap(d.chatSessions),
		chatMessages:     append([]chat.Message(nil), d.chatMessages...),
		assistantPrompts: cloneMap(d.assistantPrompts),
		devices:          cloneMap(d.devices),
	}
}

// Store serializes every call on one mutex. A transaction holds the mutex
// for its whole duration and restores a snapshot on error.
type Store struct {
	view
	mu sync.Mutex
	d  *data
}

type view struct {
	s    *Store
	inTx bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	s := &Store{d: newData()}
	s.view = view{s: s}
	return s
}

func (s *Store) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	if err := fn(view{s: s, inTx: true}); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() {}

func (v view) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.s.mu.Lock()
	return v.s.mu.Unlock
}

func (v view) db() *data { return v.s.d }

func now() time.Time { return time.Now().UTC() }

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func key(parts ...string) string { return strings.Join(parts, "|") }

// ---- users ----

func (v view) userConflict(u *user.User) bool {
	for _, other := range v.db().users {
		if other.ID == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) || other.Username == u.Username {
			return true
		}
	}
	return false
}

func (v view) CreateUser(ctx context.Context, u *user.User) error {
	defer v.lock()()
	ensureID(&u.ID)
	if v.userConflict(u) {
		return store.ErrConflict
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now()
	}
	u.UpdatedAt = u.CreatedAt
	v.db().users[u.ID] = *u
	return nil
}

func (v view) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	defer v.lock()()
	u, ok := v.db().users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (v view) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	defer v.lock()()
	for _, u := range v.db().users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	defer v.lock()()
	for _, u := range v.db().users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) UpdateUser(ctx context.Context, u *user.User) error {
	defer v.lock()()
	if _, ok := v.db().users[u.ID]; !ok {
		return store.ErrNotFound
	}
	if v.userConflict(u) {
		return store.ErrConflict
	}
	u.UpdatedAt = now()
	v.db().users[u.ID] = *u
	return nil
}

func (v view) CreatePasswordResetToken(ctx context.Context, t *user.PasswordResetToken) error {
	defer v.lock()()
	ensureID(&t.Token)
	v.db().resetTokens[t.Token] = *t
	return nil
}

func (v view) GetPasswordResetToken(ctx context.Context, token string) (*user.PasswordResetToken, error) {
	defer v.lock()()
	t, ok := v.db().resetTokens[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (v view) DeletePasswordResetTokens(ctx context.Context, userID string) error {
	defer v.lock()()
	for k, t := range v.db().resetTokens {
		if t.UserID == userID {
			delete(v.db().resetTokens, k)
		}
	}
	return nil
}

// ---- therapy ----

func (v view) SaveExercise(ctx context.Context, e *exercise.Exercise) error {
	defer v.lock()()
	ensureID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	v.db().exercises[e.ID] = *e
	return nil
}

func (v view) GetExercise(ctx context.Context, id string) (*exercise.Exercise, error) {
	defer v.lock()()
	e, ok := v.db().exercises[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (v view) ListExercises(ctx context.Context, f exercise.Filter) ([]exercise.Exercise, error) {
	defer v.lock()()
	out := []exercise.Exercise{}
	for _, e := range v.db().exercises {
		if f.Match(&e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (v view) withExercise(c exercise.CompletedExercise) exercise.CompletedExercise {
	if e, ok := v.db().exercises[c.ExerciseID]; ok {
		c.Exercise = &e
	}
	return c
}

func (v view) CreateCompletion(ctx context.Context, c *exercise.CompletedExercise) error {
	defer v.lock()()
	if _, ok := v.db().exercises[c.ExerciseID]; !ok {
		return store.ErrNotFound
	}
	ensureID(&c.ID)
	if c.CompletedAt.IsZero() {
		c.CompletedAt = now()
	}
	stored := *c
	stored.Exercise = nil
	v.db().completions = append(v.db().completions, stored)
	return nil
}

func newestCompletionFirst(out []exercise.CompletedExercise) {
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
}

func (v view) CompletionsBetween(ctx context.Context, userID, exerciseID string, from, to time.Time) ([]exercise.CompletedExercise, error) {
	defer v.lock()()
	out := []exercise.CompletedExercise{}
	for _, c := range v.db().completions {
		if c.UserID != userID || (exerciseID != "" && c.ExerciseID != exerciseID) {
			continue
		}
		if c.CompletedAt.Before(from) || !c.CompletedAt.Before(to) {
			continue
		}
		out = append(out, v.withExercise(c))
	}
	newestCompletionFirst(out)
	return out, nil
}

func (v view) ListCompletions(ctx context.Context, userID string) ([]exercise.CompletedExercise, error) {
	defer v.lock()()
	out := []exercise.CompletedExercise{}
	for _, c := range v.db().completions {
		if c.UserID == userID {
			out = append(out, v.withExercise(c))
		}
	}
	newestCompletionFirst(out)
	return out, nil
}

func (v view) CountCompletions(ctx context.Context, userID string, t exercise.Type) (int, error) {
	defer v.lock()()
	n := 0
	for _, c := range v.db().completions {
		if c.UserID != userID {
			continue
		}
		if t != "" && v.db().exercises[c.ExerciseID].Type != t {
			continue
		}
		n++
	}
	return n, nil
}

func (v view) CreateDailyPrompt(ctx context.Context, p *exercise.DailyPrompt) error {
	defer v.lock()()
	if _, ok := v.db().dailyPrompts[p.Date.Unix()]; ok {
		return store.ErrConflict
	}
	ensureID(&p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	v.db().dailyPrompts[p.Date.Unix()] = *p
	return nil
}

func (v view) GetDailyPromptByDate(ctx context.Context, date time.Time) (*exercise.DailyPrompt, error) {
	defer v.lock()()
	p, ok := v.db().dailyPrompts[date.Unix()]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (v view) sortedPrompts() []exercise.DailyPrompt {
	out := make([]exercise.DailyPrompt, 0, len(v.db().dailyPrompts))
	for _, p := range v.db().dailyPrompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (v view) LatestDailyPrompt(ctx context.Context) (*exercise.DailyPrompt, error) {
	defer v.lock()()
	prompts := v.sortedPrompts()
	if len(prompts) == 0 {
		return nil, store.ErrNotFound
	}
	return &prompts[0], nil
}

func (v view) CountDailyPrompts(ctx context.Context, t exercise.PromptType) (int, error) {
	defer v.lock()()
	n := 0
	for _, p := range v.db().dailyPrompts {
		if p.Type == t {
			n++
		}
	}
	return n, nil
}

func (v view) ListDailyPrompts(ctx context.Context, limit int) ([]exercise.DailyPrompt, error) {
	defer v.lock()()
	prompts := v.sortedPrompts()
	if limit > 0 && len(prompts) > limit {
		prompts = prompts[:limit]
	}
	return prompts, nil
}

func (v view) SaveAchievement(ctx context.Context, a *achievement.Achievement) error {
	defer v.lock()()
	ensureID(&a.ID)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	v.db().achievements[a.ID] = *a
	return nil
}

func (v view) GetAchievement(ctx context.Context, id string) (*achievement.Achievement, error) {
	defer v.lock()()
	a, ok := v.db().achievements[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (v view) ListAchievements(ctx context.Context, f achievement.Filter) ([]achievement.Achievement, error) {
	defer v.lock()()
	out := []achievement.Achievement{}
	for _, a := range v.db().achievements {
		if f.Match(&a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].RequiredValue < out[j].RequiredValue
	})
	return out, nil
}

func (v view) ListUserAchievements(ctx context.Context, userID string) ([]achievement.UserAchievement, error) {
	defer v.lock()()
	out := []achievement.UserAchievement{}
	for _, ua := range v.db().userAchievements {
		if ua.UserID == userID {
			out = append(out, ua)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

func (v view) SetAchievementProgress(ctx context.Context, userID, achievementID string, value int) error {
	defer v.lock()()
	if _, ok := v.db().achievements[achievementID]; !ok {
		return store.ErrNotFound
	}
	k := key(userID, achievementID)
	ua, ok := v.db().userAchievements[k]
	if !ok {
		ua = achievement.UserAchievement{UserID: userID, AchievementID: achievementID}
	}
	ua.CurrentValue = value
	ua.UpdatedAt = now()
	v.db().userAchievements[k] = ua
	return nil
}

func (v view) UnlockAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	defer v.lock()()
	k := key(userID, achievementID)
	ua, ok := v.db().userAchievements[k]
	if !ok {
		return false, store.ErrNotFound
	}
	if ua.UnlockedAt != nil {
		return false, nil
	}
	t := at.UTC()
	ua.UnlockedAt = &t
	ua.UpdatedAt = now()
	v.db().userAchievements[k] = ua
	return true, nil
}

// ---- progress ----

func (v view) GetProgressStats(ctx context.Context, userID string) (*progress.Stats, error) {
	defer v.lock()()
	s, ok := v.db().progress[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (v view) SaveProgressStats(ctx context.Context, s *progress.Stats) error {
	defer v.lock()()
	s.UpdatedAt = now()
	v.db().progress[s.UserID] = *s
	return nil
}

func (v view) ListActiveStreaks(ctx context.Context, minStreak int) ([]progress.Stats, error) {
	defer v.lock()()
	out := []progress.Stats{}
	for _, s := range v.db().progress {
		if s.CurrentStreak >= minStreak {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (v view) IncrementWeeklyActivity(ctx context.Context, userID string, date time.Time) error {
	defer v.lock()()
	k := key(userID, date.Format(time.DateOnly))
	wa, ok := v.db().weekly[k]
	if !ok {
		wa = progress.WeeklyActivity{UserID: userID, Date: date}
	}
	wa.Count++
	v.db().weekly[k] = wa
	return nil
}

func (v view) ListWeeklyActivity(ctx context.Context, userID string, from, to time.Time) ([]progress.WeeklyActivity, error) {
	defer v.lock()()
	out := []progress.WeeklyActivity{}
	for _, wa := range v.db().weekly {
		if wa.UserID == userID && !wa.Date.Before(from) && !wa.Date.After(to) {
			out = append(out, wa)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// ---- mood ----

func copyEntry(e mood.Entry) mood.Entry {
	e.Factors = append([]string{}, e.Factors...)
	return e
}

func (v view) SaveMoodEntry(ctx context.Context, e *mood.Entry) error {
	defer v.lock()()
	for _, other := range v.db().moods {
		if other.UserID == e.UserID && other.Date.Equal(e.Date) && other.ID != e.ID {
			return store.ErrConflict
		}
	}
	ensureID(&e.ID)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now()
	}
	v.db().moods[e.ID] = copyEntry(*e)
	return nil
}

func (v view) GetMoodEntry(ctx context.Context, userID, id string) (*mood.Entry, error) {
	defer v.lock()()
	e, ok := v.db().moods[id]
	if !ok || e.UserID != userID {
		return nil, store.ErrNotFound
	}
	e = copyEntry(e)
	return &e, nil
}

func (v view) GetMoodEntryByDate(ctx context.Context, userID string, date time.Time) (*mood.Entry, error) {
	defer v.lock()()
	for _, e := range v.db().moods {
		if e.UserID == userID && e.Date.Equal(date) {
			e = copyEntry(e)
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) DeleteMoodEntry(ctx context.Context, userID, id string) error {
	defer v.lock()()
	e, ok := v.db().moods[id]
	if !ok || e.UserID != userID {
		return store.ErrNotFound
	}
	delete(v.db().moods, id)
	return nil
}

func (v view) ListMoodEntries(ctx context.Context, userID string, f mood.Filter) ([]mood.Entry, error) {
	defer v.lock()()
	out := []mood.Entry{}
	for _, e := range v.db().moods {
		if e.UserID == userID && f.Match(&e) {
			out = append(out, copyEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (v view) GetMoodStats(ctx context.Context, userID string) (*mood.Stats, error) {
	defer v.lock()()
	s, ok := v.db().moodStats[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (v view) SaveMoodStats(ctx context.Context, s *mood.Stats) error {
	defer v.lock()()
	s.UpdatedAt = now()
	v.db().moodStats[s.UserID] = *s
	return nil
}

// ---- breathing ----

func (v view) SaveTechnique(ctx context.Context, t *breathing.Technique) error {
	defer v.lock()()
	ensureID(&t.ID)
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	v.db().techniques[t.ID] = *t
	return nil
}

func (v view) GetTechnique(ctx context.Context, id string) (*breathing.Technique, error) {
	defer v.lock()()
	t, ok := v.db().techniques[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func sortTechniques(out []breathing.Technique) {
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
}

func (v view) ListTechniques(ctx context.Context, f breathing.TechniqueFilter) ([]breathing.Technique, error) {
	defer v.lock()()
	out := []breathing.Technique{}
	for _, t := range v.db().techniques {
		if f.Match(&t) {
			out = append(out, t)
		}
	}
	sortTechniques(out)
	return out, nil
}

func (v view) SaveRecommendation(ctx context.Context, r *breathing.Recommendation) error {
	defer v.lock()()
	if _, ok := v.db().techniques[r.TechniqueID]; !ok {
		return store.ErrNotFound
	}
	ensureID(&r.ID)
	v.db().recommendations[r.ID] = *r
	return nil
}

func (v view) ListRecommendations(ctx context.Context, techniqueID string) ([]breathing.Recommendation, error) {
	defer v.lock()()
	out := []breathing.Recommendation{}
	for _, r := range v.db().recommendations {
		if r.TechniqueID == techniqueID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (v view) TechniquesForCondition(ctx context.Context, condition string) ([]breathing.Technique, error) {
	defer v.lock()()
	type ranked struct {
		t        breathing.Technique
		priority int
	}
	best := map[string]ranked{}
	for _, r := range v.db().recommendations {
		if !strings.EqualFold(r.Condition, condition) {
			continue
		}
		t, ok := v.db().techniques[r.TechniqueID]
		if !ok || !t.IsActive {
			continue
		}
		if cur, seen := best[t.ID]; !seen || r.Priority < cur.priority {
			best[t.ID] = ranked{t: t, priority: r.Priority}
		}
	}
	list := make([]ranked, 0, len(best))
	for _, r := range best {
		list = append(list, r)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].priority != list[j].priority {
			return list[i].priority < list[j].priority
		}
		return list[i].t.Name < list[j].t.Name
	})
	out := make([]breathing.Technique, 0, len(list))
	for _, r := range list {
		out = append(out, r.t)
	}
	return out, nil
}

func (v view) withTechniqueName(s breathing.Session) breathing.Session {
	if t, ok := v.db().techniques[s.TechniqueID]; ok {
		s.TechniqueName = t.Name
	}
	return s
}

func (v view) CreateBreathingSession(ctx context.Context, s *breathing.Session) error {
	defer v.lock()()
	if _, ok := v.db().techniques[s.TechniqueID]; !ok {
		return store.ErrNotFound
	}
	ensureID(&s.ID)
	if s.CompletedAt.IsZero() {
		s.CompletedAt = now()
	}
	v.db().breathing = append(v.db().breathing, *s)
	return nil
}

func (v view) GetBreathingSession(ctx context.Context, userID, id string) (*breathing.Session, error) {
	defer v.lock()()
	for _, s := range v.db().breathing {
		if s.ID == id && s.UserID == userID {
			s = v.withTechniqueName(s)
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) ListBreathingSessions(ctx context.Context, userID string, f breathing.SessionFilter) ([]breathing.Session, error) {
	defer v.lock()()
	out := []breathing.Session{}
	for _, s := range v.db().breathing {
		if s.UserID == userID && f.Match(&s) {
			out = append(out, v.withTechniqueName(s))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

// ---- chat ----

func (v view) CreateChatSession(ctx context.Context, s *chat.Session) error {
	defer v.lock()()
	ensureID(&s.ID)
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	v.db().chatSessions[s.ID] = *s
	return nil
}

func (v view) GetChatSession(ctx context.Context, userID, id string) (*chat.Session, error) {
	defer v.lock()()
	s, ok := v.db().chatSessions[id]
	if !ok || s.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (v view) GetChatSessionByID(ctx context.Context, id string) (*chat.Session, error) {
	defer v.lock()()
	s, ok := v.db().chatSessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (v view) ListChatSessions(ctx context.Context, userID string) ([]chat.Session, error) {
	defer v.lock()()
	out := []chat.Session{}
	for _, s := range v.db().chatSessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (v view) UpdateChatSession(ctx context.Context, s *chat.Session) error {
	defer v.lock()()
	if _, ok := v.db().chatSessions[s.ID]; !ok {
		return store.ErrNotFound
	}
	v.db().chatSessions[s.ID] = *s
	return nil
}

func (v view) DeleteChatSession(ctx context.Context, userID, id string) error {
	defer v.lock()()
	s, ok := v.db().chatSessions[id]
	if !ok || s.UserID != userID {
		return store.ErrNotFound
	}
	delete(v.db().chatSessions, id)
	kept := v.db().chatMessages[:0]
	for _, m := range v.db().chatMessages {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	v.db().chatMessages = kept
	return nil
}

func copyMessage(m chat.Message) chat.Message {
	if m.Metadata != nil {
		m.Metadata = append([]byte(nil), m.Metadata...)
	}
	return m
}

func (v view) CreateChatMessage(ctx context.Context, m *chat.Message) error {
	defer v.lock()()
	if _, ok := v.db().chatSessions[m.SessionID]; !ok {
		return store.ErrNotFound
	}
	ensureID(&m.ID)
	if m.Timestamp.IsZero() {
		m.Timestamp = now()
	}
	v.db().chatMessages = append(v.db().chatMessages, copyMessage(*m))
	return nil
}

func (v view) GetChatMessage(ctx context.Context, id string) (*chat.Message, error) {
	defer v.lock()()
	for _, m := range v.db().chatMessages {
		if m.ID == id {
			m = copyMessage(m)
			return &m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) ListChatMessages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	defer v.lock()()
	out := []chat.Message{}
	for _, m := range v.db().chatMessages {
		if m.SessionID == sessionID {
			out = append(out, copyMessage(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (v view) MarkMessagesRead(ctx context.Context, sessionID string, sender chat.Sender) (int, error) {
	defer v.lock()()
	n := 0
	for i, m := range v.db().chatMessages {
		if m.SessionID == sessionID && m.Sender == sender && !m.IsRead {
			v.db().chatMessages[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (v view) SaveAssistantPrompt(ctx context.Context, p *chat.AssistantPrompt) error {
	defer v.lock()()
	ensureID(&p.ID)
	v.db().assistantPrompts[p.ID] = *p
	return nil
}

func (v view) ListAssistantPrompts(ctx context.Context, category chat.PromptCategory) ([]chat.AssistantPrompt, error) {
	defer v.lock()()
	out := []chat.AssistantPrompt{}
	for _, p := range v.db().assistantPrompts {
		if p.IsActive && (category == "" || p.Category == category) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Title < out[j].Title
	})
	return out, nil
}

// ---- devices ----

func (v view) SaveDeviceToken(ctx context.Context, t *notification.DeviceToken) error {
	defer v.lock()()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	v.db().devices[key(t.UserID, t.Token)] = *t
	return nil
}

func (v view) ListDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	defer v.lock()()
	out := []notification.DeviceToken{}
	for _, t := range v.db().devices {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (v view) DeleteDeviceToken(ctx context.Context, userID, token string) error {
	defer v.lock()()
	k := key(userID, token)
	if _, ok := v.db().devices[k]; !ok {
		return store.ErrNotFound
	}
	delete(v.db().devices, k)
	return nil
}
