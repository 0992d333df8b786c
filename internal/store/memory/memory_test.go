package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/breathing"
	"mindwellAPI/internal/chat"
	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/mood"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/user"
)

func newUser(t *testing.T, s *Store, name string) *user.User {
	t.Helper()
	u := &user.User{Username: name, Email: name + "@example.com", Level: 1}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestCreateUserConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()
	newUser(t, s, "alice")

	err := s.CreateUser(ctx, &user.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)

	err = s.CreateUser(ctx, &user.User{Username: "bob", Email: "ALICE@example.com"})
	assert.ErrorIs(t, err, store.ErrConflict)

	got, err := s.GetUserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := newUser(t, s, "alice")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q store.Queries) error {
		u.Points = 500
		require.NoError(t, q.UpdateUser(ctx, u))
		require.NoError(t, q.SaveExercise(ctx, &exercise.Exercise{Title: "Temp", Type: exercise.TypeMeditation}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Points)

	list, err := s.ListExercises(ctx, exercise.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := newUser(t, s, "alice")

	err := s.WithTx(ctx, func(q store.Queries) error {
		u.Points = 40
		return q.UpdateUser(ctx, u)
	})
	require.NoError(t, err)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Points)
}

func TestUnlockAchievementOnce(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := newUser(t, s, "alice")
	a := &achievement.Achievement{Title: "First Steps", Category: achievement.CategoryMilestones, RequiredValue: 1, Points: 10}
	require.NoError(t, s.SaveAchievement(ctx, a))

	_, err := s.UnlockAchievement(ctx, u.ID, a.ID, time.Now())
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.SetAchievementProgress(ctx, u.ID, a.ID, 1))
	ok, err := s.UnlockAchievement(ctx, u.ID, a.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.UnlockAchievement(ctx, u.ID, a.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	// Progress updates keep the unlock timestamp.
	require.NoError(t, s.SetAchievementProgress(ctx, u.ID, a.ID, 3))
	list, err := s.ListUserAchievements(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].CurrentValue)
	assert.NotNil(t, list[0].UnlockedAt)
}

func TestMoodEntryOnePerDay(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := newUser(t, s, "alice")
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := &mood.Entry{UserID: u.ID, Mood: mood.Good, Date: day, Factors: []string{"sleep"}}
	require.NoError(t, s.SaveMoodEntry(ctx, first))

	err := s.SaveMoodEntry(ctx, &mood.Entry{UserID: u.ID, Mood: mood.Bad, Date: day})
	assert.ErrorIs(t, err, store.ErrConflict)

	// Updating the same entry is fine.
	first.Mood = mood.VeryGood
	require.NoError(t, s.SaveMoodEntry(ctx, first))

	got, err := s.GetMoodEntryByDate(ctx, u.ID, day)
	require.NoError(t, err)
	assert.Equal(t, mood.VeryGood, got.Mood)

	// Returned slices are copies.
	got.Factors[0] = "changed"
	again, err := s.GetMoodEntry(ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sleep"}, again.Factors)

	_, err = s.GetMoodEntry(ctx, "someone-else", first.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompletionsBetween(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := newUser(t, s, "alice")
	e := &exercise.Exercise{Title: "Meditate", Type: exercise.TypeMeditation, Points: 10}
	require.NoError(t, s.SaveExercise(ctx, e))

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		c := &exercise.CompletedExercise{UserID: u.ID, ExerciseID: e.ID, CompletedAt: base.AddDate(0, 0, i)}
		require.NoError(t, s.CreateCompletion(ctx, c))
	}

	from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	got, err := s.CompletionsBetween(ctx, u.ID, e.ID, from, from.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Meditate", got[0].Exercise.Title)

	n, err := s.CountCompletions(ctx, u.ID, exercise.TypeMeditation)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.CountCompletions(ctx, u.ID, exercise.TypeJournaling)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	err = s.CreateCompletion(ctx, &exercise.CompletedExercise{UserID: u.ID, ExerciseID: "missing"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTechniquesForCondition(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx, s))

	got, err := s.TechniquesForCondition(ctx, "STRESS")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "4-7-8", got[0].Name)
	assert.Equal(t, "Box Breathing", got[1].Name)
	assert.Equal(t, "Deep Belly Breathing", got[2].Name)

	got, err = s.TechniquesForCondition(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSeedIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, store.Seed(ctx, s))
	require.NoError(t, store.Seed(ctx, s))

	exercises, err := s.ListExercises(ctx, exercise.Filter{})
	require.NoError(t, err)
	assert.Len(t, exercises, 5)

	achievements, err := s.ListAchievements(ctx, achievement.Filter{})
	require.NoError(t, err)
	assert.Len(t, achievements, 8)

	techniques, err := s.ListTechniques(ctx, breathing.TechniqueFilter{})
	require.NoError(t, err)
	assert.Len(t, techniques, 5)

	prompts, err := s.ListAssistantPrompts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, prompts, 7)
}

func TestChatMessagesFollowSession(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := newUser(t, s, "alice")

	sess := &chat.Session{UserID: u.ID, Title: chat.DefaultTitle, IsActive: true}
	require.NoError(t, s.CreateChatSession(ctx, sess))

	base := time.Now().UTC()
	require.NoError(t, s.CreateChatMessage(ctx, &chat.Message{SessionID: sess.ID, Content: "hi", Sender: chat.SenderUser, Timestamp: base}))
	require.NoError(t, s.CreateChatMessage(ctx, &chat.Message{SessionID: sess.ID, Content: "hello", Sender: chat.SenderAssistant, Timestamp: base.Add(time.Second)}))

	n, err := s.MarkMessagesRead(ctx, sess.ID, chat.SenderAssistant)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err := s.ListChatMessages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.True(t, msgs[1].IsRead)

	require.NoError(t, s.DeleteChatSession(ctx, u.ID, sess.ID))
	msgs, err = s.ListChatMessages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
