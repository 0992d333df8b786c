package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindwellAPI/internal/breathing"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/validation"
)

func TestCreateSessionValidatesDuration(t *testing.T) {
	f := newFixture(t)
	s := NewBreathingService(f.store, f.queue, f.clock, nil)
	ctx := context.Background()
	u := f.newUser(t, "alice")
	box := store.SeedID("technique", "Box Breathing")

	// 16s per cycle, so 5 cycles need at least 40 seconds.
	_, err := s.CreateSession(ctx, u.ID, &breathing.CreateSessionRequest{TechniqueID: box, CompletedCycles: 5, DurationSeconds: 39})
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Contains(t, verr.Fields, "duration_seconds")

	_, err = s.CreateSession(ctx, u.ID, &breathing.CreateSessionRequest{TechniqueID: box, CompletedCycles: 0, DurationSeconds: 60})
	_, ok = validation.As(err)
	assert.True(t, ok)

	list, err := s.ListSessions(ctx, u.ID, breathing.SessionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateSessionAwardsPoints(t *testing.T) {
	f := newFixture(t)
	s := NewBreathingService(f.store, f.queue, f.clock, nil)
	ctx := context.Background()
	u := f.newUser(t, "alice")
	box := store.SeedID("technique", "Box Breathing")

	resp, err := s.CreateSession(ctx, u.ID, &breathing.CreateSessionRequest{TechniqueID: box, CompletedCycles: 5, DurationSeconds: 125})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.PointsEarned)
	assert.Equal(t, "Box Breathing", resp.TechniqueName)
	assert.Empty(t, f.drain(t))

	u.Points = 95
	require.NoError(t, f.store.UpdateUser(ctx, u))
	resp, err = s.CreateSession(ctx, u.ID, &breathing.CreateSessionRequest{TechniqueID: box, CompletedCycles: 5, DurationSeconds: 60})
	require.NoError(t, err)
	assert.Equal(t, 5, resp.PointsEarned)
	assert.Equal(t, 2, resp.NewLevel)
	assert.Equal(t, []string{queue.TypeNotifyLevelUp}, taskTypes(f.drain(t)))

	got, err := s.GetSession(ctx, u.ID, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, got.DurationSeconds)

	other := f.newUser(t, "bob")
	_, err = s.GetSession(ctx, other.ID, resp.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecommended(t *testing.T) {
	f := newFixture(t)
	s := NewBreathingService(f.store, f.queue, f.clock, nil)
	ctx := context.Background()

	_, err := s.Recommended(ctx, "")
	_, ok := validation.As(err)
	assert.True(t, ok)

	list, err := s.Recommended(ctx, "STRESS")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "4-7-8", list[0].Name)
	assert.Equal(t, "Deep Belly Breathing", list[2].Name)

	fallback, err := s.Recommended(ctx, "hiccups")
	require.NoError(t, err)
	require.NotEmpty(t, fallback)
	for _, tech := range fallback {
		assert.Equal(t, breathing.Beginner, tech.Difficulty)
	}
}

func TestTechniqueResponseShape(t *testing.T) {
	f := newFixture(t)
	s := NewBreathingService(f.store, f.queue, f.clock, nil)

	got, err := s.GetTechnique(context.Background(), store.SeedID("technique", "4-7-8"))
	require.NoError(t, err)
	assert.Equal(t, 7, got.Pattern.HoldInTime)
	assert.Equal(t, []string{"Reduces stress", "Helps with falling asleep", "Eases anxiety"}, got.Benefits)
	assert.ElementsMatch(t, []string{"stress", "insomnia", "anxiety"}, got.RecommendedFor)
}
