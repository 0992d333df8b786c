package services

import (
	"context"
	"fmt"

	"mindwellAPI/internal/breathing"
	"mindwellAPI/internal/gamification"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/queue"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/validation"
)

type BreathingService struct {
	store store.Store
	queue queue.Queue
	log   *logger.Logger
	clock Clock
}

func NewBreathingService(st store.Store, q queue.Queue, clock Clock, log *logger.Logger) *BreathingService {
	return &BreathingService{store: st, queue: q, clock: clock, log: orNop(log).With("service", "BreathingService")}
}

func (s *BreathingService) describe(ctx context.Context, t *breathing.Technique) (breathing.TechniqueResponse, error) {
	recs, err := s.store.ListRecommendations(ctx, t.ID)
	if err != nil {
		return breathing.TechniqueResponse{}, fmt.Errorf("failed to list recommendations: %w", err)
	}
	conditions := make([]string, 0, len(recs))
	for _, r := range recs {
		conditions = append(conditions, r.Condition)
	}
	return breathing.TechniqueResponse{
		Technique:      t,
		Benefits:       t.BenefitList(),
		Pattern:        t.Pattern(),
		RecommendedFor: conditions,
	}, nil
}

func (s *BreathingService) describeAll(ctx context.Context, list []breathing.Technique) ([]breathing.TechniqueResponse, error) {
	out := make([]breathing.TechniqueResponse, 0, len(list))
	for i := range list {
		r, err := s.describe(ctx, &list[i])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *BreathingService) ListTechniques(ctx context.Context, f breathing.TechniqueFilter) ([]breathing.TechniqueResponse, error) {
	list, err := s.store.ListTechniques(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list techniques: %w", err)
	}
	return s.describeAll(ctx, list)
}

func (s *BreathingService) GetTechnique(ctx context.Context, id string) (*breathing.TechniqueResponse, error) {
	t, err := s.store.GetTechnique(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get technique: %w", err)
	}
	r, err := s.describe(ctx, t)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Recommended returns the techniques for condition by priority, or the
// beginner techniques when none match.
func (s *BreathingService) Recommended(ctx context.Context, condition string) ([]breathing.TechniqueResponse, error) {
	if condition == "" {
		return nil, validation.Field("condition", "this field is required")
	}
	list, err := s.store.TechniquesForCondition(ctx, condition)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommended techniques: %w", err)
	}
	if len(list) == 0 {
		s.log.Debug("no technique for condition, using beginner set", "condition", condition)
		if list, err = s.store.ListTechniques(ctx, breathing.TechniqueFilter{Difficulty: breathing.Beginner}); err != nil {
			return nil, fmt.Errorf("failed to list techniques: %w", err)
		}
	}
	return s.describeAll(ctx, list)
}

// sessionPoints is one PointsPerMinute for every full minute.
func sessionPoints(durationSeconds int) int {
	return durationSeconds / 60 * breathing.PointsPerMinute
}

func (s *BreathingService) CreateSession(ctx context.Context, userID string, req *breathing.CreateSessionRequest) (*breathing.SessionResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var (
		resp      *breathing.SessionResponse
		leveledUp bool
	)
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		t, err := q.GetTechnique(ctx, req.TechniqueID)
		if err != nil {
			return fmt.Errorf("failed to get technique: %w", err)
		}
		// At least half the nominal time of the reported cycles.
		if minSeconds := t.CycleDuration() * req.CompletedCycles / 2; req.DurationSeconds < minSeconds {
			return validation.Field("duration_seconds", fmt.Sprintf("must be at least %d seconds for %d cycles", minSeconds, req.CompletedCycles))
		}
		u, err := q.GetUserByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		sess := &breathing.Session{
			UserID:          userID,
			TechniqueID:     t.ID,
			CompletedCycles: req.CompletedCycles,
			DurationSeconds: req.DurationSeconds,
			Notes:           req.Notes,
			CompletedAt:     s.clock.now().UTC(),
		}
		if err := q.CreateBreathingSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to save breathing session: %w", err)
		}
		sess.TechniqueName = t.Name

		points := sessionPoints(req.DurationSeconds)
		if leveledUp, err = gamification.Award(u, points); err != nil {
			return err
		}
		if err := q.UpdateUser(ctx, u); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		resp = &breathing.SessionResponse{Session: sess, PointsEarned: points, NewLevel: u.Level}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if leveledUp {
		enqueue(ctx, s.queue, s.log, queue.TypeNotifyLevelUp, queue.NotifyLevelUpPayload{UserID: userID, Level: resp.NewLevel})
	}
	return resp, nil
}

func (s *BreathingService) GetSession(ctx context.Context, userID, id string) (*breathing.Session, error) {
	sess, err := s.store.GetBreathingSession(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get breathing session: %w", err)
	}
	return sess, nil
}

func (s *BreathingService) ListSessions(ctx context.Context, userID string, f breathing.SessionFilter) ([]breathing.Session, error) {
	list, err := s.store.ListBreathingSessions(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list breathing sessions: %w", err)
	}
	return list, nil
}
