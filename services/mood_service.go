package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mindwellAPI/internal/gamification"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/mood"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/validation"
	"mindwellAPI/utils"
)

const (
	defaultHistoryDays = 30
	topFactorCount     = 5
)

type MoodService struct {
	store store.Store
	log   *logger.Logger
	clock Clock
}

func NewMoodService(st store.Store, clock Clock, log *logger.Logger) *MoodService {
	return &MoodService{store: st, clock: clock, log: orNop(log).With("service", "MoodService")}
}

func dedupeFactors(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// entryDate resolves the request date, defaulting to today. Future dates are rejected.
func (s *MoodService) entryDate(raw *string) (day time.Time, err error) {
	today := s.clock.Today()
	if raw == nil || *raw == "" {
		return today, nil
	}
	d, err := utils.ParseDate(*raw)
	if err != nil {
		return today, validation.Field("date", "must be a date in YYYY-MM-DD format")
	}
	if d.After(today) {
		return today, validation.Field("date", "must not be in the future")
	}
	return d, nil
}

func applyMoodRequest(e *mood.Entry, req *mood.EntryRequest) {
	if req.Mood != nil {
		e.Mood = *req.Mood
	}
	if req.Notes != nil {
		e.Notes = *req.Notes
	}
	if req.Factors != nil {
		e.Factors = dedupeFactors(*req.Factors)
	}
	if e.Factors == nil {
		e.Factors = []string{}
	}
}

// Create stores the entry for the request date. When that date already has
// an entry it is updated in place and created is false.
func (s *MoodService) Create(ctx context.Context, userID string, req *mood.EntryRequest) (entry *mood.Entry, created bool, err error) {
	if err := validation.Struct(req); err != nil {
		return nil, false, err
	}
	day, err := s.entryDate(req.Date)
	if err != nil {
		return nil, false, err
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		existing, err := q.GetMoodEntryByDate(ctx, userID, day)
		switch {
		case err == nil:
			entry = existing
		case errors.Is(err, store.ErrNotFound):
			if req.Mood == nil {
				return validation.Field("mood", "this field is required")
			}
			entry = &mood.Entry{UserID: userID, Date: day}
			created = true
		default:
			return fmt.Errorf("failed to get mood entry: %w", err)
		}

		applyMoodRequest(entry, req)
		if err := q.SaveMoodEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to save mood entry: %w", err)
		}
		return s.recompute(ctx, q, userID)
	})
	if err != nil {
		return nil, false, err
	}
	return entry, created, nil
}

func (s *MoodService) Update(ctx context.Context, userID, id string, req *mood.EntryRequest) (*mood.Entry, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	var entry *mood.Entry
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		if entry, err = q.GetMoodEntry(ctx, userID, id); err != nil {
			return fmt.Errorf("failed to get mood entry: %w", err)
		}
		if req.Date != nil {
			day, err := s.entryDate(req.Date)
			if err != nil {
				return err
			}
			entry.Date = day
		}

		applyMoodRequest(entry, req)
		if err := q.SaveMoodEntry(ctx, entry); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return validation.Field("date", "an entry already exists for this date")
			}
			return fmt.Errorf("failed to save mood entry: %w", err)
		}
		return s.recompute(ctx, q, userID)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *MoodService) Delete(ctx context.Context, userID, id string) error {
	return s.store.WithTx(ctx, func(q store.Queries) error {
		if err := q.DeleteMoodEntry(ctx, userID, id); err != nil {
			return fmt.Errorf("failed to delete mood entry: %w", err)
		}
		return s.recompute(ctx, q, userID)
	})
}

// recompute rebuilds the user's MoodStats from every entry.
func (s *MoodService) recompute(ctx context.Context, q store.Queries, userID string) error {
	entries, err := q.ListMoodEntries(ctx, userID, mood.Filter{})
	if err != nil {
		return fmt.Errorf("failed to list mood entries: %w", err)
	}

	stats := &mood.Stats{UserID: userID, AverageMood: mood.DefaultAverage, UpdatedAt: s.clock.now().UTC()}
	if len(entries) > 0 {
		total := 0
		dates := make([]time.Time, 0, len(entries))
		for _, e := range entries {
			total += e.Mood.Score()
			dates = append(dates, e.Date)
		}
		stats.AverageMood = float64(total) / float64(len(entries))
		stats.StreakDays, stats.LastEntryDate = gamification.DateStreak(dates, s.clock.Today())
	}
	if err := q.SaveMoodStats(ctx, stats); err != nil {
		return fmt.Errorf("failed to save mood stats: %w", err)
	}
	return nil
}

func (s *MoodService) Get(ctx context.Context, userID, id string) (*mood.Entry, error) {
	e, err := s.store.GetMoodEntry(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get mood entry: %w", err)
	}
	return e, nil
}

func (s *MoodService) List(ctx context.Context, userID string, f mood.Filter) ([]mood.Entry, error) {
	list, err := s.store.ListMoodEntries(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood entries: %w", err)
	}
	return list, nil
}

// Today returns nil without an error when nothing was logged today.
func (s *MoodService) Today(ctx context.Context, userID string) (*mood.Entry, error) {
	e, err := s.store.GetMoodEntryByDate(ctx, userID, s.clock.Today())
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get today's mood entry: %w", err)
	}
	return e, nil
}

// History lists the entries of the last days days, today included.
func (s *MoodService) History(ctx context.Context, userID string, days int) ([]mood.Entry, error) {
	if days <= 0 {
		days = defaultHistoryDays
	}
	today := s.clock.Today()
	from := today.AddDate(0, 0, -(days - 1))
	return s.List(ctx, userID, mood.Filter{DateFrom: &from, DateTo: &today})
}

func (s *MoodService) Stats(ctx context.Context, userID string) (*mood.StatsResponse, error) {
	stats, err := s.store.GetMoodStats(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		stats, err = &mood.Stats{UserID: userID, AverageMood: mood.DefaultAverage}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mood stats: %w", err)
	}
	entries, err := s.List(ctx, userID, mood.Filter{})
	if err != nil {
		return nil, err
	}

	resp := &mood.StatsResponse{Stats: stats, MoodCounts: make(map[mood.Mood]int, len(mood.Moods)), TopFactors: []mood.FactorCount{}}
	for _, m := range mood.Moods {
		resp.MoodCounts[m] = 0
	}
	factors := map[string]int{}
	for _, e := range entries {
		resp.MoodCounts[e.Mood]++
		for _, f := range e.Factors {
			factors[f]++
		}
	}

	best := 0
	for _, m := range mood.Moods {
		if n := resp.MoodCounts[m]; n > best {
			best = n
			most := m
			resp.MostCommonMood = &most
		}
	}

	for f, n := range factors {
		resp.TopFactors = append(resp.TopFactors, mood.FactorCount{Factor: f, Count: n})
	}
	sort.Slice(resp.TopFactors, func(i, j int) bool {
		a, b := resp.TopFactors[i], resp.TopFactors[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Factor < b.Factor
	})
	if len(resp.TopFactors) > topFactorCount {
		resp.TopFactors = resp.TopFactors[:topFactorCount]
	}
	return resp, nil
}
