package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"mindwellAPI/internal/achievement"
	"mindwellAPI/internal/exercise"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/validation"
	"mindwellAPI/services"
)

type TherapyHandler struct {
	exercises    *services.ExerciseService
	achievements *services.AchievementService
	progress     *services.ProgressService
	log          *logger.Logger
}

func NewTherapyHandler(exercises *services.ExerciseService, achievements *services.AchievementService, progress *services.ProgressService, log *logger.Logger) *TherapyHandler {
	return &TherapyHandler{
		exercises:    exercises,
		achievements: achievements,
		progress:     progress,
		log:          log.With("handler", "TherapyHandler"),
	}
}

func exerciseFilter(r *http.Request) (exercise.Filter, error) {
	var verr validation.Error
	q := r.URL.Query()
	f := exercise.Filter{
		Title:       strings.TrimSpace(q.Get("title")),
		Type:        exercise.Type(q.Get("type")),
		DurationMin: queryInt(r, "duration_min", &verr),
		DurationMax: queryInt(r, "duration_max", &verr),
	}
	if f.Type != "" && !f.Type.Valid() {
		verr.Add("type", "unknown exercise type")
	}
	return f, verr.OrNil()
}

// GET /api/v1/therapy/exercises
func (h *TherapyHandler) ListExercises(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	f, err := exerciseFilter(r)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	list, err := h.exercises.ListExercises(ctx, userID, f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/therapy/exercises/{id}
func (h *TherapyHandler) GetExercise(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	e, err := h.exercises.GetExercise(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, e)
}

// POST /api/v1/therapy/exercises/{id}/complete
func (h *TherapyHandler) CompleteExercise(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req exercise.CompleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.exercises.Complete(ctx, userID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// GET /api/v1/therapy/completed-exercises
func (h *TherapyHandler) ListCompletedExercises(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.exercises.ListCompletions(ctx, userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/therapy/daily-prompts
func (h *TherapyHandler) ListDailyPrompts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var verr validation.Error
	limit := queryInt(r, "limit", &verr)
	if err := verr.OrNil(); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	list, err := h.exercises.ListDailyPrompts(ctx, limit)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/therapy/daily-prompts/today
func (h *TherapyHandler) TodayPrompt(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := h.exercises.TodayPrompt(ctx)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

// GET /api/v1/therapy/achievements
func (h *TherapyHandler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	f := achievement.Filter{
		Title:    strings.TrimSpace(r.URL.Query().Get("title")),
		Category: achievement.Category(r.URL.Query().Get("category")),
	}
	if f.Category != "" && !f.Category.Valid() {
		writeServiceError(w, h.log, validation.Field("category", "unknown achievement category"))
		return
	}
	list, err := h.achievements.List(ctx, userID, f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/therapy/achievements/{id}
func (h *TherapyHandler) GetAchievement(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	a, err := h.achievements.Get(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, a)
}

// GET /api/v1/therapy/progress
func (h *TherapyHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.progress.Get(ctx, userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}
