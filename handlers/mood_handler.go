package handlers

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/mood"
	"mindwellAPI/internal/validation"
	"mindwellAPI/services"
)

type MoodHandler struct {
	moods *services.MoodService
	log   *logger.Logger
}

func NewMoodHandler(moods *services.MoodService, log *logger.Logger) *MoodHandler {
	return &MoodHandler{moods: moods, log: log.With("handler", "MoodHandler")}
}

// POST /api/v1/mood/entries
// Responds 201 for a new entry and 200 when the day already had one.
func (h *MoodHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req mood.EntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, created, err := h.moods.Create(ctx, userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	respondWithJSON(w, code, entry)
}

// GET /api/v1/mood/entries
func (h *MoodHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var verr validation.Error
	f := mood.Filter{
		Mood:     mood.Mood(r.URL.Query().Get("mood")),
		DateFrom: queryDate(r, "date_from", &verr),
		DateTo:   queryDate(r, "date_to", &verr),
		Factor:   strings.TrimSpace(r.URL.Query().Get("factor")),
	}
	if f.Mood != "" && !slices.Contains(mood.Moods, f.Mood) {
		verr.Add("mood", "unknown mood")
	}
	if err := verr.OrNil(); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	list, err := h.moods.List(ctx, userID, f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/mood/entries/{id}
func (h *MoodHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.moods.Get(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// PUT/PATCH /api/v1/mood/entries/{id}
func (h *MoodHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req mood.EntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := h.moods.Update(ctx, userID, mux.Vars(r)["id"], &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// DELETE /api/v1/mood/entries/{id}
func (h *MoodHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.moods.Delete(ctx, userID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/mood/entries/today
func (h *MoodHandler) Today(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	entry, err := h.moods.Today(ctx, userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if entry == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusOK, entry)
}

// GET /api/v1/mood/entries/history?days=30
func (h *MoodHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var verr validation.Error
	days := queryInt(r, "days", &verr)
	if err := verr.OrNil(); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	list, err := h.moods.History(ctx, userID, days)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/mood/stats
func (h *MoodHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	stats, err := h.moods.Stats(ctx, userID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}
