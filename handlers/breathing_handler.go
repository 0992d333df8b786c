package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"mindwellAPI/internal/breathing"
	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/validation"
	"mindwellAPI/services"
)

type BreathingHandler struct {
	breathing *services.BreathingService
	log       *logger.Logger
}

func NewBreathingHandler(breathing *services.BreathingService, log *logger.Logger) *BreathingHandler {
	return &BreathingHandler{breathing: breathing, log: log.With("handler", "BreathingHandler")}
}

// GET /api/v1/breathing/techniques
func (h *BreathingHandler) ListTechniques(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var verr validation.Error
	f := breathing.TechniqueFilter{
		Name:        strings.TrimSpace(r.URL.Query().Get("name")),
		Difficulty:  breathing.Difficulty(r.URL.Query().Get("difficulty")),
		DurationMin: queryInt(r, "duration_min", &verr),
		DurationMax: queryInt(r, "duration_max", &verr),
	}
	switch f.Difficulty {
	case "", breathing.Beginner, breathing.Intermediate, breathing.Advanced:
	default:
		verr.Add("difficulty", "must be beginner, intermediate or advanced")
	}
	if err := verr.OrNil(); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	list, err := h.breathing.ListTechniques(ctx, f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/breathing/techniques/recommended?condition=anxiety
func (h *BreathingHandler) Recommended(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	list, err := h.breathing.Recommended(ctx, r.URL.Query().Get("condition"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/breathing/techniques/{id}
func (h *BreathingHandler) GetTechnique(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	t, err := h.breathing.GetTechnique(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, t)
}

// POST /api/v1/breathing/sessions
func (h *BreathingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req breathing.CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.breathing.CreateSession(ctx, userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *BreathingHandler) listSessions(w http.ResponseWriter, r *http.Request, f breathing.SessionFilter) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.breathing.ListSessions(ctx, userID, f)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// GET /api/v1/breathing/sessions
func (h *BreathingHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	h.listSessions(w, r, breathing.SessionFilter{})
}

// GET /api/v1/breathing/history?technique=&completed_from=&completed_to=
func (h *BreathingHandler) History(w http.ResponseWriter, r *http.Request) {
	var verr validation.Error
	f := breathing.SessionFilter{
		TechniqueID:   r.URL.Query().Get("technique"),
		CompletedFrom: queryTime(r, "completed_from", &verr),
		CompletedTo:   queryTime(r, "completed_to", &verr),
	}
	if err := verr.OrNil(); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	h.listSessions(w, r, f)
}

// GET /api/v1/breathing/sessions/{id}
func (h *BreathingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	s, err := h.breathing.GetSession(ctx, userID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}
