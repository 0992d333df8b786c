package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/store"
	"mindwellAPI/internal/validation"
	"mindwellAPI/middleware"
	"mindwellAPI/services"
	"mindwellAPI/utils"
)

const requestTimeout = 5 * time.Second

const maxBodyBytes = 1 << 20

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	if verr, ok := validation.As(err); ok {
		respondWithJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrUsernameTaken):
		respondWithError(w, http.StatusConflict, "Username already taken")
	case errors.Is(err, services.ErrEmailTaken):
		respondWithError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, store.ErrConflict):
		respondWithError(w, http.StatusConflict, "Conflict")
	case errors.Is(err, services.ErrDuplicateCompletion):
		respondWithError(w, http.StatusBadRequest, "exercise already completed today")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrInvalidToken):
		respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
	case errors.Is(err, services.ErrPasswordMismatch):
		respondWithError(w, http.StatusBadRequest, "Current password is incorrect")
	case errors.Is(err, context.DeadlineExceeded):
		respondWithError(w, http.StatusGatewayTimeout, "Request timed out")
	default:
		log.Error("request failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a JSON body. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	respondWithError(w, http.StatusBadRequest, "Invalid request body")
	return false
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
	}
	return userID, ok
}

// queryInt parses an optional integer parameter into a field error.
func queryInt(r *http.Request, name string, verr *validation.Error) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		verr.Add(name, "must be a non-negative integer")
		return 0
	}
	return n
}

func queryDate(r *http.Request, name string, verr *validation.Error) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	d, err := utils.ParseDate(raw)
	if err != nil {
		verr.Add(name, fmt.Sprintf("must be a date formatted %s", time.DateOnly))
		return nil
	}
	return &d
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(r *http.Request, name string, verr *validation.Error) *time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return queryDate(r, name, verr)
}
