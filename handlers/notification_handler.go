package handlers

import (
	"context"
	"net/http"

	"mindwellAPI/internal/logger"
	"mindwellAPI/internal/notification"
	"mindwellAPI/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	log           *logger.Logger
}

func NewNotificationHandler(notifications *services.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log.With("handler", "NotificationHandler")}
}

// POST /api/v1/notifications/register-device
func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req notification.RegisterDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	device, err := h.notifications.RegisterDevice(ctx, userID, &req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, device)
}

// DELETE /api/v1/notifications/register-device
func (h *NotificationHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req notification.UnregisterDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.notifications.UnregisterDevice(ctx, userID, &req); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
