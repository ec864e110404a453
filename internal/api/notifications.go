package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/najdeno/internal/store"
)

// NotificationsHandler handles the user's notification inbox.
type NotificationsHandler struct {
	DB *sql.DB
}

// List handles GET /api/notifications. Supports unread=true.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	notifications, err := store.ListNotifications(r.Context(), h.DB, claims.UserID,
		r.URL.Query().Get("unread") == "true")
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	jsonResponse(w, http.StatusOK, notifications)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	marked, err := store.MarkNotificationRead(r.Context(), h.DB, id, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !marked {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "marked read"})
}
