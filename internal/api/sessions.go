package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/negotiation"
	"github.com/erazemk/najdeno/internal/store"
)

// SessionsHandler handles negotiation session endpoints.
type SessionsHandler struct {
	DB      *sql.DB
	Service *negotiation.Service
}

type sessionDetail struct {
	*model.Session
	Transcript []model.Turn    `json:"transcript"`
	Schedule   *model.Schedule `json:"schedule,omitempty"`
}

type confirmRequest struct {
	Confirmed *bool `json:"confirmed"`
}

type proposeScheduleRequest struct {
	ProposedTime time.Time `json:"proposed_time"`
	Location     string    `json:"location"`
	Notes        string    `json:"notes"`
}

type rejectScheduleRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/sessions, returning the caller's sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	sessions, err := store.ListSessionsForUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	jsonResponse(w, http.StatusOK, sessions)
}

// Get handles GET /api/sessions/{id}, returning the session with its full
// transcript and schedule.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := store.GetSession(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if session == nil {
		jsonError(w, http.StatusNotFound, "session not found")
		return
	}

	visible, err := store.SessionVisibleToUser(r.Context(), h.DB, id, claims.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !visible {
		jsonError(w, http.StatusForbidden, "not your session")
		return
	}

	transcript, err := store.ListTurns(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}
	schedule, err := store.GetScheduleBySession(r.Context(), h.DB, id)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	jsonResponse(w, http.StatusOK, sessionDetail{
		Session:    session,
		Transcript: transcript,
		Schedule:   schedule,
	})
}

// Confirm handles POST /api/sessions/{id}/confirm.
func (h *SessionsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil || req.Confirmed == nil {
		jsonError(w, http.StatusBadRequest, "confirmed (true or false) required")
		return
	}

	session, err := h.Service.Confirm(r.Context(), id, claims.UserID, *req.Confirmed)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, session)
}

// ForceMatch handles POST /api/sessions/{id}/force.
func (h *SessionsHandler) ForceMatch(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.Service.ForceMatch(r.Context(), id, claims.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, session)
}

// ProposeSchedule handles POST /api/sessions/{id}/schedule.
func (h *SessionsHandler) ProposeSchedule(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req proposeScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	schedule, err := h.Service.ProposeSchedule(r.Context(), id, claims.UserID,
		req.ProposedTime, req.Location, req.Notes)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, schedule)
}

// ApproveSchedule handles POST /api/sessions/{id}/schedule/approve.
func (h *SessionsHandler) ApproveSchedule(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	schedule, err := h.Service.ApproveSchedule(r.Context(), id, claims.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, schedule)
}

// RejectSchedule handles POST /api/sessions/{id}/schedule/reject.
func (h *SessionsHandler) RejectSchedule(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req rejectScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	schedule, err := h.Service.RejectSchedule(r.Context(), id, claims.UserID, req.Reason)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, schedule)
}

// ConfirmReturn handles POST /api/sessions/{id}/return.
func (h *SessionsHandler) ConfirmReturn(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil || req.Confirmed == nil {
		jsonError(w, http.StatusBadRequest, "confirmed (true or false) required")
		return
	}

	session, err := h.Service.ConfirmReturn(r.Context(), id, claims.UserID, *req.Confirmed)
	if err != nil {
		serviceError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, session)
}
