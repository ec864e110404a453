package model

import "time"

// Notification is a message delivered to a user's in-app inbox.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	SessionID *int64    `json:"session_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification kinds.
const (
	NotifyMatchFound        = "match_found"
	NotifyConfirmRequest    = "confirm_request"
	NotifySchedule          = "schedule"
	NotifyNoMatch           = "no_match"
	NotifyNegotiationUpdate = "negotiation_update"
)
