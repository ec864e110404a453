package model

import "time"

// Schedule is a return-time proposal attached 1:1 to a session.
// A rejected proposal is overwritten in place by the next one.
type Schedule struct {
	ID               int64     `json:"id"`
	SessionID        int64     `json:"session_id"`
	ProposedTime     time.Time `json:"proposed_time"`
	ProposedLocation string    `json:"proposed_location"`
	Notes            string    `json:"notes,omitempty"`
	Status           string    `json:"status"`
	RejectReason     string    `json:"reject_reason,omitempty"`
	SeekerConfirmed  bool      `json:"seeker_confirmed"`
	FinderConfirmed  bool      `json:"finder_confirmed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Schedule statuses.
const (
	SchedulePending  = "pending"
	ScheduleApproved = "approved"
	ScheduleRejected = "rejected"
)
