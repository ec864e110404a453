package model

import "time"

// Session represents one attempt to pair a specific lost item with a
// specific found item. Item references are nullable: they are cleared
// just before the items themselves are deleted after a completed return.
type Session struct {
	ID              int64      `json:"id"`
	LostItemID      *int64     `json:"lost_item_id"`
	FoundItemID     *int64     `json:"found_item_id"`
	Status          string     `json:"status"`
	MatchScore      float64    `json:"match_score"`
	SeekerConfirmed *bool      `json:"seeker_confirmed"`
	FinderConfirmed *bool      `json:"finder_confirmed"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Session statuses.
const (
	// Automatic negotiation phase.
	SessionActive         = "active"
	SessionPendingConfirm = "pending_confirm"
	SessionFailed         = "failed"

	// Human confirmation and scheduling phase.
	SessionConfirmed       = "confirmed"
	SessionRejected        = "rejected"
	SessionSchedulePending = "schedule_pending"
	SessionWaitingReturn   = "waiting_return"
	SessionReturned        = "returned"
	SessionReturnFailed    = "return_failed"
)

// Live reports whether the session still holds its items. Items referenced
// by a live session cannot be deleted.
func LiveSessionStatus(status string) bool {
	switch status {
	case SessionActive, SessionPendingConfirm, SessionConfirmed,
		SessionSchedulePending, SessionWaitingReturn:
		return true
	}
	return false
}

// Turn is one exchanged message in a session's transcript. The transcript
// stored with the session is the source of truth; agents only hold copies.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Seq       int       `json:"seq"`
	Sender    string    `json:"sender"`
	Action    string    `json:"action"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn senders.
const (
	SenderSeeker = "Seeker"
	SenderFinder = "Finder"
	SenderSystem = "System"
)

// FailedMatch permanently excludes one lost/found pair from matching.
type FailedMatch struct {
	ID          int64     `json:"id"`
	LostItemID  int64     `json:"lost_item_id"`
	FoundItemID int64     `json:"found_item_id"`
	SessionID   *int64    `json:"session_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Lease records exclusive ownership of a negotiating item by a session.
// An expired lease marks an item orphaned by a crashed session run.
type Lease struct {
	ItemID     int64     `json:"item_id"`
	SessionID  int64     `json:"session_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
