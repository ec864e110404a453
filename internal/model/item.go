package model

import "time"

// Item represents a reported lost or found object.
type Item struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	AIDescription string    `json:"ai_description,omitempty"`
	Location      string    `json:"location,omitempty"`
	Status        string    `json:"status"`
	ImageMime     string    `json:"image_mime,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Item types.
const (
	TypeLost  = "lost"
	TypeFound = "found"
)

// Item statuses. Transitions are driven only by the matching and
// negotiation components, never set directly through the API.
const (
	ItemStatusOpen        = "open"
	ItemStatusMatching    = "matching"
	ItemStatusNegotiating = "negotiating"
	ItemStatusMatched     = "matched"
	ItemStatusClosed      = "closed"
)

// Matchable reports whether an item may be picked up as a candidate.
func (i *Item) Matchable() bool {
	return i.Status == ItemStatusOpen || i.Status == ItemStatusMatching
}
