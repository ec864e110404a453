package model

import "time"

// User represents a registered reporter. There are no privileged roles:
// every user may report items and act only on their own sessions.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name"`
	ContactInfo  string     `json:"contact_info"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}
