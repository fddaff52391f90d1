package models

import (
	"net/netip"
	"time"
)

// Session is the proof of an authenticated context, owned by exactly one
// User. A session whose ExpiresAt lies in the past is semantically absent
// even though its row may linger until the lazy-expiry path purges it.
type Session struct {
	// ID is the opaque, server-generated session identifier.
	ID string `json:"id"`

	// UserID references the owning User.
	UserID string `json:"user_id"`

	// CreatedAt is set once when the session is inserted.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the optional expiry instant. nil means the session
	// never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	// IP is the optional client address the session was created from.
	IP *netip.Addr `json:"ip,omitempty"`

	// UserAgent is the optional client identification string.
	UserAgent *string `json:"user_agent,omitempty"`
}

// TableName returns the name of the database table
// associated with the Session model.
func (s Session) TableName() string {
	return "sessions"
}
