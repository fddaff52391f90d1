package models

import "time"

// CacheEntry is a namespaced key/value pair. Its identity is the
// (ResourceType, Key) pair; Set replaces the value for an existing
// identity. Expiry follows the same lazy semantics as Session.
type CacheEntry struct {
	// ResourceType namespaces the key space (e.g. "oauth_state").
	ResourceType string `json:"resource_type"`

	// Key identifies the entry within its resource type.
	Key string `json:"key"`

	// Value is the opaque stored payload.
	Value string `json:"value"`

	// ExpiresAt is the optional expiry instant. nil means the entry
	// never expires.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// TableName returns the name of the database table
// associated with the CacheEntry model.
func (c CacheEntry) TableName() string {
	return "cache_entries"
}
