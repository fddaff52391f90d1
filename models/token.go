package models

import "time"

// TokenType is the closed set of one-time-token purposes.
type TokenType string

const (
	// TokenTypeConfirmation confirms a newly registered email address.
	TokenTypeConfirmation TokenType = "confirmation"

	// TokenTypeRecovery authorizes a password reset.
	TokenTypeRecovery TokenType = "recovery"

	// TokenTypeEmailChange confirms a pending email address change.
	TokenTypeEmailChange TokenType = "email_change"

	// TokenTypePhoneChange confirms a pending phone number change.
	TokenTypePhoneChange TokenType = "phone_change"
)

// Valid reports whether t is a member of the closed token type set.
func (t TokenType) Valid() bool {
	switch t {
	case TokenTypeConfirmation, TokenTypeRecovery, TokenTypeEmailChange, TokenTypePhoneChange:
		return true
	}
	return false
}

// OneTimeToken is a single-use credential. Only the one-way hash of the
// issued token is persisted; the raw token is returned to the caller once
// at creation time and never stored.
//
// A token is usable only while UsedAt and DeletedAt are both nil and
// ExpiresAt has not passed.
type OneTimeToken struct {
	// UserID references the User the token was issued for.
	UserID string `json:"user_id"`

	// TokenType records the purpose the token may be consumed for.
	TokenType TokenType `json:"token_type"`

	// TokenHash is the keyed one-way hash of the issued raw token.
	TokenHash string `json:"-"`

	// CreatedAt is set once when the token is issued.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt bounds the token's usable lifetime.
	ExpiresAt time.Time `json:"expires_at"`

	// UsedAt is set on consumption; the transition is one-way.
	UsedAt *time.Time `json:"used_at,omitempty"`

	// DeletedAt is set on explicit revocation.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TableName returns the name of the database table
// associated with the OneTimeToken model.
func (t OneTimeToken) TableName() string {
	return "one_time_tokens"
}
