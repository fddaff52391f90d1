package models

import "time"

// User represents an identity record owned by the authentication framework.
// Optional attributes are pointers; nil means the attribute is absent.
type User struct {
	// ID is the opaque, server-generated identifier of the account.
	ID string `json:"id"`

	// CreatedAt is set once when the account is inserted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped by every update, including empty partial updates.
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt marks the account as soft-deleted. A non-nil value excludes
	// the row from all normal reads, updates and deletes; the marker is
	// never cleared.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	// Role is an optional framework-assigned role name.
	Role *string `json:"role,omitempty"`

	// Email is the unique, required login identifier of the account.
	Email string `json:"email"`

	// PasswordHash is the derived credential value. It is nil for
	// passwordless accounts and must never hold a plaintext password.
	PasswordHash *string `json:"-"`

	// EmailConfirmedAt is set when the email address has been verified.
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`

	// PhoneNumberConfirmedAt is set when the phone number has been verified.
	PhoneNumberConfirmedAt *time.Time `json:"phone_number_confirmed_at,omitempty"`

	// LastSignIn records the most recent successful authentication.
	LastSignIn *time.Time `json:"last_sign_in,omitempty"`

	// BannedUntil suspends the account until the given instant.
	BannedUntil *time.Time `json:"banned_until,omitempty"`

	// PhoneNumber is an optional secondary login identifier.
	PhoneNumber *string `json:"phone_number,omitempty"`

	// AppMetadata is a JSON object owned by the framework.
	AppMetadata map[string]any `json:"app_metadata,omitempty"`

	// UserMetadata is a JSON object with a caller-defined schema.
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// UserUpdate is the partial-update record for User. Each field is tagged
// either Set (write this value) or Unchanged (do not mention the column).
// Field declaration order is the stable order in which SET clauses are
// generated.
type UserUpdate struct {
	Role                   Field[*string]
	Email                  Field[string]
	PasswordHash           Field[*string]
	EmailConfirmedAt       Field[*time.Time]
	PhoneNumberConfirmedAt Field[*time.Time]
	LastSignIn             Field[*time.Time]
	BannedUntil            Field[*time.Time]
	PhoneNumber            Field[*string]
	AppMetadata            Field[map[string]any]
	UserMetadata           Field[map[string]any]
}

// TableName returns the name of the database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}
