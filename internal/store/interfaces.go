package store

import (
	"context"
	"time"

	"github.com/avessar/authstore/internal/workers"
	"github.com/avessar/authstore/models"
)

// deleteJob is the unit of detached cleanup handed to the reaper.
type deleteJob = workers.Delete

// UserRepository is the identity slice of the driver contract.
type UserRepository interface {
	// CreateUser inserts a new identity record. Email is required.
	CreateUser(ctx context.Context, params CreateUserParams) (models.User, error)

	// GetUser reads a single user by a unique selector column.
	// Soft-deleted rows are treated as absent.
	GetUser(ctx context.Context, selector UserSelector, value any) (models.User, error)

	// GetUserAny is the admin-only read path that ignores the soft-delete
	// filter.
	GetUserAny(ctx context.Context, selector UserSelector, value any) (models.User, error)

	// ListUsers pages through users in storage order with optional
	// OR-combined filters.
	ListUsers(ctx context.Context, params ListUsersParams) ([]models.User, error)

	// UpdateUser applies a partial update and returns the updated record.
	UpdateUser(ctx context.Context, selector UserSelector, value any, update models.UserUpdate) (models.User, error)

	// DeleteUser soft-deletes the selected user and returns the record as
	// it was at deletion time. Soft delete is terminal.
	DeleteUser(ctx context.Context, selector UserSelector, value any) (models.User, error)
}

// SessionRepository is the session slice of the driver contract.
type SessionRepository interface {
	// CreateSession inserts a session with an optional TTL.
	CreateSession(ctx context.Context, params CreateSessionParams) (models.Session, error)

	// GetSession reads a session by id with optional ip/user-agent match
	// filters. Expired rows are treated as absent and purged out of band.
	GetSession(ctx context.Context, id string, params GetSessionParams) (models.Session, error)

	// DeleteSession removes a session row.
	DeleteSession(ctx context.Context, id string) error
}

// TokenRepository is the one-time-token slice of the driver contract.
type TokenRepository interface {
	// CreateToken issues a fresh one-time token for the user, persists only
	// its hash, and returns the raw token exactly once.
	CreateToken(ctx context.Context, userID string, tokenType models.TokenType, ttl time.Duration) (string, error)

	// ValidateToken is the read-only usability check of a presented raw
	// token.
	ValidateToken(ctx context.Context, userID string, tokenType models.TokenType, raw string) (models.OneTimeToken, error)

	// UseToken consumes a token. The transition is one-way: a second call
	// on the same token fails with ErrTokenNotFound.
	UseToken(ctx context.Context, userID string, tokenType models.TokenType, raw string) error

	// DeleteToken revokes a token.
	DeleteToken(ctx context.Context, userID string, tokenType models.TokenType, raw string) error
}

// CacheRepository is the key/value slice of the driver contract.
type CacheRepository interface {
	// SetCacheEntry inserts or replaces the entry with the given identity.
	SetCacheEntry(ctx context.Context, params SetCacheEntryParams) error

	// GetCacheEntry reads an entry; expired rows are treated as absent and
	// purged out of band.
	GetCacheEntry(ctx context.Context, resourceType, key string) (models.CacheEntry, error)

	// DeleteCacheEntry removes an entry.
	DeleteCacheEntry(ctx context.Context, resourceType, key string) error
}

// expiryDeleter is the slice of the reaper the lazy-expiry read path needs.
// Kept as an interface so repository tests can observe enqueued deletes.
type expiryDeleter interface {
	Enqueue(d deleteJob)
}
