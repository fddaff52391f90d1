package store

import (
	"database/sql"
	"fmt"
	"net/netip"

	"github.com/avessar/authstore/models"
)

// Row carriers. Scan destinations are listed in the same order as the
// canonical column lists in sql_queries.go; the decode step applies the
// timestamp and metadata codecs to produce the domain record.

// userRow mirrors userColumns positionally.
type userRow struct {
	id                     string
	createdAt              int64
	updatedAt              int64
	deletedAt              sql.NullInt64
	role                   sql.NullString
	email                  string
	passwordHash           sql.NullString
	emailConfirmedAt       sql.NullInt64
	phoneNumberConfirmedAt sql.NullInt64
	lastSignIn             sql.NullInt64
	bannedUntil            sql.NullInt64
	phoneNumber            sql.NullString
	appMetadata            sql.NullString
	userMetadata           sql.NullString
}

// scanDest returns the scan destinations in canonical userColumns order.
func (r *userRow) scanDest() []any {
	return []any{
		&r.id,
		&r.createdAt,
		&r.updatedAt,
		&r.deletedAt,
		&r.role,
		&r.email,
		&r.passwordHash,
		&r.emailConfirmedAt,
		&r.phoneNumberConfirmedAt,
		&r.lastSignIn,
		&r.bannedUntil,
		&r.phoneNumber,
		&r.appMetadata,
		&r.userMetadata,
	}
}

// decode converts the scanned row into the domain record. Metadata decode
// failures substitute the empty object rather than failing the row (see
// decodeMetadata).
func (r *userRow) decode() models.User {
	return models.User{
		ID:                     r.id,
		CreatedAt:              decodeTime(r.createdAt),
		UpdatedAt:              decodeTime(r.updatedAt),
		DeletedAt:              decodeTimePtr(r.deletedAt),
		Role:                   nullableString(r.role),
		Email:                  r.email,
		PasswordHash:           nullableString(r.passwordHash),
		EmailConfirmedAt:       decodeTimePtr(r.emailConfirmedAt),
		PhoneNumberConfirmedAt: decodeTimePtr(r.phoneNumberConfirmedAt),
		LastSignIn:             decodeTimePtr(r.lastSignIn),
		BannedUntil:            decodeTimePtr(r.bannedUntil),
		PhoneNumber:            nullableString(r.phoneNumber),
		AppMetadata:            decodeMetadata(r.appMetadata, map[string]any{}),
		UserMetadata:           decodeMetadata(r.userMetadata, map[string]any{}),
	}
}

// sessionRow mirrors sessionColumns positionally. The expired flag is an
// extra trailing column present only on lazy-expiry reads.
type sessionRow struct {
	id        string
	userID    string
	createdAt int64
	expiresAt sql.NullInt64
	ip        sql.NullString
	userAgent sql.NullString
	expired   bool
}

// scanDest returns the scan destinations in canonical sessionColumns order.
func (r *sessionRow) scanDest() []any {
	return []any{
		&r.id,
		&r.userID,
		&r.createdAt,
		&r.expiresAt,
		&r.ip,
		&r.userAgent,
	}
}

// scanDestWithExpired appends the expiry-probe destination for reads built
// on expiredExpr.
func (r *sessionRow) scanDestWithExpired() []any {
	return append(r.scanDest(), &r.expired)
}

// decode converts the scanned row into the domain record, or fails with an
// error naming the offending field.
func (r *sessionRow) decode() (models.Session, error) {
	session := models.Session{
		ID:        r.id,
		UserID:    r.userID,
		CreatedAt: decodeTime(r.createdAt),
		ExpiresAt: decodeTimePtr(r.expiresAt),
		UserAgent: nullableString(r.userAgent),
	}

	if r.ip.Valid {
		addr, err := netip.ParseAddr(r.ip.String)
		if err != nil {
			return models.Session{}, fmt.Errorf("decoding session field %q: %w", "ip", err)
		}
		session.IP = &addr
	}

	return session, nil
}

// tokenRow mirrors tokenColumns positionally.
type tokenRow struct {
	userID    string
	tokenType string
	tokenHash string
	createdAt int64
	expiresAt int64
	usedAt    sql.NullInt64
	deletedAt sql.NullInt64
}

// scanDest returns the scan destinations in canonical tokenColumns order.
func (r *tokenRow) scanDest() []any {
	return []any{
		&r.userID,
		&r.tokenType,
		&r.tokenHash,
		&r.createdAt,
		&r.expiresAt,
		&r.usedAt,
		&r.deletedAt,
	}
}

// decode converts the scanned row into the domain record, or fails with an
// error naming the offending field.
func (r *tokenRow) decode() (models.OneTimeToken, error) {
	tokenType := models.TokenType(r.tokenType)
	if !tokenType.Valid() {
		return models.OneTimeToken{}, fmt.Errorf("decoding token field %q: %w: %s", "token_type", ErrInvalidTokenType, r.tokenType)
	}

	return models.OneTimeToken{
		UserID:    r.userID,
		TokenType: tokenType,
		TokenHash: r.tokenHash,
		CreatedAt: decodeTime(r.createdAt),
		ExpiresAt: decodeTime(r.expiresAt),
		UsedAt:    decodeTimePtr(r.usedAt),
		DeletedAt: decodeTimePtr(r.deletedAt),
	}, nil
}

// cacheRow mirrors cacheColumns positionally. The expired flag is an extra
// trailing column present only on lazy-expiry reads.
type cacheRow struct {
	resourceType string
	key          string
	value        string
	expiresAt    sql.NullInt64
	expired      bool
}

// scanDestWithExpired returns the scan destinations in canonical
// cacheColumns order plus the expiry-probe destination.
func (r *cacheRow) scanDestWithExpired() []any {
	return []any{
		&r.resourceType,
		&r.key,
		&r.value,
		&r.expiresAt,
		&r.expired,
	}
}

// decode converts the scanned row into the domain record.
func (r *cacheRow) decode() models.CacheEntry {
	return models.CacheEntry{
		ResourceType: r.resourceType,
		Key:          r.key,
		Value:        r.value,
		ExpiresAt:    decodeTimePtr(r.expiresAt),
	}
}

// nullableString converts a nullable text column to an optional string.
func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}

	s := v.String
	return &s
}
