package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrUserNotFound is returned when a read, update or delete targets a
	// user that does not exist or has already been soft-deleted.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when creating or updating a user would
	// violate the unique email constraint.
	ErrEmailExists = errors.New("email already exists")

	// ErrSessionNotFound is returned when a session read or delete matches
	// no row, including the case of a row whose expiry has passed.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTokenNotFound is returned when a one-time token validate, use or
	// delete matches no usable row: absent, expired, already used, or
	// revoked all look alike to the caller.
	ErrTokenNotFound = errors.New("one-time token not found")

	// ErrCacheEntryNotFound is returned when a cache read or delete matches
	// no row, including the case of a row whose expiry has passed.
	ErrCacheEntryNotFound = errors.New("cache entry not found")

	// ErrMultipleRows is returned when a statement with a unique row
	// predicate touched more than one row. This signals a broken
	// uniqueness invariant and is kept distinct from the recoverable
	// not-found conditions.
	ErrMultipleRows = errors.New("unique predicate matched multiple rows")

	// ErrTokenHash is returned when generating or hashing a one-time token
	// fails. It is internal to the adapter and distinct from storage errors.
	ErrTokenHash = errors.New("token hash failure")

	// ErrInvalidTokenType is returned when a token operation names a type
	// outside the closed token type set.
	ErrInvalidTokenType = errors.New("invalid token type")

	// ErrAlreadyConnected is returned by [Driver.Connect] when the driver
	// already holds an open connection handle.
	ErrAlreadyConnected = errors.New("driver already connected")

	// ErrNotConnected is returned by driver operations issued before
	// Connect or after Disconnect.
	ErrNotConnected = errors.New("driver not connected")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. an unknown selector column).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to execute statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")
)

// ConstraintError carries the PostgreSQL constraint name and detail of an
// integrity violation up the call chain as a typed value, so callers never
// have to parse error text.
type ConstraintError struct {
	// Constraint is the violated constraint's name (e.g. "users_email_key").
	Constraint string

	// Detail is the engine-provided detail line, when present.
	Detail string

	// Code is the PostgreSQL error code (class 23).
	Code string

	err error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %q violated: %s", e.Constraint, e.Detail)
}

func (e *ConstraintError) Unwrap() error {
	return e.err
}

// newConstraintError wraps a pgconn error as a [ConstraintError], preserving
// the original error for [errors.As] / [errors.Is] chains.
func newConstraintError(pgErr *pgconn.PgError) *ConstraintError {
	return &ConstraintError{
		Constraint: pgErr.ConstraintName,
		Detail:     pgErr.Detail,
		Code:       pgErr.Code,
		err:        pgErr,
	}
}
