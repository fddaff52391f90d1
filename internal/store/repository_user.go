package store

import (
	"context"
	"fmt"

	"github.com/avessar/authstore/internal/logger"
	"github.com/avessar/authstore/internal/utils"
	"github.com/avessar/authstore/models"
	"github.com/jackc/pgerrcode"
)

// userRepository is the PostgreSQL-backed implementation of [UserRepository].
// It executes all identity CRUD operations against the "auth.users" table
// using the embedded [*DB] connection.
//
// Every public method obtains a context-scoped logger via
// [logger.FromContext] so that all database interactions are traced with
// structured fields.
type userRepository struct {
	db     *DB
	ids    *utils.UUIDGenerator
	logger *logger.Logger
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		ids:    utils.NewUUIDGenerator(),
		logger: logger,
	}
}

// CreateUserParams carries the caller-settable attributes of a new user.
// Email is required; everything else is optional.
type CreateUserParams struct {
	Email        string
	Role         *string
	PasswordHash *string
	PhoneNumber  *string
	AppMetadata  map[string]any
	UserMetadata map[string]any
}

// CreateUser persists a new identity record and returns the fully populated
// [models.User] with server-assigned fields (ID, CreatedAt, UpdatedAt).
//
// Error handling:
//   - empty email → wrapped [ErrBuildingSQLQuery] before any statement runs.
//   - PostgreSQL unique_violation (23505) → [ErrEmailExists], wrapped in a
//     [ConstraintError] carrying the constraint name and detail.
//   - Any other driver-level error → wrapped [ErrExecutingStatement].
func (r *userRepository) CreateUser(ctx context.Context, params CreateUserParams) (models.User, error) {
	log := logger.FromContext(ctx)

	if params.Email == "" {
		return models.User{}, fmt.Errorf("%w: email is required", ErrBuildingSQLQuery)
	}

	appMeta, err := encodeMetadata(params.AppMetadata)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	userMeta, err := encodeMetadata(params.UserMetadata)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	id := r.ids.Generate()
	rows, err := r.db.QueryContext(ctx, createUser,
		id, params.Role, params.Email, params.PasswordHash, params.PhoneNumber,
		string(appMeta), string(userMeta))
	if err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Str("email", params.Email).Msg("error inserting user")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return models.User{}, fmt.Errorf("%w: %w", ErrEmailExists, newConstraintError(asPgError(err)))
		default:
			return models.User{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}
	defer rows.Close()

	return r.exactlyOne(ctx, rows, "CreateUser")
}

// GetUser retrieves a single user by a unique selector column, treating
// soft-deleted rows as absent.
func (r *userRepository) GetUser(ctx context.Context, selector UserSelector, value any) (models.User, error) {
	return r.getUser(ctx, selector, value, false)
}

// GetUserAny is the admin-only read path: it resolves the same selector but
// ignores the soft-delete filter, so a soft-deleted row remains decodable.
func (r *userRepository) GetUserAny(ctx context.Context, selector UserSelector, value any) (models.User, error) {
	return r.getUser(ctx, selector, value, true)
}

func (r *userRepository) getUser(ctx context.Context, selector UserSelector, value any, includeDeleted bool) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildUserGetQuery(selector, value, includeDeleted)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.getUser").Msg("failed to build query")
		return models.User{}, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.getUser").Str("selector", string(selector)).Msg("error executing user read")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	return r.exactlyOne(ctx, rows, "getUser")
}

// ListUsers pages through users in storage order. The optional id/email/
// phone filters are OR-combined; soft-deleted rows never appear.
func (r *userRepository) ListUsers(ctx context.Context, params ListUsersParams) ([]models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildListUsersQuery(params)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.ListUsers").Msg("failed to build query")
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.ListUsers").Msg("error executing user listing")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	users := make([]models.User, 0, 16)

	for rows.Next() {
		var row userRow
		if scanErr := rows.Scan(row.scanDest()...); scanErr != nil {
			log.Err(scanErr).Str("func", "*userRepository.ListUsers").Msg("failed to scan user row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
		}
		users = append(users, row.decode())
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", "*userRepository.ListUsers").Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return users, nil
}

// UpdateUser applies the tagged partial update to the selected row and
// returns the updated record.
//
// Error handling:
//   - zero returned rows → [ErrUserNotFound] (absent or already deleted).
//   - more than one returned row → [ErrMultipleRows] (broken uniqueness
//     invariant, an integrity bug).
//   - unique_violation on email → [ErrEmailExists].
func (r *userRepository) UpdateUser(ctx context.Context, selector UserSelector, value any, update models.UserUpdate) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildUserUpdateQuery(update, selector, value)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.UpdateUser").Msg("failed to build update query")
		return models.User{}, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.UpdateUser").Str("selector", string(selector)).Msg("error executing user update")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return models.User{}, fmt.Errorf("%w: %w", ErrEmailExists, newConstraintError(asPgError(err)))
		default:
			return models.User{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}
	defer rows.Close()

	return r.exactlyOne(ctx, rows, "UpdateUser")
}

// DeleteUser soft-deletes the selected row by setting deleted_at; the row is
// not physically removed and stays reachable via [GetUserAny]. Soft delete
// is terminal: an already-deleted row resolves to [ErrUserNotFound].
func (r *userRepository) DeleteUser(ctx context.Context, selector UserSelector, value any) (models.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildUserSoftDeleteQuery(selector, value)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.DeleteUser").Msg("failed to build delete query")
		return models.User{}, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.DeleteUser").Str("selector", string(selector)).Msg("error executing user soft delete")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	defer rows.Close()

	return r.exactlyOne(ctx, rows, "DeleteUser")
}

// exactlyOne drains rows expecting a single user. Zero rows and multiple
// rows are distinct failure classes: the first is a recoverable not-found,
// the second a broken uniqueness invariant.
func (r *userRepository) exactlyOne(ctx context.Context, rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}, op string) (models.User, error) {
	log := logger.FromContext(ctx)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			log.Err(err).Str("func", "*userRepository."+op).Msg("error reading result rows")
			return models.User{}, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}
		return models.User{}, ErrUserNotFound
	}

	var row userRow
	if err := rows.Scan(row.scanDest()...); err != nil {
		log.Err(err).Str("func", "*userRepository."+op).Msg("failed to scan user row")
		return models.User{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	if rows.Next() {
		log.Error().Str("func", "*userRepository."+op).Msg("unique predicate matched multiple rows")
		return models.User{}, ErrMultipleRows
	}

	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", "*userRepository."+op).Msg("error occurred during rows iteration")
		return models.User{}, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return row.decode(), nil
}
