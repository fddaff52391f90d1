package store

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/avessar/authstore/internal/logger"
	"github.com/avessar/authstore/internal/utils"
	"github.com/avessar/authstore/models"
	"github.com/jackc/pgerrcode"
)

// sessionRepository is the PostgreSQL-backed implementation of
// [SessionRepository]. Reads follow the lazy-expiry path: the query computes
// the expiry probe alongside the row, expired rows resolve to
// [ErrSessionNotFound], and their purge is handed to the reaper without
// blocking the caller.
type sessionRepository struct {
	db     *DB
	ids    *utils.UUIDGenerator
	reaper expiryDeleter
	logger *logger.Logger
}

// NewSessionRepository constructs a [SessionRepository] backed by the
// provided database connection, expiry deleter and logger.
func NewSessionRepository(db *DB, reaper expiryDeleter, logger *logger.Logger) SessionRepository {
	logger.Debug().Msg("creating session repository")
	return &sessionRepository{
		db:     db,
		ids:    utils.NewUUIDGenerator(),
		reaper: reaper,
		logger: logger,
	}
}

// CreateSessionParams carries the caller-settable attributes of a new
// session. A zero TTL creates a session that never expires.
type CreateSessionParams struct {
	UserID    string
	TTL       time.Duration
	IP        *netip.Addr
	UserAgent *string
}

// CreateSession inserts a session row and returns the stored record with
// server-assigned fields (ID, CreatedAt).
func (r *sessionRepository) CreateSession(ctx context.Context, params CreateSessionParams) (models.Session, error) {
	log := logger.FromContext(ctx)

	var expiresAt any
	if params.TTL > 0 {
		expiresAt = encodeTime(time.Now().Add(params.TTL))
	}

	var ip any
	if params.IP != nil {
		ip = params.IP.String()
	}

	id := r.ids.Generate()
	row := r.db.QueryRowContext(ctx, createSession, id, params.UserID, expiresAt, ip, params.UserAgent)

	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*sessionRepository.CreateSession").Str("user_id", params.UserID).Msg("error inserting session")

		switch postgresError(err) {
		case pgerrcode.ForeignKeyViolation:
			return models.Session{}, fmt.Errorf("%w: %w", ErrUserNotFound, newConstraintError(asPgError(err)))
		default:
			return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	var scanned sessionRow
	if err := row.Scan(scanned.scanDest()...); err != nil {
		log.Err(err).Str("func", "*sessionRepository.CreateSession").Msg("failed to scan session row")
		return models.Session{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return scanned.decode()
}

// GetSession reads a session by id, optionally requiring exact ip and
// user-agent matches.
//
// State machine: absent and expired both resolve to [ErrSessionNotFound];
// an expired row additionally has its purge enqueued out of band, so the
// caller is never blocked on cleanup and a cleanup failure never surfaces
// as a read failure. A session with no expiry never expires.
func (r *sessionRepository) GetSession(ctx context.Context, id string, params GetSessionParams) (models.Session, error) {
	log := logger.FromContext(ctx)

	query, args := buildGetSessionQuery(id, params)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.GetSession").Str("session_id", id).Msg("error executing session read")
		return models.Session{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			log.Err(rowsErr).Str("func", "*sessionRepository.GetSession").Msg("error reading result rows")
			return models.Session{}, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
		}
		return models.Session{}, ErrSessionNotFound
	}

	var scanned sessionRow
	if scanErr := rows.Scan(scanned.scanDestWithExpired()...); scanErr != nil {
		log.Err(scanErr).Str("func", "*sessionRepository.GetSession").Msg("failed to scan session row")
		return models.Session{}, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
	}

	if rows.Next() {
		log.Error().Str("func", "*sessionRepository.GetSession").Str("session_id", id).Msg("unique predicate matched multiple rows")
		return models.Session{}, ErrMultipleRows
	}

	if scanned.expired {
		log.Debug().Str("func", "*sessionRepository.GetSession").Str("session_id", id).Msg("session expired, scheduling purge")
		r.reaper.Enqueue(deleteJob{Query: reapSession, Args: []any{id}})
		return models.Session{}, ErrSessionNotFound
	}

	return scanned.decode()
}

// DeleteSession removes a session row. Deleting an absent session resolves
// to [ErrSessionNotFound].
func (r *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteSession, id)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.DeleteSession").Str("session_id", id).Msg("error executing session delete")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.DeleteSession").Msg("error reading affected rows")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected == 0 {
		return ErrSessionNotFound
	}

	return nil
}
