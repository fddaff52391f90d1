package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avessar/authstore/internal/logger"
	"github.com/avessar/authstore/internal/utils"
	"github.com/avessar/authstore/models"
	"github.com/jackc/pgerrcode"
)

// tokenRepository is the PostgreSQL-backed implementation of
// [TokenRepository]. The raw token exists only in transit: creation returns
// it once and persists its keyed one-way hash; every later operation hashes
// the presented raw token and matches by equality on the stored hash.
type tokenRepository struct {
	db      *DB
	hashKey string
	logger  *logger.Logger
}

// NewTokenRepository constructs a [TokenRepository] backed by the provided
// database connection. hashKey is the HMAC key for token hashing.
func NewTokenRepository(db *DB, hashKey string, logger *logger.Logger) TokenRepository {
	logger.Debug().Msg("creating token repository")
	return &tokenRepository{
		db:      db,
		hashKey: hashKey,
		logger:  logger,
	}
}

// CreateToken issues a fresh one-time token and returns the raw value
// exactly once. Hash failures are reported as [ErrTokenHash], distinct from
// storage errors.
func (r *tokenRepository) CreateToken(ctx context.Context, userID string, tokenType models.TokenType, ttl time.Duration) (string, error) {
	log := logger.FromContext(ctx)

	if !tokenType.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTokenType, string(tokenType))
	}

	raw, err := utils.GenerateToken()
	if err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateToken").Msg("error generating token")
		return "", fmt.Errorf("%w: %w", ErrTokenHash, err)
	}

	hash := utils.HashToken(raw, r.hashKey)
	expiresAt := encodeTime(time.Now().Add(ttl))

	row := r.db.QueryRowContext(ctx, createToken, userID, string(tokenType), hash, expiresAt)
	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateToken").Str("user_id", userID).Msg("error inserting token")

		switch postgresError(err) {
		case pgerrcode.ForeignKeyViolation:
			return "", fmt.Errorf("%w: %w", ErrUserNotFound, newConstraintError(asPgError(err)))
		default:
			return "", fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}
	}

	var scanned tokenRow
	if err := row.Scan(scanned.scanDest()...); err != nil {
		log.Err(err).Str("func", "*tokenRepository.CreateToken").Msg("failed to scan token row")
		return "", fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return raw, nil
}

// ValidateToken checks a presented raw token without consuming it. A token
// is usable only while used_at and deleted_at are both absent and expires_at
// has not passed; everything else resolves to [ErrTokenNotFound].
func (r *tokenRepository) ValidateToken(ctx context.Context, userID string, tokenType models.TokenType, raw string) (models.OneTimeToken, error) {
	log := logger.FromContext(ctx)

	if !tokenType.Valid() {
		return models.OneTimeToken{}, fmt.Errorf("%w: %q", ErrInvalidTokenType, string(tokenType))
	}

	hash := utils.HashToken(raw, r.hashKey)

	row := r.db.QueryRowContext(ctx, validateToken, userID, string(tokenType), hash)
	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*tokenRepository.ValidateToken").Str("user_id", userID).Msg("error executing token read")
		return models.OneTimeToken{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	var scanned tokenRow
	if err := row.Scan(scanned.scanDest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.OneTimeToken{}, ErrTokenNotFound
		}
		log.Err(err).Str("func", "*tokenRepository.ValidateToken").Msg("failed to scan token row")
		return models.OneTimeToken{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return scanned.decode()
}

// UseToken consumes a usable token by setting used_at. The transition is
// one-way: a second use of the same token finds used_at already set and
// resolves to [ErrTokenNotFound] even though the row still exists.
func (r *tokenRepository) UseToken(ctx context.Context, userID string, tokenType models.TokenType, raw string) error {
	return r.consume(ctx, useToken, "UseToken", userID, tokenType, raw)
}

// DeleteToken revokes a token by setting deleted_at. Revoking an absent or
// already-revoked token resolves to [ErrTokenNotFound].
func (r *tokenRepository) DeleteToken(ctx context.Context, userID string, tokenType models.TokenType, raw string) error {
	return r.consume(ctx, deleteToken, "DeleteToken", userID, tokenType, raw)
}

// consume runs one of the one-way token transitions and maps its affected
// row count onto the driver contract.
func (r *tokenRepository) consume(ctx context.Context, query, op string, userID string, tokenType models.TokenType, raw string) error {
	log := logger.FromContext(ctx)

	if !tokenType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidTokenType, string(tokenType))
	}

	hash := utils.HashToken(raw, r.hashKey)

	result, err := r.db.ExecContext(ctx, query, userID, string(tokenType), hash)
	if err != nil {
		log.Err(err).Str("func", "*tokenRepository."+op).Str("user_id", userID).Msg("error executing token transition")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		log.Err(err).Str("func", "*tokenRepository."+op).Msg("error reading affected rows")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected == 0 {
		return ErrTokenNotFound
	}

	return nil
}
