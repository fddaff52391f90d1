package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avessar/authstore/internal/logger"
	"github.com/avessar/authstore/models"
)

// cacheRepository is the PostgreSQL-backed implementation of
// [CacheRepository]. Reads follow the same lazy-expiry path as sessions.
type cacheRepository struct {
	db     *DB
	reaper expiryDeleter
	logger *logger.Logger
}

// NewCacheRepository constructs a [CacheRepository] backed by the provided
// database connection, expiry deleter and logger.
func NewCacheRepository(db *DB, reaper expiryDeleter, logger *logger.Logger) CacheRepository {
	logger.Debug().Msg("creating cache repository")
	return &cacheRepository{
		db:     db,
		reaper: reaper,
		logger: logger,
	}
}

// SetCacheEntryParams carries a cache upsert. A zero TTL stores an entry
// that never expires.
type SetCacheEntryParams struct {
	ResourceType string
	Key          string
	Value        string
	TTL          time.Duration
}

// SetCacheEntry inserts the entry or replaces the value and expiry of an
// existing entry with the same (resource_type, key) identity.
func (r *cacheRepository) SetCacheEntry(ctx context.Context, params SetCacheEntryParams) error {
	log := logger.FromContext(ctx)

	var expiresAt any
	if params.TTL > 0 {
		expiresAt = encodeTime(time.Now().Add(params.TTL))
	}

	_, err := r.db.ExecContext(ctx, setCacheEntry, params.ResourceType, params.Key, params.Value, expiresAt)
	if err != nil {
		log.Err(err).
			Str("func", "*cacheRepository.SetCacheEntry").
			Str("resource_type", params.ResourceType).
			Str("key", params.Key).
			Msg("error upserting cache entry")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

// GetCacheEntry reads an entry by identity. Absent and expired rows both
// resolve to [ErrCacheEntryNotFound]; an expired row additionally has its
// purge enqueued out of band. An entry with no expiry never expires.
func (r *cacheRepository) GetCacheEntry(ctx context.Context, resourceType, key string) (models.CacheEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, getCacheEntry, resourceType, key)
	if err != nil {
		log.Err(err).
			Str("func", "*cacheRepository.GetCacheEntry").
			Str("resource_type", resourceType).
			Str("key", key).
			Msg("error executing cache read")
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			log.Err(rowsErr).Str("func", "*cacheRepository.GetCacheEntry").Msg("error reading result rows")
			return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
		}
		return models.CacheEntry{}, ErrCacheEntryNotFound
	}

	var scanned cacheRow
	if scanErr := rows.Scan(scanned.scanDestWithExpired()...); scanErr != nil {
		log.Err(scanErr).Str("func", "*cacheRepository.GetCacheEntry").Msg("failed to scan cache row")
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrScanningRow, scanErr)
	}

	if scanned.expired {
		log.Debug().
			Str("func", "*cacheRepository.GetCacheEntry").
			Str("resource_type", resourceType).
			Str("key", key).
			Msg("cache entry expired, scheduling purge")
		r.reaper.Enqueue(deleteJob{Query: reapCacheEntry, Args: []any{resourceType, key}})
		return models.CacheEntry{}, ErrCacheEntryNotFound
	}

	return scanned.decode(), nil
}

// DeleteCacheEntry removes an entry. Deleting an absent entry resolves to
// [ErrCacheEntryNotFound].
func (r *cacheRepository) DeleteCacheEntry(ctx context.Context, resourceType, key string) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteCacheEntry, resourceType, key)
	if err != nil {
		log.Err(err).
			Str("func", "*cacheRepository.DeleteCacheEntry").
			Str("resource_type", resourceType).
			Str("key", key).
			Msg("error executing cache delete")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		log.Err(err).Str("func", "*cacheRepository.DeleteCacheEntry").Msg("error reading affected rows")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected == 0 {
		return ErrCacheEntryNotFound
	}

	return nil
}
