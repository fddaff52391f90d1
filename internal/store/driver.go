// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sync"

	"github.com/avessar/authstore/internal/config"
	"github.com/avessar/authstore/internal/logger"
	"github.com/avessar/authstore/internal/workers"
)

// Driver is the uniform contract the identity framework talks to: the four
// repositories over one shared pooled connection handle, plus the detached
// expiry reaper. A Driver starts disconnected; Connect and Disconnect form
// a two-state machine and each may only be called from the opposite state.
type Driver struct {
	cfg config.StructuredConfig
	log *logger.Logger

	mu     sync.Mutex
	db     *DB
	reaper *workers.Reaper

	users    UserRepository
	sessions SessionRepository
	tokens   TokenRepository
	cache    CacheRepository
}

// NewDriver constructs a disconnected Driver.
func NewDriver(cfg config.StructuredConfig, log *logger.Logger) *Driver {
	return &Driver{
		cfg: cfg,
		log: log,
	}
}

// Connect opens the pooled connection handle, starts the expiry reaper and
// wires the repositories. Calling Connect on a connected driver returns
// [ErrAlreadyConnected].
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db != nil {
		return ErrAlreadyConnected
	}

	db, err := NewConnectPostgres(ctx, d.cfg.Storage.DB, d.log)
	if err != nil {
		return err
	}

	reaper := workers.NewReaper(db.DB, d.cfg.Workers.ReaperQueueSize, db.IsRetryable, d.log)
	workers.NewWorkers(reaper).Run()

	d.db = db
	d.reaper = reaper
	d.users = NewUserRepository(db, d.log)
	d.sessions = NewSessionRepository(db, reaper, d.log)
	d.tokens = NewTokenRepository(db, d.cfg.App.TokenHashKey, d.log)
	d.cache = NewCacheRepository(db, reaper, d.log)

	return nil
}

// Disconnect drains the reaper and closes the connection handle. Calling
// Disconnect on a disconnected driver returns [ErrNotConnected].
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return ErrNotConnected
	}

	d.reaper.Close()
	err := d.db.Close()

	d.db = nil
	d.reaper = nil
	d.users = nil
	d.sessions = nil
	d.tokens = nil
	d.cache = nil

	if err != nil {
		d.log.Err(err).Str("func", "*Driver.Disconnect").Msg("error closing database handle")
		return err
	}

	return nil
}

// Users returns the identity repository, or an error when the driver is not
// connected.
func (d *Driver) Users() (UserRepository, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.users == nil {
		return nil, ErrNotConnected
	}
	return d.users, nil
}

// Sessions returns the session repository, or an error when the driver is
// not connected.
func (d *Driver) Sessions() (SessionRepository, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.sessions == nil {
		return nil, ErrNotConnected
	}
	return d.sessions, nil
}

// Tokens returns the one-time-token repository, or an error when the driver
// is not connected.
func (d *Driver) Tokens() (TokenRepository, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tokens == nil {
		return nil, ErrNotConnected
	}
	return d.tokens, nil
}

// Cache returns the key/value repository, or an error when the driver is
// not connected.
func (d *Driver) Cache() (CacheRepository, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cache == nil {
		return nil, ErrNotConnected
	}
	return d.cache, nil
}
