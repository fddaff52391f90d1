// SPDX-License-Identifier: Apache-2.0

package workers

import (
	"context"
	"sync"

	"github.com/avessar/authstore/internal/logger"
)

// defaultQueueSize bounds the pending delete queue when the caller does not
// configure one.
const defaultQueueSize = 256

// Delete is one detached cleanup statement: a parameterized DELETE plus its
// bound arguments, produced by a read that found an expired row.
type Delete struct {
	Query string
	Args  []any
}

// Reaper drains a bounded queue of lazy-expiry deletes on its own goroutine.
//
// Reads that hit an expired row enqueue a Delete and return immediately; the
// caller is never blocked on cleanup and never sees a cleanup failure. When
// the queue is full the delete is dropped; the row stays semantically absent
// and a later read will enqueue it again.
type Reaper struct {
	db        Execer
	log       *logger.Logger
	queue     chan Delete
	retryable func(error) bool
	wg        sync.WaitGroup

	// mu guards closed and orders Enqueue's send against Close's close of
	// the queue channel: a read finishing its expired-row branch while the
	// driver disconnects must drop the delete, not panic on a closed
	// channel.
	mu     sync.Mutex
	closed bool
}

// NewReaper constructs a Reaper over the given connection handle. queueSize
// bounds the pending-delete queue; zero selects the default. retryable
// classifies delete failures: a failure it reports as transient is attempted
// once more before being given up on. nil disables the retry.
func NewReaper(db Execer, queueSize int, retryable func(error) bool, log *logger.Logger) *Reaper {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	if retryable == nil {
		retryable = func(error) bool { return false }
	}

	return &Reaper{
		db:        db,
		log:       log,
		queue:     make(chan Delete, queueSize),
		retryable: retryable,
	}
}

// Run implements [Worker]. It starts the drain goroutine and returns.
func (r *Reaper) Run() {
	r.wg.Add(1)
	go r.drain()
}

// Enqueue hands a delete to the reaper without blocking. The statement is
// executed at some later point, possibly after the triggering read has
// already returned to its caller. Deletes offered after Close are dropped.
func (r *Reaper) Enqueue(d Delete) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		r.log.Debug().Str("func", "*Reaper.Enqueue").Msg("reaper closed, dropping expiry delete")
		return
	}

	select {
	case r.queue <- d:
	default:
		r.log.Debug().Str("func", "*Reaper.Enqueue").Msg("reaper queue full, dropping expiry delete")
	}
}

// Close stops accepting deletes, waits for the queued ones to be issued and
// stops the drain goroutine. Safe to call more than once.
func (r *Reaper) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	r.wg.Wait()
}

// drain executes queued deletes until the queue is closed. Deletes run under
// a background context: they are deliberately decoupled from the lifetime of
// the read that produced them. Failures are logged and swallowed; a delete
// that failed with a retryable error is attempted once more before being
// given up on.
func (r *Reaper) drain() {
	defer r.wg.Done()

	for d := range r.queue {
		if _, err := r.db.ExecContext(context.Background(), d.Query, d.Args...); err != nil {
			r.log.Warn().Err(err).
				Str("func", "*Reaper.drain").
				Str("query", d.Query).
				Msg("expiry delete failed")

			if r.retryable(err) {
				if _, retryErr := r.db.ExecContext(context.Background(), d.Query, d.Args...); retryErr != nil {
					r.log.Warn().Err(retryErr).
						Str("func", "*Reaper.drain").
						Msg("expiry delete retry failed, giving up")
				}
			}
		}
	}
}
