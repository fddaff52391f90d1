// Package workers provides abstractions for managing and running
// background workers in the application.
// It defines the Worker interface, a Workers aggregate that allows
// running multiple workers in a unified way, and the expiry Reaper that
// drains the queue of detached lazy-expiry deletes.
package workers

import (
	"context"
	"database/sql"
)

// Worker is the interface that must be implemented by any background worker.
// It defines a single Run method that starts the worker's execution.
//
// Implementations are expected to block for the duration of their work
// or spawn goroutines internally.
type Worker interface {
	Run()
}

// Execer is the subset of [database/sql.DB] the reaper needs to issue its
// delete statements.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
