package workers

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/avessar/authstore/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecer records every statement it is asked to execute and can be
// scripted to fail a configurable number of times.
type fakeExecer struct {
	mu       sync.Mutex
	queries  []string
	args     [][]any
	failures int
	err      error
}

func (f *fakeExecer) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries = append(f.queries, query)
	f.args = append(f.args, args)

	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeExecer) executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type runFlag struct {
	ran bool
}

func (r *runFlag) Run() { r.ran = true }

func TestWorkers_RunsEveryWorker(t *testing.T) {
	first, second := &runFlag{}, &runFlag{}

	NewWorkers(first, second).Run()

	assert.True(t, first.ran)
	assert.True(t, second.ran)
}

func TestReaper_ExecutesEnqueuedDelete(t *testing.T) {
	db := &fakeExecer{}
	r := NewReaper(db, 4, nil, logger.Nop())
	r.Run()

	r.Enqueue(Delete{Query: "DELETE FROM auth.sessions WHERE id = $1", Args: []any{"abc"}})
	r.Close()

	executed := db.executed()
	require.Len(t, executed, 1)
	assert.Contains(t, executed[0], "DELETE FROM auth.sessions")
	assert.Equal(t, []any{"abc"}, db.args[0])
}

func TestReaper_SwallowsFailures(t *testing.T) {
	db := &fakeExecer{failures: 1, err: errors.New("boom")}
	r := NewReaper(db, 4, nil, logger.Nop())
	r.Run()

	// must not panic or surface the failure anywhere
	r.Enqueue(Delete{Query: "DELETE FROM auth.cache_entries WHERE key = $1", Args: []any{"k"}})
	r.Close()

	require.Len(t, db.executed(), 1)
}

func TestReaper_RetriesRetryableFailureOnce(t *testing.T) {
	db := &fakeExecer{failures: 2, err: errors.New("connection reset")}
	r := NewReaper(db, 4, func(error) bool { return true }, logger.Nop())
	r.Run()

	r.Enqueue(Delete{Query: "DELETE FROM auth.sessions WHERE id = $1", Args: []any{"abc"}})
	r.Close()

	// initial attempt plus exactly one retry
	require.Len(t, db.executed(), 2)
}

func TestReaper_DropsWhenQueueFull(t *testing.T) {
	db := &fakeExecer{}
	r := NewReaper(db, 1, nil, logger.Nop())
	// not running: nothing drains the queue

	r.Enqueue(Delete{Query: "q1"})
	r.Enqueue(Delete{Query: "q2"}) // dropped, must not block

	r.Run()
	r.Close()

	executed := db.executed()
	require.Len(t, executed, 1)
	assert.Equal(t, "q1", executed[0])
}

func TestReaper_CloseIsIdempotent(t *testing.T) {
	r := NewReaper(&fakeExecer{}, 1, nil, logger.Nop())
	r.Run()

	r.Close()
	r.Close() // second close must not panic
}

func TestReaper_EnqueueAfterCloseIsDropped(t *testing.T) {
	db := &fakeExecer{}
	r := NewReaper(db, 4, nil, logger.Nop())
	r.Run()
	r.Close()

	// A read can still hit its expired-row branch while the driver is
	// disconnecting; the delete must be dropped, never panic.
	r.Enqueue(Delete{Query: "DELETE FROM auth.sessions WHERE id = $1", Args: []any{"abc"}})

	require.Empty(t, db.executed())
}
