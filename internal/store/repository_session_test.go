package store

import (
	"context"
	"database/sql"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avessar/authstore/internal/utils"
	"github.com/jackc/pgerrcode"
)

// enqueueRecorder captures reaper jobs so tests can assert on the detached
// cleanup path without a running worker.
type enqueueRecorder struct {
	jobs []deleteJob
}

func (r *enqueueRecorder) Enqueue(d deleteJob) {
	r.jobs = append(r.jobs, d)
}

func newTestSessionRepo(t *testing.T) (*sessionRepository, sqlmock.Sqlmock, *enqueueRecorder, *sql.DB) {
	t.Helper()
	wrapped, mock, db := newTestDB(t)
	recorder := &enqueueRecorder{}
	repo := &sessionRepository{
		db:     wrapped,
		ids:    utils.NewUUIDGenerator(),
		reaper: recorder,
		logger: wrapped.logger,
	}
	return repo, mock, recorder, db
}

var sessionTestColumns = []string{"id", "user_id", "created_at", "expires_at", "ip", "user_agent"}

var sessionTestColumnsWithExpired = append(append([]string{}, sessionTestColumns...), "expired")

func TestCreateSession_Success(t *testing.T) {
	repo, mock, _, db := newTestSessionRepo(t)
	defer db.Close()

	now := time.Now().UnixMicro()
	expiresAt := time.Now().Add(time.Hour).UnixMicro()

	rows := sqlmock.NewRows(sessionTestColumns).
		AddRow("sess-1", "user-1", now, expiresAt, "192.0.2.10", "test-agent/1.0")

	mock.ExpectQuery("INSERT INTO auth.sessions").
		WithArgs(sqlmock.AnyArg(), "user-1", sqlmock.AnyArg(), "192.0.2.10", "test-agent/1.0").
		WillReturnRows(rows)

	ip := netip.MustParseAddr("192.0.2.10")
	ua := "test-agent/1.0"
	session, err := repo.CreateSession(context.Background(), CreateSessionParams{
		UserID:    "user-1",
		TTL:       time.Hour,
		IP:        &ip,
		UserAgent: &ua,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "sess-1" || session.UserID != "user-1" {
		t.Errorf("unexpected session identity: %+v", session)
	}
	if session.IP == nil || session.IP.String() != "192.0.2.10" {
		t.Errorf("expected decoded ip, got %v", session.IP)
	}
	if session.ExpiresAt == nil {
		t.Error("expected expiry on a TTL session")
	}
}

func TestCreateSession_ZeroTTLNeverExpires(t *testing.T) {
	repo, mock, _, db := newTestSessionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(sessionTestColumns).
		AddRow("sess-1", "user-1", time.Now().UnixMicro(), nil, nil, nil)

	mock.ExpectQuery("INSERT INTO auth.sessions").
		WithArgs(sqlmock.AnyArg(), "user-1", nil, nil, nil).
		WillReturnRows(rows)

	session, err := repo.CreateSession(context.Background(), CreateSessionParams{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ExpiresAt != nil {
		t.Errorf("expected no expiry, got %v", session.ExpiresAt)
	}
}

func TestCreateSession_UnknownUser(t *testing.T) {
	repo, mock, _, db := newTestSessionRepo(t)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO auth.sessions").
		WillReturnError(pgError(pgerrcode.ForeignKeyViolation))

	_, err := repo.CreateSession(context.Background(), CreateSessionParams{UserID: "ghost"})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetSession_Success(t *testing.T) {
	repo, mock, recorder, db := newTestSessionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(sessionTestColumnsWithExpired).
		AddRow("sess-1", "user-1", time.Now().UnixMicro(), nil, nil, nil, false)

	mock.ExpectQuery("SELECT (.+) FROM auth.sessions").
		WithArgs("sess-1").
		WillReturnRows(rows)

	session, err := repo.GetSession(context.Background(), "sess-1", GetSessionParams{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.ID != "sess-1" {
		t.Errorf("expected sess-1, got %s", session.ID)
	}
	if len(recorder.jobs) != 0 {
		t.Errorf("expected no purge for a live session, got %d", len(recorder.jobs))
	}
}

func TestGetSession_ExpiredSchedulesPurge(t *testing.T) {
	repo, mock, recorder, db := newTestSessionRepo(t)
	defer db.Close()

	expiresAt := time.Now().Add(-time.Minute).UnixMicro()
	rows := sqlmock.NewRows(sessionTestColumnsWithExpired).
		AddRow("sess-1", "user-1", time.Now().UnixMicro(), expiresAt, nil, nil, true)

	mock.ExpectQuery("SELECT (.+) FROM auth.sessions").
		WithArgs("sess-1").
		WillReturnRows(rows)

	_, err := repo.GetSession(context.Background(), "sess-1", GetSessionParams{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	if len(recorder.jobs) != 1 {
		t.Fatalf("expected 1 purge job, got %d", len(recorder.jobs))
	}
	if recorder.jobs[0].Query != reapSession {
		t.Errorf("unexpected purge query: %s", recorder.jobs[0].Query)
	}
	if len(recorder.jobs[0].Args) != 1 || recorder.jobs[0].Args[0] != "sess-1" {
		t.Errorf("unexpected purge args: %v", recorder.jobs[0].Args)
	}
}

func TestGetSession_Absent(t *testing.T) {
	repo, mock, recorder, db := newTestSessionRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM auth.sessions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sessionTestColumnsWithExpired))

	_, err := repo.GetSession(context.Background(), "missing", GetSessionParams{})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if len(recorder.jobs) != 0 {
		t.Errorf("expected no purge for an absent session, got %d", len(recorder.jobs))
	}
}

func TestGetSession_MatchFiltersBound(t *testing.T) {
	repo, mock, _, db := newTestSessionRepo(t)
	defer db.Close()

	rows := sqlmock.NewRows(sessionTestColumnsWithExpired).
		AddRow("sess-1", "user-1", time.Now().UnixMicro(), nil, "192.0.2.10", "test-agent/1.0", false)

	mock.ExpectQuery("SELECT (.+) FROM auth.sessions").
		WithArgs("sess-1", "192.0.2.10", "test-agent/1.0").
		WillReturnRows(rows)

	ip := netip.MustParseAddr("192.0.2.10")
	ua := "test-agent/1.0"
	_, err := repo.GetSession(context.Background(), "sess-1", GetSessionParams{IP: &ip, UserAgent: &ua})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteSession_Success(t *testing.T) {
	repo, mock, _, db := newTestSessionRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM auth.sessions").
		WithArgs("sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteSession(context.Background(), "sess-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteSession_Absent(t *testing.T) {
	repo, mock, _, db := newTestSessionRepo(t)
	defer db.Close()

	mock.ExpectExec("DELETE FROM auth.sessions").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeleteSession(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
