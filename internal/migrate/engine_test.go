// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/avessar/authstore/internal/logger"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"base/20240101000000_create_schema.sql": &fstest.MapFile{
			Data: []byte("CREATE SCHEMA IF NOT EXISTS auth;"),
		},
		"auth/20240105120000_create_users.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE auth.users ();"),
		},
		"auth/20240105120100_create_sessions.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE auth.sessions ();"),
		},
		"auth/20240105120200_create_tokens.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE auth.one_time_tokens ();"),
		},
	}
}

func newTestEngine(t *testing.T, fsys fstest.MapFS) (*Engine, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewEngine(db, fsys, logger.Nop()), mock, func() { db.Close() }
}

func expectProbe(mock sqlmock.Sqlmock, exists bool) {
	mock.ExpectQuery("to_regclass").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
}

func expectVersion(mock sqlmock.Sqlmock, module string, at time.Time) {
	rows := sqlmock.NewRows([]string{"version"})
	if !at.IsZero() {
		rows.AddRow(at.UnixMicro())
	}
	mock.ExpectQuery("FROM auth.module_version WHERE module").
		WithArgs(module).
		WillReturnRows(rows)
}

func TestRun_FreshDatabase_AppliesAllModules(t *testing.T) {
	engine, mock, closeDB := newTestEngine(t, testFS())
	defer closeDB()

	mock.ExpectBegin()
	// base: ledger relation does not exist yet.
	expectProbe(mock, false)
	mock.ExpectExec(regexp.QuoteMeta("DO $migration$")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// auth: ledger exists after base, no row for the module yet.
	expectProbe(mock, true)
	expectVersion(mock, "auth", time.Time{})
	mock.ExpectExec(regexp.QuoteMeta("DO $migration$")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	results, err := engine.Run(context.Background(), []string{"auth", "base"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Module != "base" {
		t.Errorf("expected base migrated first, got %s", results[0].Module)
	}
	if results[0].Applied != 1 {
		t.Errorf("expected 1 applied for base, got %d", results[0].Applied)
	}
	if results[1].Module != "auth" || results[1].Applied != 3 {
		t.Errorf("expected 3 applied for auth, got %s/%d", results[1].Module, results[1].Applied)
	}
	want := time.Date(2024, 1, 5, 12, 2, 0, 0, time.UTC)
	if !results[1].Version.Equal(want) {
		t.Errorf("expected auth version %v, got %v", want, results[1].Version)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRun_UpToDate_IsNoOp(t *testing.T) {
	engine, mock, closeDB := newTestEngine(t, testFS())
	defer closeDB()

	mock.ExpectBegin()
	expectProbe(mock, true)
	expectVersion(mock, "base", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	expectProbe(mock, true)
	expectVersion(mock, "auth", time.Date(2024, 1, 5, 12, 2, 0, 0, time.UTC))
	mock.ExpectCommit()

	results, err := engine.Run(context.Background(), []string{"auth"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, res := range results {
		if res.Applied != 0 {
			t.Errorf("expected nothing applied for %s, got %d", res.Module, res.Applied)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRun_BaseRunsFirstWhenNotNamed(t *testing.T) {
	engine, mock, closeDB := newTestEngine(t, testFS())
	defer closeDB()

	// Fresh database, caller names only auth: the ledger table must still
	// be created before auth's ledger upsert runs.
	mock.ExpectBegin()
	expectProbe(mock, false)
	mock.ExpectExec(regexp.QuoteMeta("DO $migration$")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectProbe(mock, true)
	expectVersion(mock, "auth", time.Time{})
	mock.ExpectExec(regexp.QuoteMeta("DO $migration$")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	results, err := engine.Run(context.Background(), []string{"auth"}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Module != "base" || results[0].Applied != 1 {
		t.Errorf("expected base migrated first, got %s/%d", results[0].Module, results[0].Applied)
	}
	if results[1].Module != "auth" || results[1].Applied != 3 {
		t.Errorf("expected auth after base, got %s/%d", results[1].Module, results[1].Applied)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRun_DryRun_BuildsScriptWithoutExecuting(t *testing.T) {
	engine, mock, closeDB := newTestEngine(t, testFS())
	defer closeDB()

	// Ledger sits at the first auth migration; the later two are pending.
	expectProbe(mock, true)
	expectVersion(mock, "base", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	expectProbe(mock, true)
	expectVersion(mock, "auth", time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC))

	results, err := engine.Run(context.Background(), []string{"auth"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res := results[1]
	if res.Applied != 2 {
		t.Fatalf("expected 2 pending, got %d", res.Applied)
	}

	script := res.Script
	if strings.Contains(script, "20240105120000_create_users.sql") {
		t.Error("script includes an already applied migration")
	}
	sessions := strings.Index(script, "auth.sessions")
	tokens := strings.Index(script, "auth.one_time_tokens")
	if sessions < 0 || tokens < 0 || sessions > tokens {
		t.Errorf("expected sessions before tokens in script:\n%s", script)
	}
	target := time.Date(2024, 1, 5, 12, 2, 0, 0, time.UTC)
	if !strings.Contains(script, "to_timestamp(1704456120000000") {
		t.Errorf("expected ledger upsert at %v in script:\n%s", target, script)
	}
	if !strings.HasPrefix(script, "DO $migration$") {
		t.Errorf("expected anonymous block wrapper, got:\n%s", script)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRun_ApplyFailure_RollsBackEverything(t *testing.T) {
	engine, mock, closeDB := newTestEngine(t, testFS())
	defer closeDB()

	mock.ExpectBegin()
	expectProbe(mock, false)
	mock.ExpectExec(regexp.QuoteMeta("DO $migration$")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectProbe(mock, true)
	expectVersion(mock, "auth", time.Time{})
	mock.ExpectExec(regexp.QuoteMeta("DO $migration$")).
		WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	_, err := engine.Run(context.Background(), []string{"base", "auth"}, true)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "module auth") || !strings.Contains(err.Error(), "apply migrations") {
		t.Errorf("expected module and stage in error, got: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRun_RejectsMalformedModuleName(t *testing.T) {
	engine, _, closeDB := newTestEngine(t, testFS())
	defer closeDB()

	_, err := engine.Run(context.Background(), []string{"auth; DROP TABLE"}, true)
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("expected ErrUnknownModule, got %v", err)
	}
}

func TestPending_RejectsMalformedFileName(t *testing.T) {
	fsys := testFS()
	fsys["auth/not_a_migration.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}

	engine, _, closeDB := newTestEngine(t, fsys)
	defer closeDB()

	_, err := engine.pending("auth", time.Time{})
	if !errors.Is(err, ErrBadMigrationName) {
		t.Fatalf("expected ErrBadMigrationName, got %v", err)
	}
}

func TestOrderModules(t *testing.T) {
	tests := []struct {
		name    string
		modules []string
		want    []string
	}{
		{"base fronted and duplicates removed", []string{"cache", "auth", "base", "auth"}, []string{"base", "cache", "auth"}},
		{"base included when not named", []string{"auth"}, []string{"base", "auth"}},
		{"empty input still yields base", nil, []string{"base"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ordered, err := orderModules(tt.modules)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(ordered) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, ordered)
			}
			for i := range tt.want {
				if ordered[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, ordered)
				}
			}
		})
	}
}
