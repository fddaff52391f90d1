// SPDX-License-Identifier: Apache-2.0

// Package migrate applies per-module schema migrations from an embedded
// filesystem. Each module owns one directory of timestamp-prefixed SQL
// files and one row in the auth.module_version ledger; a run applies
// every file strictly newer than the recorded version inside a single
// transaction spanning all requested modules.
package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/avessar/authstore/internal/logger"
	"github.com/avessar/authstore/models"
)

// ModuleBase holds the schema and the version ledger itself. It is always
// migrated first so the ledger exists before other modules consult it.
const ModuleBase = "base"

const versionLayout = "20060102150405"

var (
	ErrUnknownModule    = errors.New("unknown module")
	ErrBadMigrationName = errors.New("malformed migration file name")
)

var (
	fileNameRe   = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	moduleNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Result describes the outcome of one module within a run.
type Result struct {
	Module  string
	Applied int
	Version time.Time // version after the run; zero when nothing was pending
	Script  string    // populated on dry runs, the script that would execute
}

// Engine reads migration files from fsys and applies them through db.
type Engine struct {
	db     *sql.DB
	fsys   fs.FS
	logger *logger.Logger
}

func NewEngine(db *sql.DB, fsys fs.FS, log *logger.Logger) *Engine {
	return &Engine{db: db, fsys: fsys, logger: log}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Run migrates the requested modules in order, with duplicates removed and
// ModuleBase always run first whether or not the caller named it. When
// apply is false no transaction is opened and each
// Result carries the script that an apply run would execute. When apply is
// true every module's script runs inside one transaction; any failure rolls
// the whole invocation back, including ledger rows of earlier modules.
func (e *Engine) Run(ctx context.Context, modules []string, apply bool) ([]Result, error) {
	log := e.logger.GetChildLogger()
	ordered, err := orderModules(modules)
	if err != nil {
		return nil, err
	}

	var q querier = e.db
	var tx *sql.Tx
	if apply {
		tx, err = e.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback()
		q = tx
	}

	results := make([]Result, 0, len(ordered))
	for _, module := range ordered {
		res, err := e.runModule(ctx, q, module, apply)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", module, err)
		}
		log.Info().
			Str("func", "Run").
			Str("module", module).
			Int("applied", res.Applied).
			Bool("apply", apply).
			Msg("module migrated")
		results = append(results, res)
	}

	if apply {
		if err = tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit transaction: %w", err)
		}
	}
	return results, nil
}

func (e *Engine) runModule(ctx context.Context, q querier, module string, apply bool) (Result, error) {
	current, err := e.currentVersion(ctx, q, module)
	if err != nil {
		return Result{}, err
	}

	pending, err := e.pending(module, current.Version)
	if err != nil {
		return Result{}, err
	}
	if len(pending) == 0 {
		return Result{Module: module, Version: current.Version}, nil
	}

	target := pending[len(pending)-1].version
	script := buildScript(module, target, pending)
	res := Result{Module: module, Applied: len(pending), Version: target}
	if !apply {
		res.Script = script
		return res, nil
	}

	if _, err = q.ExecContext(ctx, script); err != nil {
		return Result{}, fmt.Errorf("apply migrations: %w", err)
	}
	return res, nil
}

// currentVersion reads the module's ledger row. A missing ledger relation
// and a missing row both mean the module has never been migrated, which a
// zero version expresses.
func (e *Engine) currentVersion(ctx context.Context, q querier, module string) (models.ModuleVersion, error) {
	current := models.ModuleVersion{Module: module}

	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT to_regclass('auth.module_version') IS NOT NULL`,
	).Scan(&exists)
	if err != nil {
		return models.ModuleVersion{}, fmt.Errorf("probe ledger: %w", err)
	}
	if !exists {
		return current, nil
	}

	var micros int64
	err = q.QueryRowContext(ctx,
		`SELECT (extract(epoch from version) * 1000000)::bigint FROM auth.module_version WHERE module = $1`,
		module,
	).Scan(&micros)
	if errors.Is(err, sql.ErrNoRows) {
		return current, nil
	}
	if err != nil {
		return models.ModuleVersion{}, fmt.Errorf("read version: %w", err)
	}

	current.Version = time.UnixMicro(micros).UTC()
	return current, nil
}

type migrationFile struct {
	name     string
	version  time.Time
	contents string
}

// pending lists the module's files strictly newer than current, in
// ascending timestamp order, with their contents loaded.
func (e *Engine) pending(module string, current time.Time) ([]migrationFile, error) {
	entries, err := fs.ReadDir(e.fsys, module)
	if err != nil {
		return nil, fmt.Errorf("discover migrations: %w", err)
	}

	files := make([]migrationFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := fileNameRe.FindStringSubmatch(entry.Name())
		if m == nil {
			return nil, fmt.Errorf("discover migrations: %w: %s", ErrBadMigrationName, entry.Name())
		}
		version, err := time.ParseInLocation(versionLayout, m[1], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("discover migrations: %w: %s", ErrBadMigrationName, entry.Name())
		}
		if !version.After(current) {
			continue
		}
		raw, err := fs.ReadFile(e.fsys, module+"/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", entry.Name(), err)
		}
		files = append(files, migrationFile{name: entry.Name(), version: version, contents: string(raw)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

// buildScript concatenates the pending files and the ledger upsert into a
// single anonymous block, so a module either advances completely or not at
// all even outside the outer transaction.
func buildScript(module string, target time.Time, files []migrationFile) string {
	var b strings.Builder
	b.WriteString("DO $migration$\nBEGIN\n")
	for _, f := range files {
		b.WriteString("\n-- ")
		b.WriteString(f.name)
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(f.contents, "\n"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b,
		"\nINSERT INTO auth.module_version (module, version)\nVALUES ('%s', to_timestamp(%d::bigint / 1000000.0))\nON CONFLICT (module) DO UPDATE SET version = excluded.version;\n",
		module, target.UnixMicro())
	b.WriteString("\nEND\n$migration$;\n")
	return b.String()
}

// orderModules validates names and removes duplicates while preserving the
// caller's order. ModuleBase is always placed first, named or not: every
// other module's ledger row needs the ledger table it creates, and its
// no-op path makes the unconditional inclusion free on an up-to-date
// database.
func orderModules(modules []string) ([]string, error) {
	seen := map[string]struct{}{ModuleBase: {}}
	ordered := append(make([]string, 0, len(modules)+1), ModuleBase)
	for _, module := range modules {
		if !moduleNameRe.MatchString(module) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownModule, module)
		}
		if _, ok := seen[module]; ok {
			continue
		}
		seen[module] = struct{}{}
		ordered = append(ordered, module)
	}
	return ordered, nil
}
