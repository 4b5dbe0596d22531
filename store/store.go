// Package store is the datastore collaborator of the sync engine.
//
// Statements live in queries/*.sql and are addressed by file name without
// the extension. Parameters are written :name in SQL and supplied as Params.
// Slice values are bound as JSON arrays, so a query expands them with
// json_each:
//
//	WHERE job_id IN (SELECT value FROM json_each(:job_ids))
package store

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/mangasync/errors"
	"github.com/teranos/mangasync/logger"
)

//go:embed queries/*.sql
var queryFS embed.FS

// Params maps :name placeholders to values.
type Params map[string]any

// Executor runs named statements. Execute takes a single mapping;
// ExecuteBatch runs one statement per mapping and concatenates any rows
// the statements return.
type Executor interface {
	Execute(ctx context.Context, query string, params Params) ([]Row, error)
	ExecuteBatch(ctx context.Context, query string, batch []Params) ([]Row, error)
}

// Transactor is implemented by executors that can group calls atomically.
// fn receives an Executor bound to the transaction; returning an error
// rolls it back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// statement is a parsed query file.
type statement struct {
	name   string
	sql    string
	params []string
}

// loadStatements parses every embedded query file.
func loadStatements() (map[string]statement, error) {
	entries, err := queryFS.ReadDir("queries")
	if err != nil {
		return nil, errors.Wrap(err, "read queries")
	}
	stmts := make(map[string]statement, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		body, err := queryFS.ReadFile(path.Join("queries", entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", entry.Name())
		}
		name := strings.TrimSuffix(entry.Name(), ".sql")
		stmts[name] = statement{name: name, sql: string(body), params: placeholders(string(body))}
	}
	return stmts, nil
}

// SQLite executes named statements against a database/sql handle.
type SQLite struct {
	db     *sql.DB
	stmts  map[string]statement
	logger *zap.SugaredLogger
}

// NewSQLite returns an executor over db. A nil logger disables query logging.
func NewSQLite(db *sql.DB, log *zap.SugaredLogger) (*SQLite, error) {
	stmts, err := loadStatements()
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db, stmts: stmts, logger: logger.OrNop(log)}, nil
}

// DB returns the underlying handle.
func (s *SQLite) DB() *sql.DB { return s.db }

// Queries lists the available statement names, sorted.
func (s *SQLite) Queries() []string {
	names := make([]string, 0, len(s.stmts))
	for name := range s.stmts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute implements Executor.
func (s *SQLite) Execute(ctx context.Context, query string, params Params) ([]Row, error) {
	return s.execute(ctx, s.db, query, params)
}

// ExecuteBatch implements Executor. All mappings run in one transaction.
func (s *SQLite) ExecuteBatch(ctx context.Context, query string, batch []Params) ([]Row, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	var out []Row
	err := s.InTx(ctx, func(ctx context.Context, tx Executor) error {
		rows, err := tx.ExecuteBatch(ctx, query, batch)
		out = rows
		return err
	})
	return out, err
}

// InTx implements Transactor.
func (s *SQLite) InTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapStore(err, "begin")
	}
	if err := fn(ctx, &txExecutor{parent: s, tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}
	return errors.WrapStore(tx.Commit(), "commit")
}

func (s *SQLite) statement(query string) (statement, error) {
	st, ok := s.stmts[query]
	if !ok {
		return statement{}, errors.WrapStore(errors.Newf("unknown query %q", query), query)
	}
	return st, nil
}

func (s *SQLite) execute(ctx context.Context, q querier, query string, params Params) ([]Row, error) {
	st, err := s.statement(query)
	if err != nil {
		return nil, err
	}
	args, err := bind(st, params)
	if err != nil {
		return nil, errors.WrapStore(err, query)
	}

	start := time.Now()
	rows, err := q.QueryContext(ctx, st.sql, args...)
	if err != nil {
		return nil, errors.WrapStore(err, query)
	}
	out, err := scanRows(rows)
	if err != nil {
		return nil, errors.WrapStore(err, query)
	}
	logger.DBDebugw(s.logger, "query executed",
		logger.FieldQuery, query,
		logger.FieldCount, len(out),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return out, nil
}

func (s *SQLite) executeBatch(ctx context.Context, q querier, query string, batch []Params) ([]Row, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	st, err := s.statement(query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	prepared, err := q.PrepareContext(ctx, st.sql)
	if err != nil {
		return nil, errors.WrapStore(err, query)
	}
	defer prepared.Close()

	var out []Row
	for i, params := range batch {
		args, err := bind(st, params)
		if err != nil {
			return nil, errors.WrapStore(errors.Wrapf(err, "batch item %d", i), query)
		}
		rows, err := prepared.QueryContext(ctx, args...)
		if err != nil {
			return nil, errors.WrapStore(errors.Wrapf(err, "batch item %d", i), query)
		}
		got, err := scanRows(rows)
		if err != nil {
			return nil, errors.WrapStore(errors.Wrapf(err, "batch item %d", i), query)
		}
		out = append(out, got...)
	}
	logger.DBDebugw(s.logger, "batch executed",
		logger.FieldQuery, query,
		logger.FieldBatchSize, len(batch),
		logger.FieldCount, len(out),
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return out, nil
}

// txExecutor runs statements inside an open transaction.
type txExecutor struct {
	parent *SQLite
	tx     *sql.Tx
}

func (t *txExecutor) Execute(ctx context.Context, query string, params Params) ([]Row, error) {
	return t.parent.execute(ctx, t.tx, query, params)
}

func (t *txExecutor) ExecuteBatch(ctx context.Context, query string, batch []Params) ([]Row, error) {
	return t.parent.executeBatch(ctx, t.tx, query, batch)
}

// InTx on a transaction joins it rather than nesting.
func (t *txExecutor) InTx(ctx context.Context, fn func(ctx context.Context, tx Executor) error) error {
	return fn(ctx, t)
}
