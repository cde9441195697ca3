package persist

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
)

// outcomeKind selects which MappedResult shape an execution populates.
type outcomeKind int

const (
	outcomeQuery outcomeKind = iota
	outcomeInsert
	outcomeExec
)

// classify derives the outcome kind from the statement's leading keyword,
// skipping whitespace and SQL comments. Statements that return rows map to
// the rows shape, INSERT to generated keys, and everything else (UPDATE,
// DELETE, DDL) to the affected-row count.
func classify(text string) outcomeKind {
	switch leadingKeyword(text) {
	case "SELECT", "WITH", "VALUES", "PRAGMA", "SHOW", "EXPLAIN":
		return outcomeQuery
	case "INSERT":
		return outcomeInsert
	default:
		return outcomeExec
	}
}

// leadingKeyword returns the first SQL token of text, upper-cased.
func leadingKeyword(text string) string {
	s := text
	for {
		s = strings.TrimLeft(s, " \t\r\n")
		switch {
		case strings.HasPrefix(s, "--"):
			if i := strings.IndexByte(s, '\n'); i >= 0 {
				s = s[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(s, "/*"):
			if i := strings.Index(s, "*/"); i >= 0 {
				s = s[i+2:]
				continue
			}
			return ""
		}
		break
	}
	end := len(s)
	for i, c := range s {
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '(' || c == ';' {
			end = i
			break
		}
	}
	return strings.ToUpper(s[:end])
}

// Executor runs statements inside automatically managed transactions. Each
// call owns a dedicated connection and exactly one transaction for its full
// duration; no state is shared across concurrent calls.
type Executor struct {
	provider ConnectionProvider
	log      *slog.Logger

	once    sync.Once
	db      *sql.DB
	openErr error
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger injects the structured logger used for trace events.
func WithLogger(log *slog.Logger) Option {
	return func(ex *Executor) {
		if log != nil {
			ex.log = log
		}
	}
}

// NewExecutor creates an Executor for the given connection provider.
func NewExecutor(provider ConnectionProvider, opts ...Option) *Executor {
	ex := &Executor{provider: provider, log: slog.Default()}
	for _, opt := range opts {
		opt(ex)
	}
	return ex
}

// Close releases the underlying database handle, if one was opened.
func (ex *Executor) Close() error {
	if ex.db != nil {
		return ex.db.Close()
	}
	return nil
}

// Ping verifies that the configured database is reachable.
func (ex *Executor) Ping(ctx context.Context) error {
	db, err := ex.database()
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return wrapError("connection has failed", err)
	}
	return nil
}

// database lazily resolves the driver and opens the handle. Resolution runs
// once; the provider is treated as immutable configuration.
func (ex *Executor) database() (*sql.DB, error) {
	ex.once.Do(func() {
		if err := validateProvider(ex.provider, sql.Drivers()); err != nil {
			ex.openErr = err
			return
		}
		db, err := sql.Open(ex.provider.Driver(), composeDSN(ex.provider))
		if err != nil {
			ex.openErr = wrapError("connection has failed", err)
			return
		}
		ex.db = db
	})
	return ex.db, ex.openErr
}

// Execute runs spec inside its own transaction and converts the outcome
// through mapper.
//
// The outcome is fully materialized and the transaction committed before
// mapper is invoked, so a mapper error signals a mapping failure on already
// persisted work, never a rollback. All pre-commit failures roll back the
// transaction and surface as a persistence Error. The connection and
// prepared statement are released on every exit path.
func Execute[T any](ctx context.Context, ex *Executor, spec Spec, mapper RowMapper[T]) (T, error) {
	var zero T
	if mapper == nil {
		return zero, newError("the row mapper has not been initialized")
	}
	if err := spec.validate(); err != nil {
		return zero, err
	}
	db, err := ex.database()
	if err != nil {
		return zero, err
	}
	if spec.hasArgs() {
		ex.log.DebugContext(ctx, "statement built", slog.String("query", spec.text))
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return zero, wrapError("connection has failed", err)
	}
	defer func() { _ = conn.Close() }()

	// BeginTx demarcates the transaction boundary: one transaction per call.
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return zero, wrapError("connection has failed", err)
	}

	result := newMappedResult()
	if err := runStatement(ctx, tx, spec, result); err != nil {
		_ = tx.Rollback()
		return zero, wrapError("the execution of the statement has failed", err)
	}
	if err := tx.Commit(); err != nil {
		return zero, wrapError("the execution of the statement has failed", err)
	}

	return mapper(result)
}

// Transact runs fn inside one dedicated connection and transaction,
// committing on success and rolling back on error. It is the lower-level
// primitive behind Execute's statement path; the migration runner uses it
// for multi-statement scripts.
func (ex *Executor) Transact(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	db, err := ex.database()
	if err != nil {
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return wrapError("connection has failed", err)
	}
	defer func() { _ = conn.Close() }()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return wrapError("connection has failed", err)
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return wrapError("transaction has failed", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapError("transaction has failed", err)
	}
	return nil
}

// runStatement prepares and executes spec in tx and populates result with
// exactly one outcome shape. The driver cursor is fully drained and closed
// before returning, so commit can follow immediately.
func runStatement(ctx context.Context, tx *sql.Tx, spec Spec, result *MappedResult) error {
	stmt, err := tx.PrepareContext(ctx, spec.text)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	switch classify(spec.text) {
	case outcomeQuery:
		rows, err := stmt.QueryContext(ctx, spec.args...)
		if err != nil {
			return err
		}
		return drainRows(rows, result)
	case outcomeInsert:
		res, err := stmt.ExecContext(ctx, spec.args...)
		if err != nil {
			return err
		}
		result.setGeneratedKeys(generatedKeys(res))
		return nil
	default:
		res, err := stmt.ExecContext(ctx, spec.args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		result.setRowsAffected(n)
		return nil
	}
}

// drainRows snapshots every row into name->value maps, preserving the
// declared column order, and closes the cursor.
func drainRows(rows *sql.Rows, result *MappedResult) (err error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	var snapshot []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		dests := make([]any, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return err
		}
		row := make(map[string]any, len(columns))
		for i, name := range columns {
			row[name] = values[i]
		}
		snapshot = append(snapshot, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	result.setRows(columns, snapshot)
	return nil
}

// generatedKeys derives the key list for an insert from the driver's
// last-insert id and affected-row count. Drivers that do not report ids
// (postgres) yield an empty list, matching an empty generated-key cursor.
func generatedKeys(res sql.Result) []any {
	n, err := res.RowsAffected()
	if err != nil || n <= 0 {
		return []any{}
	}
	last, err := res.LastInsertId()
	if err != nil {
		return []any{}
	}
	keys := make([]any, 0, n)
	for id := last - n + 1; id <= last; id++ {
		keys = append(keys, id)
	}
	return keys
}
