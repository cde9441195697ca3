// Package sqlite registers the modernc.org/sqlite driver and provides DSN
// and connection helpers tuned for embedded use.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // database/sql driver registration
)

// DriverName is the name the driver registers with database/sql.
const DriverName = "sqlite"

// Options holds SQLite connection settings.
type Options struct {
	// ConnMaxLifetime limits how long a pooled connection may live.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime limits how long a pooled connection may sit idle.
	ConnMaxIdleTime time.Duration
	// MaxOpenConns caps open connections. SQLite has a single writer, so
	// keep this small.
	MaxOpenConns int
	// MaxIdleConns caps idle connections.
	MaxIdleConns int
	// PingTimeout bounds the reachability check on open.
	PingTimeout time.Duration
	// WALMode enables write-ahead logging.
	WALMode bool
	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool
	// BusyTimeout is how long SQLite waits on a locked database.
	BusyTimeout time.Duration
}

// DefaultOptions returns settings suitable for an embedded database.
func DefaultOptions() Options {
	return Options{
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		PingTimeout:     5 * time.Second,
		WALMode:         true,
		ForeignKeys:     true,
		BusyTimeout:     5 * time.Second,
	}
}

// DSN builds the connection string for the given database path.
func DSN(dbPath string, opts Options) string {
	params := []string{}
	if opts.BusyTimeout > 0 {
		params = append(params, fmt.Sprintf("_busy_timeout=%d", opts.BusyTimeout.Milliseconds()))
	}
	if len(params) > 0 {
		return dbPath + "?" + strings.Join(params, "&")
	}
	return dbPath
}

// Open opens a SQLite database at dbPath with default options, creating the
// parent directory when missing.
func Open(ctx context.Context, dbPath string) (*sql.DB, error) {
	return OpenWithOptions(ctx, dbPath, DefaultOptions())
}

// OpenWithOptions opens a SQLite database with the given settings.
func OpenWithOptions(ctx context.Context, dbPath string, opts Options) (*sql.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open(DriverName, DSN(dbPath, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := applyPragmas(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// applyPragmas applies PRAGMA settings after open; DSN parameters are not
// reliable across drivers.
func applyPragmas(ctx context.Context, db *sql.DB, opts Options) error {
	pragmas := make([]string, 0, 4)
	if opts.ForeignKeys {
		pragmas = append(pragmas, "PRAGMA foreign_keys = ON")
	}
	if opts.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	pragmas = append(pragmas, "PRAGMA synchronous = NORMAL")
	if opts.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()))
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// NewTestDB creates a temporary SQLite database file for tests and returns
// an open handle plus the file path.
func NewTestDB(ctx context.Context) (*sql.DB, string, error) {
	tmp, err := os.CreateTemp("", "test_db_*.sqlite")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()

	db, err := Open(ctx, path)
	if err != nil {
		_ = os.Remove(path)
		return nil, "", err
	}
	return db, path, nil
}

// CleanupTestDB closes a test database and removes its file.
func CleanupTestDB(db *sql.DB, path string) error {
	if db != nil {
		_ = db.Close()
	}
	if path != "" && path != ":memory:" {
		return os.Remove(path)
	}
	return nil
}
