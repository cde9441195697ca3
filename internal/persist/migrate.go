package persist

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ledgerTable is the durable record of applied migration versions. One row
// per version; the primary key is the applied-once invariant.
const ledgerTable = "migration_info"

// migrationFilePattern is the required shape of migration file names, e.g.
// V3__add_users_index.sql. The first capture group is the version.
var migrationFilePattern = regexp.MustCompile(`^V(\d+)__(.+)\.sql$`)

// migrationFile is a discovered, validated script pending an applied check.
type migrationFile struct {
	path    string
	name    string
	version string
	order   int64
}

// Runner applies versioned SQL scripts on top of the Executor. Every script
// runs in its own dedicated transaction; scripts are strictly sequential.
type Runner struct {
	ex  *Executor
	log *slog.Logger
}

// NewRunner creates a migration Runner sharing the executor's logger.
func NewRunner(ex *Executor) *Runner {
	return &Runner{ex: ex, log: ex.log}
}

// Apply discovers V<digits>__<description>.sql scripts in dir and applies the
// ones not yet recorded in the ledger table, in ascending numeric version
// order, each inside one transaction that also records the version.
//
// The whole directory is validated before anything executes: a file name not
// matching the required shape, or an entry that is not a regular readable
// file, aborts the run with the ledger untouched. A failing script rolls back
// its own transaction and aborts the run; earlier scripts stay applied.
//
// Apply is idempotent: re-running over the same directory is a no-op.
func (r *Runner) Apply(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return newErrorf("could not access directory %q, make sure it exists", dir)
	}

	files, err := discoverMigrations(dir)
	if err != nil {
		return err
	}

	if err := r.ensureLedger(ctx); err != nil {
		return err
	}
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, f := range files {
		if _, ok := applied[f.version]; ok {
			r.log.DebugContext(ctx, "migration already applied", slog.String("file", f.name))
			continue
		}
		if err := r.applyScript(ctx, f); err != nil {
			return err
		}
		r.log.InfoContext(ctx, "migration applied",
			slog.String("file", f.name),
			slog.String("version", f.version))
	}
	return nil
}

// discoverMigrations lists and validates every entry of dir, returning the
// scripts sorted by numeric version.
func discoverMigrations(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, wrapError("could not read migration directory", err)
	}

	files := make([]migrationFile, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		m := migrationFilePattern.FindStringSubmatch(name)
		if m == nil || !entry.Type().IsRegular() {
			return nil, newErrorf("unable to access SQL file %q, make sure the file is valid and accessible", name)
		}
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if err != nil {
			return nil, newErrorf("unable to access SQL file %q, make sure the file is valid and accessible", name)
		}
		_ = f.Close()

		order, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, newErrorf("unable to parse migration version from %q", name)
		}
		files = append(files, migrationFile{path: path, name: name, version: m[1], order: order})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].order < files[j].order })
	return files, nil
}

// ensureLedger creates the ledger table when absent.
func (r *Runner) ensureLedger(ctx context.Context) error {
	spec := NewSpec("CREATE TABLE IF NOT EXISTS " + ledgerTable + "(migration_version VARCHAR(255) PRIMARY KEY)")
	_, err := Execute(ctx, r.ex, spec, func(*MappedResult) (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		return wrapError("unable to prepare the migration ledger", err)
	}
	return nil
}

// appliedVersions loads the set of already-applied version identifiers.
func (r *Runner) appliedVersions(ctx context.Context) (map[string]struct{}, error) {
	spec := NewSpec("SELECT migration_version FROM " + ledgerTable)
	return Execute(ctx, r.ex, spec, func(res *MappedResult) (map[string]struct{}, error) {
		versions := make(map[string]struct{})
		for {
			ok, err := res.Next()
			if err != nil {
				return nil, err
			}
			if !ok {
				return versions, nil
			}
			v, err := res.Column("migration_version")
			if err != nil {
				return nil, err
			}
			switch s := v.(type) {
			case string:
				versions[s] = struct{}{}
			case []byte:
				versions[string(s)] = struct{}{}
			}
		}
	})
}

// applyScript runs one script file and its ledger insert in a single
// transaction.
func (r *Runner) applyScript(ctx context.Context, f migrationFile) error {
	return r.ex.Transact(ctx, func(ctx context.Context, tx *sql.Tx) error {
		script, err := os.ReadFile(f.path)
		if err != nil {
			return wrapError("unable to perform migration", err)
		}
		for _, statement := range strings.Split(string(script), ";") {
			statement = strings.TrimSpace(statement)
			if statement == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, statement); err != nil {
				return wrapError("unable to perform migration", err)
			}
		}
		// The version is a validated digit run, safe to inline.
		record := fmt.Sprintf("INSERT INTO %s VALUES ('%s')", ledgerTable, f.version)
		if _, err := tx.ExecContext(ctx, record); err != nil {
			return wrapError("unable to perform migration", err)
		}
		return nil
	})
}
