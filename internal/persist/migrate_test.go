package persist

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeMigration creates a script file in dir.
func writeMigration(t *testing.T, dir, name, script string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0o644))
}

// ledgerVersions reads the applied versions recorded in the ledger.
func ledgerVersions(t *testing.T, ex *Executor) []string {
	t.Helper()
	versions, err := Execute(context.Background(), ex,
		NewSpec("SELECT migration_version FROM migration_info ORDER BY migration_version"),
		func(res *MappedResult) ([]string, error) {
			var out []string
			for {
				ok, err := res.Next()
				if err != nil {
					return nil, err
				}
				if !ok {
					return out, nil
				}
				v, err := res.Column("migration_version")
				if err != nil {
					return nil, err
				}
				out = append(out, asText(v))
			}
		})
	require.NoError(t, err)
	return versions
}

// countRows counts the rows of a table.
func countRows(t *testing.T, ex *Executor, table string) int64 {
	t.Helper()
	n, err := Execute(context.Background(), ex, NewSpec("SELECT COUNT(*) AS n FROM "+table),
		func(res *MappedResult) (int64, error) {
			ok, err := res.Next()
			if err != nil || !ok {
				return 0, err
			}
			v, err := res.Column("n")
			if err != nil {
				return 0, err
			}
			return v.(int64), nil
		})
	require.NoError(t, err)
	return n
}

func TestRunner_Apply(t *testing.T) {
	ctx := context.Background()
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	dir := t.TempDir()
	writeMigration(t, dir, "V1__init.sql",
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);")
	writeMigration(t, dir, "V2__seed.sql",
		"INSERT INTO t (name) VALUES ('first');")

	require.NoError(t, runner.Apply(ctx, dir))

	assert.Equal(t, []string{"1", "2"}, ledgerVersions(t, ex))
	assert.Equal(t, int64(1), countRows(t, ex, "t"))
}

func TestRunner_ApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	dir := t.TempDir()
	writeMigration(t, dir, "V1__init.sql",
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);")
	writeMigration(t, dir, "V2__seed.sql",
		"INSERT INTO t (name) VALUES ('first');")

	require.NoError(t, runner.Apply(ctx, dir))
	require.NoError(t, runner.Apply(ctx, dir))

	// No script re-executed: still one seeded row, still two ledger rows.
	assert.Equal(t, []string{"1", "2"}, ledgerVersions(t, ex))
	assert.Equal(t, int64(1), countRows(t, ex, "t"))
}

func TestRunner_NumericVersionOrder(t *testing.T) {
	ctx := context.Background()
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	// Lexical directory order would put V10 before V2 and break the insert.
	dir := t.TempDir()
	writeMigration(t, dir, "V10__seed.sql",
		"INSERT INTO t (name) VALUES ('late');")
	writeMigration(t, dir, "V2__init.sql",
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);")

	require.NoError(t, runner.Apply(ctx, dir))
	assert.ElementsMatch(t, []string{"2", "10"}, ledgerVersions(t, ex))
	assert.Equal(t, int64(1), countRows(t, ex, "t"))
}

func TestRunner_MultiStatementScript(t *testing.T) {
	ctx := context.Background()
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	dir := t.TempDir()
	writeMigration(t, dir, "V1__init.sql", `
CREATE TABLE a (id INTEGER PRIMARY KEY);
CREATE TABLE b (id INTEGER PRIMARY KEY);
INSERT INTO a (id) VALUES (1);
INSERT INTO b (id) VALUES (1);
`)

	require.NoError(t, runner.Apply(ctx, dir))
	assert.Equal(t, int64(1), countRows(t, ex, "a"))
	assert.Equal(t, int64(1), countRows(t, ex, "b"))
}

func TestRunner_FailFastOnBadFileName(t *testing.T) {
	ctx := context.Background()
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	dir := t.TempDir()
	writeMigration(t, dir, "V1__init.sql",
		"CREATE TABLE t (id INTEGER PRIMARY KEY);")
	writeMigration(t, dir, "001_bad_name.sql",
		"CREATE TABLE broken (id INTEGER PRIMARY KEY);")

	err := runner.Apply(ctx, dir)
	require.Error(t, err)
	assert.True(t, IsFailure(err))

	// Validation failed before anything executed: no ledger, no tables.
	_, err = Execute(ctx, ex, NewSpec("SELECT migration_version FROM migration_info"), collectRows)
	assert.True(t, IsFailure(err))
	_, err = Execute(ctx, ex, NewSpec("SELECT * FROM t"), collectRows)
	assert.True(t, IsFailure(err))
}

func TestRunner_FailingScriptRollsBack(t *testing.T) {
	ctx := context.Background()
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	dir := t.TempDir()
	writeMigration(t, dir, "V1__init.sql",
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT);")
	writeMigration(t, dir, "V2__broken.sql", `
INSERT INTO t (name) VALUES ('partial');
INSERT INTO no_such_table (x) VALUES (1);
`)

	err := runner.Apply(ctx, dir)
	require.Error(t, err)
	assert.True(t, IsFailure(err))

	// The first script stays committed; the failing one rolled back whole.
	assert.Equal(t, []string{"1"}, ledgerVersions(t, ex))
	assert.Equal(t, int64(0), countRows(t, ex, "t"))
}

func TestRunner_MissingDirectory(t *testing.T) {
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	err := runner.Apply(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, IsFailure(err))
	assert.Contains(t, err.Error(), "directory")
}

func TestRunner_DirectoryEntryRejected(t *testing.T) {
	ctx := context.Background()
	ex := newTestExecutor(t)
	runner := NewRunner(ex)

	dir := t.TempDir()
	// A subdirectory is not a regular file even when the name matches.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "V1__subdir.sql"), 0o755))

	err := runner.Apply(ctx, dir)
	require.Error(t, err)
	assert.True(t, IsFailure(err))
}
