// Package persist is a transactional query-execution layer on top of a
// database/sql driver.
//
// A caller declares a parameterized statement as a Spec, the Executor runs it
// inside an automatically managed transaction, and a caller-supplied
// RowMapper converts the driver outcome into an application type. The three
// structurally different driver outcomes (row sets, generated keys, affected
// row counts) are unified behind the single-pass MappedResult cursor, so
// connection and result-set lifecycle never leak to the caller.
//
// Basic usage:
//
//	ex := persist.NewExecutor(persist.Static{DriverName: "sqlite", DSN: "app.db"})
//	defer ex.Close()
//
//	type user struct {
//		ID   int64
//		Name string
//	}
//
//	users, err := persist.Execute(ctx, ex,
//		persist.NewSpec("SELECT id, name FROM users WHERE active = ?").WithArgs(1),
//		func(res *persist.MappedResult) ([]user, error) {
//			var out []user
//			for {
//				ok, err := res.Next()
//				if err != nil || !ok {
//					return out, err
//				}
//				id, _ := res.Column("id")
//				name, _ := res.Column("name")
//				out = append(out, user{ID: id.(int64), Name: name.(string)})
//			}
//		})
//
// The transaction commits before the mapper runs: a mapper error means the
// work is persisted but deriving the return value failed, which is a
// different caller-visible category than a persistence failure.
//
// The Runner applies versioned V<digits>__<description>.sql scripts on top of
// the same transactional primitive, tracking applied versions in the
// migration_info ledger table.
//
// Every failure surfaces as *Error; check with IsFailure or errors.As.
package persist
