package persist

import "context"

// Unit is a thin facade bundling an Executor with the statement-builder
// call shape:
//
//	user, err := persist.Persist(ctx, unit,
//		func() persist.Spec {
//			return persist.NewSpec("SELECT id, name FROM users WHERE id = ?").WithArgs(1)
//		},
//		collectUser)
type Unit struct {
	ex *Executor
}

// NewUnit creates a Unit around the given executor.
func NewUnit(ex *Executor) *Unit {
	return &Unit{ex: ex}
}

// Executor exposes the underlying executor, for callers that need Transact
// or the migration runner.
func (u *Unit) Executor() *Executor {
	return u.ex
}

// Persist builds a statement via stmt and executes it through the unit's
// executor, mapping the outcome with mapper.
func Persist[T any](ctx context.Context, u *Unit, stmt Statement, mapper RowMapper[T]) (T, error) {
	if stmt == nil {
		var zero T
		return zero, newError("the statement builder has not been initialized")
	}
	return Execute(ctx, u.ex, stmt(), mapper)
}
