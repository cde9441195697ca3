package persist

// shape identifies which of the three result kinds a MappedResult carries.
type shape int

const (
	shapeNone shape = iota
	shapeRows
	shapeKeys
	shapeCount
)

// rowsUnset is the sentinel distinguishing "rows-affected never populated"
// from a legitimate zero count.
const rowsUnset = -1

// MappedResult is a single-pass, forward-only cursor over the outcome of one
// statement execution. Exactly one of three shapes is populated: named-column
// rows for queries, a generated-key list for inserts, or an affected-row
// count for other DML.
//
// The cursor starts before the first entry; Next must be called before
// Column or GeneratedKey. A MappedResult is created fresh per execution,
// handed to the row mapper, and must not be retained after the mapper
// returns.
type MappedResult struct {
	rows         []map[string]any
	columns      []string
	keys         []any
	rowsAffected int64
	index        int
	kind         shape
}

func newMappedResult() *MappedResult {
	return &MappedResult{rowsAffected: rowsUnset, index: -1}
}

func (r *MappedResult) setRows(columns []string, rows []map[string]any) {
	r.columns = columns
	r.rows = rows
	r.kind = shapeRows
	r.index = -1
	r.rowsAffected = rowsUnset
}

func (r *MappedResult) setGeneratedKeys(keys []any) {
	r.keys = keys
	r.kind = shapeKeys
	r.index = -1
	r.rowsAffected = rowsUnset
}

func (r *MappedResult) setRowsAffected(n int64) {
	r.kind = shapeCount
	r.rowsAffected = n
}

// Next advances the cursor and reports whether the new position is in
// bounds. It fails when neither rows nor generated keys were populated.
func (r *MappedResult) Next() (bool, error) {
	switch r.kind {
	case shapeRows:
		r.index++
		return r.index < len(r.rows), nil
	case shapeKeys:
		r.index++
		return r.index < len(r.keys), nil
	default:
		return false, newError("there are no query results to iterate")
	}
}

// Column returns the value of the named column at the current cursor
// position. Valid only for the rows shape, after at least one successful
// Next.
func (r *MappedResult) Column(name string) (any, error) {
	if r.kind != shapeRows {
		return nil, newError("there are no results with named columns")
	}
	if r.index < 0 || r.index >= len(r.rows) {
		return nil, newError("Next must be called and return true before reading a column")
	}
	return r.rows[r.index][name], nil
}

// GeneratedKey returns the generated key at the current cursor position.
// Valid only for the generated-keys shape, after at least one successful
// Next.
func (r *MappedResult) GeneratedKey() (any, error) {
	if r.kind != shapeKeys {
		return nil, newError("there are no generated keys for this statement")
	}
	if r.index < 0 || r.index >= len(r.keys) {
		return nil, newError("Next must be called and return true before reading a key")
	}
	return r.keys[r.index], nil
}

// RowsAffected returns the number of rows changed by the statement. Valid
// only when that shape was populated, independent of the cursor.
func (r *MappedResult) RowsAffected() (int64, error) {
	if r.rowsAffected == rowsUnset {
		return 0, newError("no affected-row count was reported for this statement")
	}
	return r.rowsAffected, nil
}

// Columns returns the column names in the order declared by the result
// metadata, or nil when the rows shape is not populated.
func (r *MappedResult) Columns() []string {
	return r.columns
}

// Len returns the number of entries in the populated iterable shape.
func (r *MappedResult) Len() int {
	switch r.kind {
	case shapeRows:
		return len(r.rows)
	case shapeKeys:
		return len(r.keys)
	default:
		return 0
	}
}

// RowMapper converts a fully materialized MappedResult into a value of type
// T. It is invoked exactly once per execution, after commit, and must not
// retain the result beyond its own return.
type RowMapper[T any] func(*MappedResult) (T, error)
