package table

import (
	"fmt"
	"strconv"

	apperrors "sdgwater/internal/errors"
)

// Table is an ordered set of named columns over ordered rows. Every row has
// exactly one Value per column.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Value
}

// New creates an empty table with the given columns. Column names must be
// unique; a repeated name is a schema error.
func New(columns ...string) (*Table, error) {
	t := &Table{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	copy(t.columns, columns)
	for i, c := range t.columns {
		if _, dup := t.index[c]; dup {
			return nil, apperrors.NewDuplicateColumnError(c, columns)
		}
		t.index[c] = i
	}
	return t, nil
}

// emptyLike returns an empty table with the columns of t.
func (t *Table) emptyLike() *Table {
	out := &Table{
		columns: make([]string, len(t.columns)),
		index:   make(map[string]int, len(t.columns)),
	}
	copy(out.columns, t.columns)
	for c, i := range t.index {
		out.index[c] = i
	}
	return out
}

// UniqueNames numbers repeated names in order of appearance: a, a.1, a.2.
// The first occurrence keeps its name and a generated name that is already
// taken moves on to the next number.
func UniqueNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	next := make(map[string]int)
	for i, name := range names {
		candidate := name
		for used[candidate] {
			next[name]++
			candidate = name + "." + strconv.Itoa(next[name])
		}
		used[candidate] = true
		out[i] = candidate
	}
	return out
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Has reports whether the column exists.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Index returns the position of a column.
func (t *Table) Index(column string) (int, bool) {
	i, ok := t.index[column]
	return i, ok
}

// Require returns a schema error for the first missing column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.Has(c) {
			return apperrors.NewSchemaError(c, t.Columns())
		}
	}
	return nil
}

// Append adds a row. The row is copied.
func (t *Table) Append(row []Value) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}
	r := make([]Value, len(row))
	copy(r, row)
	t.rows = append(t.rows, r)
	return nil
}

// Row returns row i. The slice aliases table storage.
func (t *Table) Row(i int) []Value { return t.rows[i] }

// Get returns the cell at row i in the named column, or Null if the column
// does not exist.
func (t *Table) Get(i int, column string) Value {
	c, ok := t.index[column]
	if !ok {
		return Null
	}
	return t.rows[i][c]
}

// Set replaces the cell at row i in the named column.
func (t *Table) Set(i int, column string, v Value) error {
	c, ok := t.index[column]
	if !ok {
		return apperrors.NewSchemaError(column, t.Columns())
	}
	t.rows[i][c] = v
	return nil
}

// Column returns a copy of all values of a column.
func (t *Table) Column(column string) ([]Value, error) {
	c, ok := t.index[column]
	if !ok {
		return nil, apperrors.NewSchemaError(column, t.Columns())
	}
	out := make([]Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[c]
	}
	return out, nil
}

// SetColumn writes values into a column, adding it at the end if it does not
// exist yet.
func (t *Table) SetColumn(column string, values []Value) error {
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %s has %d values, table has %d rows", column, len(values), len(t.rows))
	}
	c, ok := t.index[column]
	if !ok {
		c = len(t.columns)
		t.columns = append(t.columns, column)
		t.index[column] = c
		for i := range t.rows {
			t.rows[i] = append(t.rows[i], Null)
		}
	}
	for i, v := range values {
		t.rows[i][c] = v
	}
	return nil
}

// Drop returns a copy of the table without the named columns. Names that do
// not exist are ignored.
func (t *Table) Drop(columns ...string) *Table {
	drop := make(map[string]bool, len(columns))
	for _, c := range columns {
		drop[c] = true
	}
	var keep []string
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Select returns a copy holding only the named columns, in that order.
func (t *Table) Select(columns ...string) (*Table, error) {
	pos := make([]int, len(columns))
	for i, c := range columns {
		p, ok := t.index[c]
		if !ok {
			return nil, apperrors.NewSchemaError(c, t.Columns())
		}
		pos[i] = p
	}
	out, err := New(columns...)
	if err != nil {
		return nil, err
	}
	out.rows = make([][]Value, len(t.rows))
	for i, r := range t.rows {
		nr := make([]Value, len(pos))
		for j, p := range pos {
			nr[j] = r[p]
		}
		out.rows[i] = nr
	}
	return out, nil
}

// Filter returns a copy holding the rows for which keep returns true.
func (t *Table) Filter(keep func(i int, row []Value) bool) *Table {
	out := t.emptyLike()
	for i, r := range t.rows {
		if keep(i, r) {
			nr := make([]Value, len(r))
			copy(nr, r)
			out.rows = append(out.rows, nr)
		}
	}
	return out
}

// Head returns a copy of the first n rows.
func (t *Table) Head(n int) *Table {
	return t.Filter(func(i int, _ []Value) bool { return i < n })
}

// Records renders every row as text, Null as the empty string.
func (t *Table) Records() [][]string {
	out := make([][]string, len(t.rows))
	for i, r := range t.rows {
		rec := make([]string, len(r))
		for j, v := range r {
			rec[j] = v.Text()
		}
		out[i] = rec
	}
	return out
}
