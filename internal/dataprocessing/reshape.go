package dataprocessing

import (
	"fmt"
	"sort"
	"strings"

	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

// ReshapeSpec describes how one long-form dataset becomes wide.
type ReshapeSpec struct {
	// CategoryColumn holds the values that become new column names.
	CategoryColumn string
	// ValueColumn holds the cell values.
	ValueColumn string
	// KeyColumns identify one output row.
	KeyColumns []string
	// DropColumns are removed, when present, before anything else.
	DropColumns []string
}

// NormalizeColumnName replaces spaces and slashes with underscores.
func NormalizeColumnName(name string) string {
	return strings.NewReplacer(" ", "_", "/", "_").Replace(name)
}

// Reshape pivots a long table into one row per distinct key tuple and one
// column per distinct category. For repeated (key, category) pairs the first
// non-null value wins and later ones are ignored. Rows with a null key or
// category are skipped, and categories with no non-null cell are dropped.
//
// Column names are normalized after grouping, so distinct categories may
// normalize to the same name or to a key name. Every such column is kept and
// later ones are numbered: Radio_TV, Radio_TV.1.
//
// Missing columns produce a schema error listing the available columns.
// A fault inside the pivot itself is recovered and returned as a reshape
// error with a nil table.
func Reshape(long *table.Table, spec ReshapeSpec) (wide *table.Table, err error) {
	if long == nil {
		return nil, apperrors.NewReshapeError("nil input table", nil)
	}
	if len(spec.DropColumns) > 0 {
		long = long.Drop(spec.DropColumns...)
	}

	required := append([]string{spec.CategoryColumn, spec.ValueColumn}, spec.KeyColumns...)
	if err := long.Require(required...); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			wide = nil
			err = apperrors.NewReshapeError("pivot failed", fmt.Errorf("%v", r))
		}
	}()

	return pivot(long, spec)
}

type groupRow struct {
	key   []table.Value
	cells map[string]table.Value
}

func pivot(long *table.Table, spec ReshapeSpec) (*table.Table, error) {
	keyIdx := make([]int, len(spec.KeyColumns))
	for i, k := range spec.KeyColumns {
		keyIdx[i], _ = long.Index(k)
	}
	catIdx, _ := long.Index(spec.CategoryColumn)
	valIdx, _ := long.Index(spec.ValueColumn)

	groups := make(map[string]*groupRow)
	var order []*groupRow
	categories := make(map[string]table.Value)

	for i := 0; i < long.Len(); i++ {
		row := long.Row(i)

		key := make([]table.Value, len(keyIdx))
		skip := false
		for j, idx := range keyIdx {
			key[j] = row[idx]
			if key[j].IsNull() {
				skip = true
			}
		}
		cat := row[catIdx]
		if skip || cat.IsNull() {
			continue
		}

		gk := groupKey(key)
		g, ok := groups[gk]
		if !ok {
			g = &groupRow{key: key, cells: make(map[string]table.Value)}
			groups[gk] = g
			order = append(order, g)
		}

		name := cat.Text()
		if _, seen := categories[name]; !seen {
			categories[name] = cat
		}
		// first non-null value wins
		if cur, ok := g.cells[name]; ok && !cur.IsNull() {
			continue
		}
		g.cells[name] = row[valIdx]
	}

	cols := sortedCategories(categories, order)

	sort.SliceStable(order, func(a, b int) bool {
		return compareKeys(order[a].key, order[b].key) < 0
	})

	names := make([]string, 0, len(spec.KeyColumns)+len(cols))
	for _, k := range spec.KeyColumns {
		names = append(names, NormalizeColumnName(k))
	}
	for _, c := range cols {
		names = append(names, NormalizeColumnName(c))
	}

	out, err := table.New(table.UniqueNames(names)...)
	if err != nil {
		return nil, err
	}
	for _, g := range order {
		row := make([]table.Value, 0, len(names))
		row = append(row, g.key...)
		for _, c := range cols {
			v, ok := g.cells[c]
			if !ok {
				v = table.Null
			}
			row = append(row, v)
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// sortedCategories returns category names that hold at least one non-null
// cell, ordered by their original values.
func sortedCategories(categories map[string]table.Value, groups []*groupRow) []string {
	var cols []string
	for name := range categories {
		for _, g := range groups {
			if v, ok := g.cells[name]; ok && !v.IsNull() {
				cols = append(cols, name)
				break
			}
		}
	}
	sort.Slice(cols, func(a, b int) bool {
		return table.Compare(categories[cols[a]], categories[cols[b]]) < 0
	})
	return cols
}

func groupKey(key []table.Value) string {
	var b strings.Builder
	for _, v := range key {
		fmt.Fprintf(&b, "%d:%s\x1f", v.Kind(), v.Text())
	}
	return b.String()
}

func compareKeys(a, b []table.Value) int {
	for i := range a {
		if c := table.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}
