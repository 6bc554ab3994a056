package dataprocessing

import (
	"context"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"sdgwater/internal/columnar"
	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

// NamedTable pairs a wide table with the dataset it came from. Table is nil
// when the dataset failed to load or reshape.
type NamedTable struct {
	Name  string
	Table *table.Table
}

// MergeOptions controls MergeAll.
type MergeOptions struct {
	// SkipMissing drops nil tables with a warning instead of failing.
	SkipMissing bool
	Logger      *slog.Logger
}

// LeftJoin keeps every row of left, in order, and appends the non-key
// columns of right. The first right row with a matching key supplies the
// values, unmatched rows get nulls. A right column whose name already exists
// on the left is renamed to name_suffix, numbered if that is taken as well.
// Matched right rows are gathered with an Arrow take over the right columns.
func LeftJoin(ctx context.Context, left, right *table.Table, keys []string, suffix string) (*table.Table, error) {
	if err := left.Require(keys...); err != nil {
		return nil, err
	}
	if err := right.Require(keys...); err != nil {
		return nil, err
	}

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	var (
		rightCols []string
		outNames  = left.Columns()
	)
	for _, c := range right.Columns() {
		if isKey[c] {
			continue
		}
		rightCols = append(rightCols, c)
		name := c
		if left.Has(c) {
			name = c + "_" + suffix
		}
		outNames = append(outNames, name)
	}
	out, err := table.New(table.UniqueNames(outNames)...)
	if err != nil {
		return nil, err
	}

	lookup := make(map[string]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		k := rowKey(right, i, keys)
		if _, dup := lookup[k]; !dup {
			lookup[k] = i
		}
	}
	positions := make([]int, left.Len())
	for i := range positions {
		j, matched := lookup[rowKey(left, i, keys)]
		if !matched {
			j = -1
		}
		positions[i] = j
	}

	extra, err := gatherRows(ctx, right, rightCols, positions)
	if err != nil {
		return nil, apperrors.NewJoinError(suffix, err.Error())
	}

	for i := 0; i < left.Len(); i++ {
		row := make([]table.Value, 0, out.Width())
		row = append(row, left.Row(i)...)
		row = append(row, extra.Row(i)...)
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// gatherRows returns the given columns of t reordered by positions, with a
// row of nulls wherever the position is negative.
func gatherRows(ctx context.Context, t *table.Table, columns []string, positions []int) (*table.Table, error) {
	selected, err := t.Select(columns...)
	if err != nil {
		return nil, err
	}
	frame := columnar.FromTable(memory.DefaultAllocator, selected)
	defer frame.Release()

	idx := columnar.Indices(memory.DefaultAllocator, positions)
	defer idx.Release()

	gathered, err := frame.Take(ctx, idx)
	if err != nil {
		return nil, err
	}
	defer gathered.Release()
	return gathered.Table()
}

func rowKey(t *table.Table, i int, keys []string) string {
	vals := make([]table.Value, len(keys))
	for j, k := range keys {
		vals[j] = t.Get(i, k)
	}
	return groupKey(vals)
}

// MergeAll left-joins tables in order onto the first one. A nil table fails
// the merge with a join error naming the dataset unless opts.SkipMissing is
// set. The base table must never be nil.
func MergeAll(ctx context.Context, tables []NamedTable, keys []string, opts MergeOptions) (*table.Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if len(tables) == 0 {
		return nil, apperrors.NewJoinError("", "no tables to merge")
	}
	base := tables[0]
	if base.Table == nil {
		return nil, apperrors.NewJoinError(base.Name, "base table is missing")
	}

	merged := base.Table
	for _, nt := range tables[1:] {
		if nt.Table == nil {
			if opts.SkipMissing {
				logger.Warn("Skipping missing dataset in merge",
					slog.String("dataset", nt.Name))
				continue
			}
			return nil, apperrors.NewJoinError(nt.Name, "table is missing, it failed to load or reshape")
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := LeftJoin(ctx, merged, nt.Table, keys, nt.Name)
		if err != nil {
			return nil, err
		}
		logger.Debug("Merged dataset",
			slog.String("dataset", nt.Name),
			slog.Int("rows", next.Len()),
			slog.Int("columns", next.Width()))
		merged = next
	}
	return merged, nil
}
