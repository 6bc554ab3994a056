// Package columnar carries table data as Arrow record batches so that row
// gathers, filters and grouped means run on Arrow compute kernels.
//
// A Frame owns Arrow memory and must be released:
//
//	f := columnar.FromTable(memory.DefaultAllocator, t)
//	defer f.Release()
package columnar

import (
	"context"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/compute"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
	"gonum.org/v1/gonum/stat"

	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

// mixedKey marks a text field whose cells were a mix of numbers and text.
// Its cells are parsed back into values when the frame becomes a table.
const mixedKey = "sdgwater.mixed"

// Frame is an immutable Arrow view of a table.
type Frame struct {
	mem memory.Allocator
	rec arrow.Record
}

// FromTable copies t into Arrow arrays. A column whose non-null cells are
// all numbers becomes float64, every other column becomes utf8. Nulls stay
// nulls.
func FromTable(mem memory.Allocator, t *table.Table) *Frame {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	names := t.Columns()
	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	for j, name := range names {
		values, _ := t.Column(name)
		fields[j], cols[j] = buildColumn(mem, name, values)
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), cols, int64(t.Len()))
	for _, c := range cols {
		c.Release()
	}
	return &Frame{mem: mem, rec: rec}
}

func buildColumn(mem memory.Allocator, name string, values []table.Value) (arrow.Field, arrow.Array) {
	numbers, texts := 0, 0
	for _, v := range values {
		switch v.Kind() {
		case table.KindNumber:
			numbers++
		case table.KindString:
			texts++
		}
	}

	if texts == 0 {
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.Reserve(len(values))
		for _, v := range values {
			if f, ok := v.Float(); ok {
				b.Append(f)
			} else {
				b.AppendNull()
			}
		}
		return arrow.Field{Name: name, Type: arrow.PrimitiveTypes.Float64, Nullable: true}, b.NewArray()
	}

	field := arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
	if numbers > 0 {
		field.Metadata = arrow.NewMetadata([]string{mixedKey}, []string{"true"})
	}
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(len(values))
	for _, v := range values {
		if v.IsNull() {
			b.AppendNull()
			continue
		}
		b.Append(v.Text())
	}
	return field, b.NewArray()
}

// Release frees the Arrow memory held by the frame.
func (f *Frame) Release() {
	if f != nil && f.rec != nil {
		f.rec.Release()
		f.rec = nil
	}
}

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	fields := f.rec.Schema().Fields()
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.Name
	}
	return names
}

// Len returns the number of rows.
func (f *Frame) Len() int { return int(f.rec.NumRows()) }

// Column returns the Arrow array of the named column.
func (f *Frame) Column(name string) (arrow.Array, error) {
	idx := f.rec.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, apperrors.NewSchemaError(name, f.Columns())
	}
	return f.rec.Column(idx[0]), nil
}

// Take gathers rows by position. A null index yields a row of nulls.
func (f *Frame) Take(ctx context.Context, indices arrow.Array) (*Frame, error) {
	ctx = compute.WithAllocator(ctx, f.mem)
	cols := make([]arrow.Array, f.rec.NumCols())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()
	for i, col := range f.rec.Columns() {
		out, err := compute.TakeArray(ctx, col, indices)
		if err != nil {
			return nil, fmt.Errorf("take column %s: %w", f.rec.ColumnName(i), err)
		}
		cols[i] = out
	}
	rec := array.NewRecord(f.rec.Schema(), cols, int64(indices.Len()))
	return &Frame{mem: f.mem, rec: rec}, nil
}

// Indices builds a take index array. Negative positions become nulls.
func Indices(mem memory.Allocator, positions []int) arrow.Array {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.Reserve(len(positions))
	for _, p := range positions {
		if p < 0 {
			b.AppendNull()
			continue
		}
		b.Append(int64(p))
	}
	return b.NewArray()
}

// Group is one distinct key found by GroupMean.
type Group struct {
	// Key is the display form of the group key.
	Key string
	// Rows are the frame rows in the group, ascending.
	Rows []int
	// Means holds one mean per value column, NaN when the group has no
	// non-null value in that column.
	Means []float64
	// Counts holds the number of non-null values per value column.
	Counts []int
}

// GroupMean groups rows by the distinct non-null values of by, in order of
// first appearance, and averages each value column within every group.
// Rows with a null key belong to no group. Value columns must be numeric.
func (f *Frame) GroupMean(ctx context.Context, by string, values ...string) ([]Group, error) {
	ctx = compute.WithAllocator(ctx, f.mem)
	keys, err := f.Column(by)
	if err != nil {
		return nil, err
	}
	valueCols := make([]arrow.Array, len(values))
	for i, name := range values {
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		if col.DataType().ID() != arrow.FLOAT64 {
			return nil, apperrors.NewValueError(name, col.DataType().String(), 0).
				WithContext("reason", "mean needs a numeric column")
		}
		valueCols[i] = col
	}

	distinct, err := compute.UniqueArray(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", by, err)
	}
	defer distinct.Release()

	var groups []Group
	for i := 0; i < distinct.Len(); i++ {
		if distinct.IsNull(i) {
			continue
		}
		g, err := f.group(ctx, keys, distinct, i, valueCols)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", by, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func (f *Frame) group(ctx context.Context, keys, distinct arrow.Array, i int, valueCols []arrow.Array) (Group, error) {
	key, err := scalar.GetScalar(distinct, i)
	if err != nil {
		return Group{}, err
	}
	if r, ok := key.(scalar.Releasable); ok {
		defer r.Release()
	}

	mask, err := equalMask(ctx, keys, key)
	if err != nil {
		return Group{}, err
	}
	defer mask.Release()

	g := Group{Key: key.String(), Means: make([]float64, len(valueCols)), Counts: make([]int, len(valueCols))}
	for row := 0; row < mask.Len(); row++ {
		if mask.IsValid(row) && mask.Value(row) {
			g.Rows = append(g.Rows, row)
		}
	}

	for j, col := range valueCols {
		selected, err := compute.FilterArray(ctx, col, mask, *compute.DefaultFilterOptions())
		if err != nil {
			return Group{}, err
		}
		xs := nonNullFloats(selected.(*array.Float64))
		selected.Release()

		g.Counts[j] = len(xs)
		if len(xs) == 0 {
			g.Means[j] = math.NaN()
			continue
		}
		g.Means[j] = stat.Mean(xs, nil)
	}
	return g, nil
}

func equalMask(ctx context.Context, keys arrow.Array, key scalar.Scalar) (*array.Boolean, error) {
	lhs := compute.NewDatum(keys)
	defer lhs.Release()
	rhs := compute.NewDatum(key)
	defer rhs.Release()

	out, err := compute.CallFunction(ctx, "equal", nil, lhs, rhs)
	if err != nil {
		return nil, err
	}
	defer out.Release()
	return out.(*compute.ArrayDatum).MakeArray().(*array.Boolean), nil
}

func nonNullFloats(a *array.Float64) []float64 {
	xs := make([]float64, 0, a.Len()-a.NullN())
	for i := 0; i < a.Len(); i++ {
		if a.IsValid(i) {
			xs = append(xs, a.Value(i))
		}
	}
	return xs
}

// Table copies the frame back into a table.
func (f *Frame) Table() (*table.Table, error) {
	out, err := table.New(f.Columns()...)
	if err != nil {
		return nil, err
	}
	n := f.Len()
	cols := make([][]table.Value, f.rec.NumCols())
	for j, col := range f.rec.Columns() {
		cols[j], err = decodeColumn(f.rec.Schema().Field(j), col)
		if err != nil {
			return nil, err
		}
	}
	for i := 0; i < n; i++ {
		row := make([]table.Value, len(cols))
		for j := range cols {
			row[j] = cols[j][i]
		}
		if err := out.Append(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeColumn(field arrow.Field, col arrow.Array) ([]table.Value, error) {
	out := make([]table.Value, col.Len())
	switch a := col.(type) {
	case *array.Float64:
		for i := range out {
			if a.IsValid(i) {
				out[i] = table.Number(a.Value(i))
			}
		}
	case *array.String:
		mixed := field.Metadata.FindKey(mixedKey) >= 0
		for i := range out {
			if !a.IsValid(i) {
				continue
			}
			if mixed {
				out[i] = table.Parse(a.Value(i))
			} else {
				out[i] = table.String(a.Value(i))
			}
		}
	default:
		return nil, fmt.Errorf("column %s: unsupported arrow type %s", field.Name, col.DataType())
	}
	return out, nil
}
