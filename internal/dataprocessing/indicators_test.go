package dataprocessing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

const primary = "Improved_Source_of_Drinking_Water"

func newDeriver() *Deriver {
	return NewDeriver(DefaultDeriverConfig(), nil)
}

func TestEncodeSector(t *testing.T) {
	tbl := mustRead(t, "State,Sector,"+primary+"\nA,Rural,1\nA,Urban,2\n")

	require.NoError(t, newDeriver().EncodeSector(tbl))

	for i := 0; i < tbl.Len(); i++ {
		v, ok := tbl.Get(i, "Sector").Float()
		require.True(t, ok)
		assert.Contains(t, []float64{0, 1}, v)
	}
	assert.Equal(t, "0", tbl.Get(0, "Sector").Text())
	assert.Equal(t, "1", tbl.Get(1, "Sector").Text())
}

func TestEncodeSector_RejectsUnknownLabels(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "other label", csv: "State,Sector\nA,Rural\nA,Peri-urban\n"},
		{name: "lowercase", csv: "State,Sector\nA,rural\n"},
		{name: "null", csv: "State,Sector\nA,\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newDeriver().EncodeSector(mustRead(t, tt.csv))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValue))
		})
	}
}

func TestFlagCompliance(t *testing.T) {
	tbl := mustRead(t, "State,"+primary+"\nA,90\nA,89.99\nB,100\nB,\nC,0\n")

	require.NoError(t, newDeriver().FlagCompliance(tbl))

	for i := 0; i < tbl.Len(); i++ {
		v, ok := tbl.Get(i, primary).Float()
		met := tbl.Get(i, "SDG_6_Status").Text() == StatusMet
		assert.Equal(t, ok && v >= 90, met, "row %d", i)
	}
	assert.Equal(t, StatusNotMet, tbl.Get(3, "SDG_6_Status").Text())
}

func TestUrbanRuralGap(t *testing.T) {
	tbl := mustRead(t, "State,Sector,"+primary+`
A,Urban,80
A,Rural,60
B,Urban,90
B,Urban,70
B,Rural,50
C,Urban,99
D,Rural,40
D,Urban,
`)
	d := newDeriver()
	require.NoError(t, d.EncodeSector(tbl))
	require.NoError(t, d.UrbanRuralGap(context.Background(), tbl))

	gap := func(i int) table.Value { return tbl.Get(i, "Urban_Rural_Gap") }

	g, ok := gap(0).Float()
	require.True(t, ok)
	assert.Equal(t, 20.0, g)
	assert.True(t, gap(0).Equal(gap(1)), "gap is broadcast to every row of a state")

	g, ok = gap(2).Float()
	require.True(t, ok)
	assert.Equal(t, 30.0, g)

	assert.True(t, gap(5).IsNull(), "state without rural rows")
	assert.True(t, gap(6).IsNull(), "state whose urban rows are all null")
	assert.True(t, gap(7).IsNull())
}

func TestUrbanRuralGap_RequiresEncodedSector(t *testing.T) {
	tbl := mustRead(t, "State,Sector,"+primary+"\nA,Urban,80\n")
	err := newDeriver().UrbanRuralGap(context.Background(), tbl)
	assert.True(t, errors.Is(err, apperrors.ErrValue))
}

func TestPriorityRank_Monotonic(t *testing.T) {
	tbl := mustRead(t, "State,"+primary+`
E,50
C,30
A,10
D,40
B,20
B,20
`)

	require.NoError(t, newDeriver().PriorityRank(context.Background(), tbl))

	want := map[string]string{
		"A": "Tier 1 (Urgent)",
		"B": "Tier 2",
		"C": "Tier 3",
		"D": "Tier 4",
		"E": "Tier 5 (Best)",
	}
	for i := 0; i < tbl.Len(); i++ {
		state := tbl.Get(i, "State").Text()
		assert.Equal(t, want[state], tbl.Get(i, "Priority_Rank").Text(), "state %s", state)
	}
}

func TestPriorityRank_TooFewStates(t *testing.T) {
	tbl := mustRead(t, "State,"+primary+"\nA,10\nB,20\nC,30\nD,40\n")

	err := newDeriver().PriorityRank(context.Background(), tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrQuantile))
}

func TestPriorityRank_NullStateMean(t *testing.T) {
	tbl := mustRead(t, "State,"+primary+"\nA,10\nB,20\nC,30\nD,40\nE,50\nF,\n")

	require.NoError(t, newDeriver().PriorityRank(context.Background(), tbl))
	assert.True(t, tbl.Get(5, "Priority_Rank").IsNull())
}

func TestPriorityRank_NullStateRows(t *testing.T) {
	tbl := mustRead(t, "State,"+primary+"\nA,10\nB,20\nC,30\nD,40\nE,50\n,35\n")

	require.NoError(t, newDeriver().PriorityRank(context.Background(), tbl))
	assert.True(t, tbl.Get(5, "Priority_Rank").IsNull(), "rows without a state are not ranked")
	assert.Equal(t, "Tier 3", tbl.Get(2, "Priority_Rank").Text())
}

func TestPriorityRank_NumericStateCodes(t *testing.T) {
	tbl := mustRead(t, "State,"+primary+"\n1,10\n2,20\n3,30\n4,40\n5,50\n5,50\n")

	require.NoError(t, newDeriver().PriorityRank(context.Background(), tbl))
	assert.Equal(t, "Tier 1 (Urgent)", tbl.Get(0, "Priority_Rank").Text())
	assert.Equal(t, "Tier 5 (Best)", tbl.Get(5, "Priority_Rank").Text())
}

func TestQuantileEdges(t *testing.T) {
	edges, err := QuantileEdges([]float64{50, 10, 40, 20, 30}, 5)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10, 18, 26, 34, 42, 50}, edges, 1e-9)

	_, err = QuantileEdges([]float64{1, 1, 1, 1, 2, 3, 4, 5}, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bin edges must be unique")

	_, err = QuantileEdges(nil, 5)
	assert.True(t, errors.Is(err, apperrors.ErrQuantile))
}

func TestBinIndex(t *testing.T) {
	edges := []float64{10, 18, 26, 34, 42, 50}
	tests := []struct {
		x    float64
		want int
	}{
		{10, 0}, {18, 0}, {18.5, 1}, {26, 1}, {30, 2}, {42, 3}, {42.1, 4}, {50, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, binIndex(edges, tt.x), "x=%v", tt.x)
	}
}

func TestDerive_EndToEnd(t *testing.T) {
	tbl := mustRead(t, "State,Sector,"+primary+`,Radio
A,Rural,60,1
A,Urban,80,2
B,Rural,91,3
B,Urban,99,4
C,Rural,30,5
C,Urban,,6
D,Rural,70,7
D,Urban,75,8
E,Rural,92,9
E,Urban,95,10
`)

	out, err := newDeriver().Derive(context.Background(), tbl)
	require.NoError(t, err)

	assert.Equal(t, 9, out.Len(), "row with null primary is dropped")
	assert.Equal(t,
		[]string{"State", "Sector", primary, "Radio", "SDG_6_Status", "Urban_Rural_Gap", "Priority_Rank"},
		out.Columns())

	tiers := map[string]string{}
	gaps := map[string]string{}
	for i := 0; i < out.Len(); i++ {
		assert.False(t, out.Get(i, primary).IsNull())
		s := out.Get(i, "State").Text()
		if prev, ok := tiers[s]; ok {
			assert.Equal(t, prev, out.Get(i, "Priority_Rank").Text())
			assert.Equal(t, gaps[s], out.Get(i, "Urban_Rural_Gap").Text())
		}
		tiers[s] = out.Get(i, "Priority_Rank").Text()
		gaps[s] = out.Get(i, "Urban_Rural_Gap").Text()
	}
	assert.Equal(t, "Tier 1 (Urgent)", tiers["C"])
	assert.Equal(t, "Tier 2", tiers["A"])
	assert.Equal(t, "Tier 4", tiers["E"])
	assert.Equal(t, "Tier 5 (Best)", tiers["B"])
	assert.Equal(t, "", gaps["C"])
	assert.Equal(t, "20", gaps["A"])
}

func TestDerive_MissingPrimary(t *testing.T) {
	tbl := mustRead(t, "State,Sector,Other\nA,Rural,1\n")

	_, err := newDeriver().Derive(context.Background(), tbl)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSchema))
	assert.Contains(t, err.Error(), primary)
}
