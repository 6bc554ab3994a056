package dataprocessing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

func mustRead(t *testing.T, csv string) *table.Table {
	t.Helper()
	tbl, err := table.ReadDelimited(strings.NewReader(csv), ',', t.Name())
	require.NoError(t, err)
	return tbl
}

var stateSector = []string{"State", "Sector"}

func TestNormalizeColumnName(t *testing.T) {
	tests := map[string]string{
		"Improved Source of Drinking Water": "Improved_Source_of_Drinking_Water",
		"Radio/Transistor":                  "Radio_Transistor",
		"TV / Cable":                        "TV___Cable",
		"State":                             "State",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeColumnName(in))
	}
}

func TestReshape_Basic(t *testing.T) {
	long := mustRead(t, `State,Sector,Sub Indicator,Value
B,Urban,Piped water,70
A,Rural,Piped water,40
A,Rural,Improved Source of Drinking Water,60
A,Urban,Improved Source of Drinking Water,80
B,Urban,Improved Source of Drinking Water,95
`)

	wide, err := Reshape(long, ReshapeSpec{
		CategoryColumn: "Sub Indicator",
		ValueColumn:    "Value",
		KeyColumns:     stateSector,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"State", "Sector", "Improved_Source_of_Drinking_Water", "Piped_water"}, wide.Columns())
	require.Equal(t, 3, wide.Len())
	assert.Equal(t, [][]string{
		{"A", "Rural", "60", "40"},
		{"A", "Urban", "80", ""},
		{"B", "Urban", "95", "70"},
	}, wide.Records())
}

func TestReshape_FirstValueWins(t *testing.T) {
	long := mustRead(t, `State,Sector,Indicator,Value
A,Rural,Uses phone,10
A,Rural,Uses phone,99
A,Rural,Uses phone,55
A,Urban,Uses phone,
A,Urban,Uses phone,30
`)

	wide, err := Reshape(long, ReshapeSpec{CategoryColumn: "Indicator", ValueColumn: "Value", KeyColumns: stateSector})
	require.NoError(t, err)

	// one row per distinct key tuple
	require.Equal(t, 2, wide.Len())
	assert.Equal(t, "10", wide.Get(0, "Uses_phone").Text())
	assert.Equal(t, "30", wide.Get(1, "Uses_phone").Text(), "null cells do not claim the first slot")
}

func TestReshape_NormalizedNameCollision(t *testing.T) {
	long := mustRead(t, `State,Sector,Item,Value
A,Rural,Radio TV,1
A,Rural,Radio/TV,2
B,Urban,Radio/TV,3
`)

	wide, err := Reshape(long, ReshapeSpec{CategoryColumn: "Item", ValueColumn: "Value", KeyColumns: stateSector})
	require.NoError(t, err)

	assert.Equal(t, []string{"State", "Sector", "Radio_TV", "Radio_TV.1"}, wide.Columns())
	assert.Equal(t, [][]string{
		{"A", "Rural", "1", "2"},
		{"B", "Urban", "", "3"},
	}, wide.Records(), "both categories keep their own values")
}

func TestReshape_CategoryNamedLikeKey(t *testing.T) {
	long := mustRead(t, `State,Sector,Item,Value
A,Rural,State,7
A,Rural,Sector,8
A,Urban,Radio,9
`)

	wide, err := Reshape(long, ReshapeSpec{CategoryColumn: "Item", ValueColumn: "Value", KeyColumns: stateSector})
	require.NoError(t, err)

	assert.Equal(t, []string{"State", "Sector", "Radio", "Sector.1", "State.1"}, wide.Columns())
	assert.Equal(t, "A", wide.Get(0, "State").Text(), "key column still holds keys")
	assert.Equal(t, "Rural", wide.Get(0, "Sector").Text())
	assert.Equal(t, "7", wide.Get(0, "State.1").Text())
	assert.Equal(t, "8", wide.Get(0, "Sector.1").Text())

	// joining on the keys reads the key columns, not the categories
	base := mustRead(t, "State,Sector,W\nA,Rural,1\nA,Urban,2\n")
	merged, err := LeftJoin(context.Background(), base, wide, stateSector, "items")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"A", "Rural", "1", "", "8", "7"},
		{"A", "Urban", "2", "9", "", ""},
	}, merged.Records())
}

func TestReshape_DropColumns(t *testing.T) {
	long := mustRead(t, `State,Sector,Gender,Main reason for Migration,Value
A,Rural,Male,Work/Employment,12
A,Rural,Female,Work/Employment,3
`)
	spec := ReshapeSpec{
		CategoryColumn: "Main reason for Migration",
		ValueColumn:    "Value",
		KeyColumns:     stateSector,
		DropColumns:    []string{"Gender"},
	}

	wide, err := Reshape(long, spec)
	require.NoError(t, err)
	assert.Equal(t, []string{"State", "Sector", "Work_Employment"}, wide.Columns())
	assert.Equal(t, "12", wide.Get(0, "Work_Employment").Text())

	// dropping a column that is absent is not an error
	noGender := long.Drop("Gender")
	_, err = Reshape(noGender, spec)
	assert.NoError(t, err)
}

func TestReshape_MissingColumn(t *testing.T) {
	long := mustRead(t, "State,Sector,Value\nA,Rural,1\n")

	wide, err := Reshape(long, ReshapeSpec{CategoryColumn: "Internet Access", ValueColumn: "Value", KeyColumns: stateSector})

	assert.Nil(t, wide)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSchema))
	assert.Contains(t, err.Error(), `"Internet Access"`)
	assert.Contains(t, err.Error(), "Available columns: State, Sector, Value")
}

func TestReshape_NullKeysAndEmptyCategories(t *testing.T) {
	long := mustRead(t, `State,Sector,Indicator,Value
A,Rural,Radio,1
,Rural,Radio,2
A,Urban,,3
A,Urban,Television,
`)

	wide, err := Reshape(long, ReshapeSpec{CategoryColumn: "Indicator", ValueColumn: "Value", KeyColumns: stateSector})
	require.NoError(t, err)

	assert.Equal(t, []string{"State", "Sector", "Radio"}, wide.Columns(), "all-null category is dropped")
	assert.Equal(t, 2, wide.Len())
}

func TestReshape_NilTable(t *testing.T) {
	_, err := Reshape(nil, ReshapeSpec{})
	assert.True(t, errors.Is(err, apperrors.ErrReshape))
}
