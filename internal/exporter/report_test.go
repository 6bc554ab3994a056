package exporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdgwater/internal/dataprocessing"
	"sdgwater/internal/table"
)

func TestReporter_Print(t *testing.T) {
	derived, err := table.ReadDelimited(strings.NewReader(`State,Sector,Improved_Source_of_Drinking_Water,Radio,SDG_6_Status,Urban_Rural_Gap,Priority_Rank
A,0,60,1,Not Met,20,Tier 1 (Urgent)
A,1,80,2,Not Met,20,Tier 1 (Urgent)
B,0,91,3,Met,,Tier 5 (Best)
`), ',', "derived")
	require.NoError(t, err)

	summary := dataprocessing.Summarize(derived, dataprocessing.DefaultDeriverConfig(), 2)

	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Print("final_sdg_water_data.csv", summary))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "SDG-enhanced data saved to 'final_sdg_water_data.csv'\n"))
	assert.Contains(t, out, "\nSample rows:\n")
	assert.Contains(t, out, "\nKey Statistics:\n")
	assert.Contains(t, out, `- SDG Compliance: {"Not Met": 2, "Met": 1}`)
	assert.Contains(t, out, "- Average Urban-Rural Gap: 20.0%")
	assert.Contains(t, out, "- Rows: 3 across 2 states")
	assert.NotContains(t, out, "Radio", "only the report columns are sampled")

	lines := strings.Split(out, "\n")
	var sample []string
	for i, l := range lines {
		if l == "Sample rows:" {
			sample = lines[i+1 : i+4]
		}
	}
	require.Len(t, sample, 3)
	assert.True(t, strings.HasPrefix(sample[0], "State  Sector  Improved_Source_of_Drinking_Water"))
	assert.True(t, strings.HasPrefix(sample[1], "A      0       60"))
	assert.True(t, strings.HasPrefix(sample[2], "A      1       80"))
}

func TestReporter_NoGap(t *testing.T) {
	summary := &dataprocessing.Summary{
		Rows:         1,
		States:       1,
		StatusCounts: []dataprocessing.StatusCount{{Status: dataprocessing.StatusMet, Count: 1}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewReporter(&buf).Print("out.csv", summary))
	assert.Contains(t, buf.String(), "- Average Urban-Rural Gap: n/a")
	assert.NotContains(t, buf.String(), "Sample rows:")
}

func TestFormatStatusCounts(t *testing.T) {
	assert.Equal(t, "{}", formatStatusCounts(nil))
	assert.Equal(t, `{"Met": 3}`, formatStatusCounts([]dataprocessing.StatusCount{{Status: "Met", Count: 3}}))
}
