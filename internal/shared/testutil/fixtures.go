package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"sdgwater/internal/config"
)

// SurveyStates are the states in the survey fixtures, in output order
var SurveyStates = []string{"Abia", "Bauchi", "Delta", "Kano", "Lagos"}

// WaterAccess holds the improved drinking water share per state as
// {rural, urban}. The state means are 70, 45, 90, 40 and 95, so every state
// lands in its own priority tier:
//
//	Kano Tier 1, Bauchi Tier 2, Abia Tier 3, Delta Tier 4, Lagos Tier 5
//
// Three rows reach 90 and the mean urban-rural gap over the rows is 13.2.
var WaterAccess = map[string][2]float64{
	"Abia":   {60, 80},
	"Bauchi": {40, 50},
	"Delta":  {85, 95},
	"Kano":   {30, 50},
	"Lagos":  {92, 98},
}

// Expected results of a run over the survey fixtures
const (
	SurveyRows    = 10
	SurveyMet     = 3
	SurveyNotMet  = 7
	SurveyMeanGap = 13.2
)

// ExpectedTiers maps each fixture state to its priority tier
var ExpectedTiers = map[string]string{
	"Kano":   "Tier 1 (Urgent)",
	"Bauchi": "Tier 2",
	"Abia":   "Tier 3",
	"Delta":  "Tier 4",
	"Lagos":  "Tier 5 (Best)",
}

// WriteFile writes content to dir/name and returns the path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// WriteSurveyDatasets writes the six default datasets into dir under their
// default file names and returns the paths keyed by dataset name
func WriteSurveyDatasets(t *testing.T, dir string) map[string]string {
	t.Helper()

	paths := make(map[string]string)
	for _, ds := range config.DefaultDatasets() {
		paths[ds.Name] = WriteFile(t, dir, ds.Path, SurveyCSV(ds.Name))
	}
	return paths
}

// SurveyCSV returns the long-form CSV of a default dataset
func SurveyCSV(dataset string) string {
	var b strings.Builder

	switch dataset {
	case config.DatasetWater:
		b.WriteString("State,Sector,Sub Indicator,Value\n")
		for _, state := range SurveyStates {
			v := WaterAccess[state]
			fmt.Fprintf(&b, "%s,Rural,Improved Source of Drinking Water,%g\n", state, v[0])
			fmt.Fprintf(&b, "%s,Urban,Improved Source of Drinking Water,%g\n", state, v[1])
			fmt.Fprintf(&b, "%s,Rural,Piped Water,%g\n", state, v[0]/2)
			fmt.Fprintf(&b, "%s,Urban,Piped Water,%g\n", state, v[1]/2)
		}
		// Repeated pair, the first value wins
		b.WriteString("Abia,Rural,Improved Source of Drinking Water,99\n")
		// A state with no primary indicator is dropped from the output
		b.WriteString("Ogun,Rural,Piped Water,12\n")
	case config.DatasetMedia:
		b.WriteString("State,Sector,Internet Access,Value\n")
		writeCategories(&b, []string{"Radio", "Television", "Internet"}, 10)
	case config.DatasetLatrine:
		b.WriteString("State,Sector,Sub Indicator,Value\n")
		writeCategories(&b, []string{"Improved Latrine", "Hand Washing Facility"}, 20)
	case config.DatasetAssets:
		b.WriteString("State,Sector,Sub Indicator,Value\n")
		// Radio collides with the media dataset
		writeCategories(&b, []string{"Radio", "Refrigerator"}, 30)
	case config.DatasetMigration:
		b.WriteString("State,Sector,Gender,Main reason for Migration,Value\n")
		for i, state := range SurveyStates {
			for j, sector := range []string{"Rural", "Urban"} {
				for k, gender := range []string{"Male", "Female"} {
					fmt.Fprintf(&b, "%s,%s,%s,Employment,%d\n", state, sector, gender, 40+i+j+k)
					fmt.Fprintf(&b, "%s,%s,%s,Education/Training,%d\n", state, sector, gender, 10+i+j+k)
				}
			}
		}
	case config.DatasetMobile:
		b.WriteString("State,Sector,Indicator,Value\n")
		writeCategories(&b, []string{"Owns Mobile Phone"}, 50)
	}
	return b.String()
}

func writeCategories(b *strings.Builder, categories []string, base int) {
	for i, state := range SurveyStates {
		for j, sector := range []string{"Rural", "Urban"} {
			for k, category := range categories {
				fmt.Fprintf(b, "%s,%s,%s,%d\n", state, sector, category, base+i*2+j+k)
			}
		}
	}
}

// WriteWorkbook saves rows to the first sheet of a new workbook at path.
// Numeric-looking cells stay strings; the loader parses them either way.
func WriteWorkbook(t *testing.T, path string, rows [][]string) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
}

// CSVRows splits a fixture CSV into rows of cells
func CSVRows(content string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		rows = append(rows, strings.Split(line, ","))
	}
	return rows
}
