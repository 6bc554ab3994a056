package dataprocessing

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"sdgwater/internal/table"
)

// DefaultSampleRows is how many rows the console sample shows.
const DefaultSampleRows = 5

// StatusCount is the number of rows with a given compliance status.
type StatusCount struct {
	Status string
	Count  int
}

// Summary holds what the end-of-run report prints.
type Summary struct {
	Rows         int
	States       int
	Sample       *table.Table
	StatusCounts []StatusCount
	MeanGap      float64
	HasGap       bool
}

// Summarize builds the report model for a derived table. Sample columns that
// are not present are left out of the sample.
func Summarize(t *table.Table, cfg DeriverConfig, sampleRows int) *Summary {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}

	var cols []string
	for _, c := range []string{cfg.StateColumn, cfg.SectorColumn, cfg.PrimaryColumn, cfg.StatusColumn, cfg.GapColumn, cfg.RankColumn} {
		if t.Has(c) {
			cols = append(cols, c)
		}
	}
	sample, _ := t.Head(sampleRows).Select(cols...)

	s := &Summary{
		Rows:   t.Len(),
		Sample: sample,
	}

	counts := make(map[string]int)
	states := make(map[string]struct{})
	var gaps []float64
	for i := 0; i < t.Len(); i++ {
		if t.Has(cfg.StatusColumn) {
			counts[t.Get(i, cfg.StatusColumn).Text()]++
		}
		states[t.Get(i, cfg.StateColumn).Text()] = struct{}{}
		if g, ok := t.Get(i, cfg.GapColumn).Float(); ok {
			gaps = append(gaps, g)
		}
	}
	s.States = len(states)

	for status, n := range counts {
		s.StatusCounts = append(s.StatusCounts, StatusCount{Status: status, Count: n})
	}
	sort.Slice(s.StatusCounts, func(i, j int) bool {
		if s.StatusCounts[i].Count != s.StatusCounts[j].Count {
			return s.StatusCounts[i].Count > s.StatusCounts[j].Count
		}
		return s.StatusCounts[i].Status < s.StatusCounts[j].Status
	})

	if len(gaps) > 0 {
		s.MeanGap = stat.Mean(gaps, nil)
		s.HasGap = true
	}
	return s
}

// Count returns the number of rows with the given status.
func (s *Summary) Count(status string) int {
	for _, sc := range s.StatusCounts {
		if sc.Status == status {
			return sc.Count
		}
	}
	return 0
}
