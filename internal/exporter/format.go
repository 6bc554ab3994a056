package exporter

import (
	"fmt"
	"strconv"
	"strings"

	"sdgwater/internal/dataprocessing"
)

// formatGap formats the mean urban-rural gap with one decimal place
func formatGap(s *dataprocessing.Summary) string {
	if !s.HasGap {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", s.MeanGap)
}

// formatStatusCounts renders counts in report order, e.g. {"Not Met": 5, "Met": 2}
func formatStatusCounts(counts []dataprocessing.StatusCount) string {
	parts := make([]string, 0, len(counts))
	for _, sc := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", strconv.Quote(sc.Status), sc.Count))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
