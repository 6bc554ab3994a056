package exporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"sdgwater/internal/dataprocessing"
)

// Reporter prints the human-readable end-of-run summary
type Reporter struct {
	w io.Writer
}

// NewReporter creates a reporter writing to w (stdout when nil)
func NewReporter(w io.Writer) *Reporter {
	if w == nil {
		w = os.Stdout
	}
	return &Reporter{w: w}
}

// Print writes the success line, the sample rows and the key statistics
func (r *Reporter) Print(outputPath string, s *dataprocessing.Summary) error {
	var b strings.Builder

	fmt.Fprintf(&b, "SDG-enhanced data saved to '%s'\n", outputPath)

	if s.Sample != nil && s.Sample.Width() > 0 {
		b.WriteString("\nSample rows:\n")
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(s.Sample.Columns(), "\t"))
		for i := 0; i < s.Sample.Len(); i++ {
			row := s.Sample.Row(i)
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = v.String()
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	b.WriteString("\nKey Statistics:\n")
	fmt.Fprintf(&b, "- Rows: %d across %d states\n", s.Rows, s.States)
	fmt.Fprintf(&b, "- SDG Compliance: %s\n", formatStatusCounts(s.StatusCounts))
	fmt.Fprintf(&b, "- Average Urban-Rural Gap: %s\n", formatGap(s))

	_, err := io.WriteString(r.w, b.String())
	return err
}
