package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"sdgwater/internal/config"
	"sdgwater/internal/dataprocessing"
	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

// Sheet names of the exported workbook
const (
	DataSheet    = "data"
	SummarySheet = "summary"
)

// XLSXWriter exports the final table and its summary as an Excel workbook
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new workbook writer
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// WriteWorkbook writes t to the "data" sheet and s to the "summary" sheet.
// Numbers stay numeric cells and Null cells are left blank.
func (x *XLSXWriter) WriteWorkbook(path string, t *table.Table, s *dataprocessing.Summary) error {
	if t == nil {
		return apperrors.NewStorageError("no table to write", nil).WithContext("path", path)
	}

	x.logger.Info("Writing XLSX workbook",
		slog.String("path", path),
		slog.Int("record_count", t.Len()))

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return apperrors.NewStorageError("failed to name data sheet", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return apperrors.NewStorageError("failed to create header style", err)
	}

	if err := writeDataSheet(f, t, header); err != nil {
		return err
	}
	if s != nil {
		if err := writeSummarySheet(f, s, header); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), config.DirPermissions); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", path)
	}
	if err := f.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", path)
	}
	return nil
}

func writeDataSheet(f *excelize.File, t *table.Table, headerStyle int) error {
	cols := t.Columns()
	headers := make([]interface{}, len(cols))
	for i, c := range cols {
		headers[i] = c
	}
	if err := f.SetSheetRow(DataSheet, "A1", &headers); err != nil {
		return apperrors.NewStorageError("failed to write header row", err)
	}
	if len(cols) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(cols), 1)
		if err := f.SetCellStyle(DataSheet, "A1", last, headerStyle); err != nil {
			return apperrors.NewStorageError("failed to style header row", err)
		}
	}

	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(DataSheet, cell, &cells); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write row %d", i), err)
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, s *dataprocessing.Summary, headerStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return apperrors.NewStorageError("failed to create summary sheet", err)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Rows", s.Rows},
		{"States", s.States},
	}
	for _, sc := range s.StatusCounts {
		rows = append(rows, []interface{}{"SDG Compliance: " + sc.Status, sc.Count})
	}
	if s.HasGap {
		rows = append(rows, []interface{}{"Average Urban-Rural Gap", s.MeanGap})
	} else {
		rows = append(rows, []interface{}{"Average Urban-Rural Gap", nil})
	}

	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &rows[i]); err != nil {
			return apperrors.NewStorageError("failed to write summary row", err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return apperrors.NewStorageError("failed to style summary header", err)
	}
	return f.SetColWidth(SummarySheet, "A", "A", 32)
}

// cellValue maps a table value to what excelize should store
func cellValue(v table.Value) interface{} {
	switch v.Kind() {
	case table.KindNumber:
		f, _ := v.Float()
		return f
	case table.KindString:
		return v.Text()
	default:
		return nil
	}
}
