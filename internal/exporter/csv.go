package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"sdgwater/internal/config"
	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/table"
)

// utf8BOM helps Excel recognize UTF-8
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance. Relative file paths are
// placed in the output directory of paths; paths may be nil.
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		paths:  paths,
		logger: logger.With(slog.String("component", "csv_writer")),
	}
}

// TableOptions configures WriteTable
type TableOptions struct {
	Delimiter rune // zero means comma
	BOM       bool // UTF-8 BOM for Excel compatibility
}

// WriteTable writes t with a header row and no index column, replacing any
// existing file. Null cells become empty fields.
func (w *CSVWriter) WriteTable(filePath string, t *table.Table, opts TableOptions) (err error) {
	if t == nil {
		return apperrors.NewStorageError("no table to write", nil).WithContext("path", filePath)
	}
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", t.Len()))

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
		return apperrors.NewStorageError("failed to create directory", err).WithContext("path", dir)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, config.FilePermissions)
	if err != nil {
		return apperrors.NewStorageError("failed to open file", err).WithContext("path", fullPath)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = apperrors.NewStorageError("failed to close file", cerr).WithContext("path", fullPath)
		}
	}()

	if opts.BOM {
		if _, err := file.Write(utf8BOM); err != nil {
			return apperrors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}

	if err := writer.Write(t.Columns()); err != nil {
		return apperrors.NewStorageError("failed to write headers", err)
	}
	for i, record := range t.Records() {
		if err := writer.Write(record); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return apperrors.NewStorageError("failed to flush CSV", err).WithContext("path", fullPath)
	}
	return nil
}

// resolvePath resolves a path to the output directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.paths == nil || w.paths.OutputDir == "" {
		return filePath
	}
	return filepath.Join(w.paths.OutputDir, filePath)
}
