package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "sdgwater/internal/errors"
	"sdgwater/internal/validation"
)

const utf8BOM = "\ufeff"

// LoadOptions controls how a file is read.
type LoadOptions struct {
	// Delimiter for .csv and .txt files. Zero means comma.
	Delimiter rune
	// Sheet to read from .xlsx files. Empty means the first sheet.
	Sheet string
}

// Loader reads dataset files into tables.
type Loader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
	opts      LoadOptions
}

// NewLoader creates a loader. A nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger, opts LoadOptions) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Loader{
		logger:    logger.With(slog.String("component", "loader")),
		validator: validation.NewFileValidator(logger),
		opts:      opts,
	}
}

// Load reads a file with default options.
func Load(path string) (*Table, error) {
	return NewLoader(nil, LoadOptions{}).Load(path)
}

// Load reads path into a table. Missing or unreadable files yield a file
// error, malformed content a parsing error.
func (l *Loader) Load(path string) (*Table, error) {
	if err := l.validator.ValidateDataFile(path); err != nil {
		return nil, err
	}

	var (
		t   *Table
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		t, err = l.loadWorkbook(path)
	case ".tsv":
		t, err = l.loadDelimited(path, '\t')
	default:
		t, err = l.loadDelimited(path, l.opts.Delimiter)
	}
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loaded table",
		slog.String("path", path),
		slog.Int("rows", t.Len()),
		slog.Int("columns", t.Width()))
	return t, nil
}

func (l *Loader) loadDelimited(path string, delim rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewFileError(path, err)
	}
	defer f.Close()
	return ReadDelimited(f, delim, path)
}

// ReadDelimited parses delimited text. name is used in error messages.
func ReadDelimited(r io.Reader, delim rune, name string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.Comma = delim

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: no header row", name), err)
	}
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: read header", name), err)
	}

	t, err := New(normalizeHeader(header)...)
	if err != nil {
		return nil, err
	}
	// FieldsPerRecord is fixed by the header, ragged rows are parse errors
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s: malformed record", name), err)
		}
		t.rows = append(t.rows, parseRecord(record))
	}
	return t, nil
}

func (l *Loader) loadWorkbook(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: open workbook", path), err)
	}
	defer f.Close()

	sheet := l.opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError(fmt.Sprintf("%s: workbook has no sheets", path), nil)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: read sheet %q", path, sheet), err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s: sheet %q has no header row", path, sheet), nil)
	}

	l.logger.Debug("Reading sheet",
		slog.String("path", path),
		slog.String("sheet", sheet),
		slog.Int("total_rows", len(rows)))

	t, err := New(normalizeHeader(rows[0])...)
	if err != nil {
		return nil, err
	}
	for _, row := range rows[1:] {
		if len(row) > t.Width() {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("%s: row has %d cells, header has %d", path, len(row), t.Width()), nil)
		}
		// GetRows trims trailing empty cells
		padded := make([]string, t.Width())
		copy(padded, row)
		t.rows = append(t.rows, parseRecord(padded))
	}
	return t, nil
}

// normalizeHeader strips a BOM, trims names and numbers duplicates:
// a, a.1, a.2.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return UniqueNames(out)
}

func parseRecord(record []string) []Value {
	row := make([]Value, len(record))
	for i, cell := range record {
		row[i] = Parse(cell)
	}
	return row
}
