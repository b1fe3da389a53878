package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"churncli/internal/churn"
	apperrors "churncli/internal/errors"
)

const utf8BOM = "\uFEFF"

// Loader reads tabular exports into typed tables
type Loader struct {
	schema Schema
	logger *slog.Logger
}

// NewLoader creates a loader for the given schema
func NewLoader(schema Schema, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		schema: schema,
		logger: logger.With(slog.String("component", "loader")),
	}
}

// LoadFile dispatches on the file extension (.csv or .xlsx)
func (l *Loader) LoadFile(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		table, err := l.LoadCSV(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
		}
		return table, nil
	case ".xlsx":
		return l.LoadXLSX(ctx, path, "")
	default:
		return nil, apperrors.NewParsingError("unsupported input format", nil).WithContext("path", path)
	}
}

// LoadCSV reads a CSV stream with a header row. Columns are matched to the
// schema by header name; extra columns are ignored.
func (l *Loader) LoadCSV(ctx context.Context, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.NewParsingError("input has no header row", nil)
		}
		return nil, apperrors.NewParsingError("failed to read header", err)
	}
	header = append([]string(nil), header...)

	return l.parseRecords(ctx, header, func() ([]string, error) {
		return reader.Read()
	})
}

// LoadXLSX reads one sheet of a workbook. An empty sheet name selects the
// first sheet.
func (l *Loader) LoadXLSX(ctx context.Context, path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil).WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read sheet", err).WithContext("sheet", sheet)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("input has no header row", nil).WithContext("sheet", sheet)
	}

	l.logger.InfoContext(ctx, "reading workbook sheet",
		slog.String("sheet", sheet),
		slog.Int("total_rows", len(rows)))

	next := 1
	return l.parseRecords(ctx, rows[0], func() ([]string, error) {
		if next >= len(rows) {
			return nil, io.EOF
		}
		next++
		return rows[next-1], nil
	})
}

// parseRecords maps the header onto the schema and converts every record
func (l *Loader) parseRecords(ctx context.Context, header []string, next func() ([]string, error)) (*Table, error) {
	// Map schema columns to header positions
	columnMap := make(map[string]int, len(header))
	for j, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, utf8BOM))
		if l.schema.Has(name) {
			columnMap[name] = j
		} else {
			l.logger.DebugContext(ctx, "ignoring column", slog.String("header", name))
		}
	}

	for _, name := range l.schema.Names() {
		if _, ok := columnMap[name]; !ok {
			return nil, apperrors.NewParsingError("could not find required column", nil).
				WithContext("column", name)
		}
	}

	columns := l.schema.Columns()
	var rows []churn.Row
	nullCells := make(map[string]int)
	line := 1

	for {
		record, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read record", err).WithContext("line", line)
		}

		if line%1000 == 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled while loading: %w", ctx.Err())
			default:
			}
		}

		if isBlankRecord(record) {
			continue
		}

		row := make(churn.Row, len(columns))
		for _, col := range columns {
			idx := columnMap[col.Name]
			cell := ""
			if idx < len(record) {
				cell = record[idx]
			}
			v := parseCell(cell, col.Kind)
			if v.IsNull() {
				nullCells[col.Name]++
			}
			row[col.Name] = v
		}
		rows = append(rows, row)
	}

	l.logger.InfoContext(ctx, "loaded table",
		slog.Int("rows", len(rows)),
		slog.Int("columns", len(columns)),
		slog.Any("null_cells", nullCells))

	return NewTable(l.schema, rows), nil
}

// parseCell converts a raw cell to the declared kind. Blank and unparsable
// cells become null.
func parseCell(raw string, kind churn.Kind) churn.Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return churn.Null()
	}

	switch kind {
	case churn.KindInt:
		n := strings.ReplaceAll(s, ",", "")
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return churn.IntValue(i)
		}
		// Spreadsheets often render integers as "12.0"
		if f, err := strconv.ParseFloat(n, 64); err == nil && isFinite(f) && f == math.Trunc(f) {
			return churn.IntValue(int64(f))
		}
		return churn.Null()
	case churn.KindFloat:
		// NaN and Inf parse without error but are treated as missing
		f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil || !isFinite(f) {
			return churn.Null()
		}
		return churn.FloatValue(f)
	default:
		return churn.StringValue(s)
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
