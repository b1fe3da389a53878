package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"churncli/internal/config"
	"churncli/pkg/contracts/domain"
)

// maxSheetNameLength is the Excel limit on sheet names
const maxSheetNameLength = 31

// defaultSheet is the sheet every new excelize workbook starts with
const defaultSheet = "Sheet1"

// XLSXSink writes every table as a sheet of one workbook. The workbook is
// saved on Close.
type XLSXSink struct {
	path   string
	logger *slog.Logger
	opts   Options

	mu     sync.Mutex
	file   *excelize.File
	header int // header cell style
	sheets []string
	closed bool
}

// NewXLSXSink creates a workbook sink saving to paths.Workbook
func NewXLSXSink(paths *config.Paths, options Options, logger *slog.Logger) *XLSXSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXSink{
		path:   paths.Workbook,
		logger: logger.With(slog.String("sink", FormatXLSX)),
		opts:   options,
	}
}

// workbook lazily creates the file and the shared header style
func (s *XLSXSink) workbook() (*excelize.File, error) {
	if s.closed {
		return nil, fmt.Errorf("workbook %s already closed", s.path)
	}
	if s.file != nil {
		return s.file, nil
	}

	f := excelize.NewFile()
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	s.file = f
	s.header = style
	return f, nil
}

// addSheet creates a sheet, reusing the initial empty one for the first table
func (s *XLSXSink) addSheet(name string) (string, error) {
	if len(name) > maxSheetNameLength {
		name = name[:maxSheetNameLength]
	}
	for _, existing := range s.sheets {
		if existing == name {
			return "", fmt.Errorf("sheet %q already written", name)
		}
	}

	if len(s.sheets) == 0 {
		if err := s.file.SetSheetName(defaultSheet, name); err != nil {
			return "", fmt.Errorf("rename sheet: %w", err)
		}
	} else if _, err := s.file.NewSheet(name); err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	s.sheets = append(s.sheets, name)
	return name, nil
}

// writeSheet streams a header row and records into a new sheet
func (s *XLSXSink) writeSheet(ctx context.Context, name string, headers []string, rows int, row func(i int) []interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.workbook()
	if err != nil {
		return err
	}
	sheet, err := s.addSheet(name)
	if err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer for %s: %w", sheet, err)
	}
	if err := sw.SetColWidth(1, len(headers), 18); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = excelize.Cell{StyleID: s.header, Value: h}
	}
	if err := sw.SetRow("A1", headerCells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < rows; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet %s: %w", sheet, err)
	}

	s.logger.DebugContext(ctx, "sheet written",
		slog.String("sheet", sheet),
		slog.Int("rows", rows))
	return nil
}

// WritePredictions adds the predictions sheet
func (s *XLSXSink) WritePredictions(ctx context.Context, predictions []domain.Prediction) error {
	err := s.writeSheet(ctx, s.opts.predictionsName(), s.opts.predictionHeaders(), len(predictions), func(i int) []interface{} {
		p := predictions[i]
		var actual interface{}
		if p.Actual != nil {
			actual = *p.Actual
		}
		return []interface{}{p.CustomerID, p.Label, p.Probability, actual, p.Split}
	})
	if err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}
	return nil
}

// WriteAggregates adds one sheet named after the table
func (s *XLSXSink) WriteAggregates(ctx context.Context, table domain.AggregateTable) error {
	if err := domain.Validate(table); err != nil {
		return fmt.Errorf("write aggregate %s: %w", table.Name, err)
	}
	err := s.writeSheet(ctx, table.Name, aggregateHeaders(table), len(table.Rows), func(i int) []interface{} {
		r := table.Rows[i]
		return []interface{}{r.Key, r.Mean, r.Count}
	})
	if err != nil {
		return fmt.Errorf("write aggregate %s: %w", table.Name, err)
	}
	return nil
}

// Outputs returns the workbook path once it has been saved
func (s *XLSXSink) Outputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed || len(s.sheets) == 0 {
		return nil
	}
	return []string{s.path}
}

// Close saves the workbook. A sink that received no tables writes nothing.
func (s *XLSXSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}
	defer s.file.Close()

	if len(s.sheets) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}

	s.logger.Info("workbook saved",
		slog.String("path", s.path),
		slog.Any("sheets", s.sheets))
	return nil
}
