package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"churncli/internal/config"
	"churncli/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// cancelCheckInterval is how many records are written between context checks
const cancelCheckInterval = 1000

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(paths *config.Paths, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{paths: paths, logger: logger}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file, replacing any existing content
func (w *CSVWriter) WriteCSV(filePath string, options WriteOptions) error {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if options.BOMPrefix {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

// StreamWriter provides streaming CSV writing for large tables
type StreamWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
	count  int
}

// CreateStreamWriter creates a new streaming CSV writer
func (w *CSVWriter) CreateStreamWriter(filePath string, headers []string, bom bool) (*StreamWriter, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Debug("Creating CSV stream writer",
		slog.String("file_path", filePath),
		slog.String("full_path", fullPath),
		slog.Int("header_count", len(headers)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	if bom {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	if len(headers) > 0 {
		if err := writer.Write(headers); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write headers: %w", err)
		}
	}

	return &StreamWriter{path: fullPath, file: file, writer: writer}, nil
}

// WriteRecord writes a single record to the stream
func (s *StreamWriter) WriteRecord(record []string) error {
	s.count++
	return s.writer.Write(record)
}

// Path returns the resolved file path
func (s *StreamWriter) Path() string { return s.path }

// Count returns the number of records written
func (s *StreamWriter) Count() int { return s.count }

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// resolvePath places relative names under the reports directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) {
		return filePath
	}
	return w.paths.GetReportPath(filePath)
}

// CSVSink writes each table to its own CSV file under the reports directory
type CSVSink struct {
	writer  *CSVWriter
	options Options
	logger  *slog.Logger

	mu      sync.Mutex
	outputs []string
}

// NewCSVSink creates a CSV sink
func NewCSVSink(paths *config.Paths, options Options, logger *slog.Logger) *CSVSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSink{
		writer:  NewCSVWriter(paths, logger),
		options: options,
		logger:  logger.With(slog.String("sink", FormatCSV)),
	}
}

// WritePredictions streams the prediction table to <predictions>.csv
func (s *CSVSink) WritePredictions(ctx context.Context, predictions []domain.Prediction) error {
	name := s.options.predictionsName() + ".csv"
	stream, err := s.writer.CreateStreamWriter(name, s.options.predictionHeaders(), s.options.BOMPrefix)
	if err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}

	for i, p := range predictions {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				stream.Close()
				return fmt.Errorf("write predictions: %w", err)
			}
		}
		record := []string{
			p.CustomerID,
			formatInt(int64(p.Label)),
			formatProbability(p.Probability),
			formatOptionalInt(p.Actual),
			p.Split,
		}
		if err := stream.WriteRecord(record); err != nil {
			stream.Close()
			return fmt.Errorf("write predictions record %d: %w", i, err)
		}
	}

	if err := stream.Close(); err != nil {
		return fmt.Errorf("write predictions: %w", err)
	}

	s.logger.InfoContext(ctx, "predictions exported",
		slog.String("path", stream.Path()),
		slog.Int("records", stream.Count()))
	s.record(stream.Path())
	return nil
}

// WriteAggregates writes one aggregate table to <name>.csv
func (s *CSVSink) WriteAggregates(ctx context.Context, table domain.AggregateTable) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write aggregate %s: %w", table.Name, err)
	}
	if err := domain.Validate(table); err != nil {
		return fmt.Errorf("write aggregate %s: %w", table.Name, err)
	}

	records := make([][]string, len(table.Rows))
	for i, row := range table.Rows {
		records[i] = []string{row.Key, formatFloat(row.Mean), formatInt(int64(row.Count))}
	}

	name := table.Name + ".csv"
	if err := s.writer.WriteCSV(name, WriteOptions{
		Headers:   aggregateHeaders(table),
		Records:   records,
		BOMPrefix: s.options.BOMPrefix,
	}); err != nil {
		return fmt.Errorf("write aggregate %s: %w", table.Name, err)
	}

	s.record(s.writer.resolvePath(name))
	return nil
}

// Outputs lists the files written so far
func (s *CSVSink) Outputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.outputs))
	copy(out, s.outputs)
	return out
}

// Close is a no-op; every CSV file is closed as soon as it is written
func (s *CSVSink) Close() error { return nil }

func (s *CSVSink) record(path string) {
	s.mu.Lock()
	s.outputs = append(s.outputs, path)
	s.mu.Unlock()
}
