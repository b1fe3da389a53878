package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"churncli/internal/config"
	"churncli/pkg/contracts/domain"
)

// Supported output formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Sink receives the tables produced by a run
type Sink interface {
	WritePredictions(ctx context.Context, predictions []domain.Prediction) error
	WriteAggregates(ctx context.Context, table domain.AggregateTable) error
	// Outputs lists the files written so far
	Outputs() []string
	Close() error
}

// Options configures the sinks
type Options struct {
	BOMPrefix       bool   // Add UTF-8 BOM to CSV files
	PredictionsName string // Base name of the predictions table
	IDColumn        string // Header of the identifier column
}

func (o Options) predictionsName() string {
	if o.PredictionsName == "" {
		return config.PredictionsFile
	}
	return o.PredictionsName
}

// DefaultIDColumn heads the identifier column when Options.IDColumn is empty
const DefaultIDColumn = "customerID"

// predictionHeaders returns the column order of the predictions table
func (o Options) predictionHeaders() []string {
	id := o.IDColumn
	if id == "" {
		id = DefaultIDColumn
	}
	return []string{id, "prediction", "probability", "actual", "split"}
}

// aggregateHeaders returns the column order of an aggregate table
func aggregateHeaders(table domain.AggregateTable) []string {
	return []string{table.KeyColumn, "mean_" + table.ValueColumn, "count"}
}

// NewSink creates one sink per format and fans writes out to all of them
func NewSink(formats []string, paths *config.Paths, options Options, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("no output formats configured")
	}

	var sinks []Sink
	seen := make(map[string]bool)
	for _, format := range formats {
		if seen[format] {
			continue
		}
		seen[format] = true

		switch format {
		case FormatCSV:
			sinks = append(sinks, NewCSVSink(paths, options, logger))
		case FormatXLSX:
			sinks = append(sinks, NewXLSXSink(paths, options, logger))
		default:
			return nil, fmt.Errorf("unsupported output format: %s", format)
		}
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return &multiSink{sinks: sinks}, nil
}

// multiSink writes every table to each of its sinks in order
type multiSink struct {
	sinks []Sink
}

func (m *multiSink) WritePredictions(ctx context.Context, predictions []domain.Prediction) error {
	for _, s := range m.sinks {
		if err := s.WritePredictions(ctx, predictions); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiSink) WriteAggregates(ctx context.Context, table domain.AggregateTable) error {
	for _, s := range m.sinks {
		if err := s.WriteAggregates(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiSink) Outputs() []string {
	var out []string
	for _, s := range m.sinks {
		out = append(out, s.Outputs()...)
	}
	return out
}

// Close closes every sink and joins their errors
func (m *multiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
