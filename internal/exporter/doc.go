// Package exporter persists the outputs of a churn run.
//
// This package contains three main components:
//
// CSVWriter: Core CSV writing functionality with support for headers,
// streaming, and an optional UTF-8 BOM for Excel compatibility.
//
// CSVSink: Writes the prediction table and every aggregate table as separate
// CSV files under the reports directory.
//
// XLSXSink: Writes the same tables as sheets of a single workbook.
//
// Example usage:
//
//	sink, err := exporter.NewSink(cfg.Output.Formats, paths, exporter.Options{BOMPrefix: true}, logger)
//	if err != nil {
//		return err
//	}
//	defer sink.Close()
//
//	err = sink.WritePredictions(ctx, predictions)
//	err = sink.WriteAggregates(ctx, table)
package exporter
