// Package dataprocessing turns raw customer exports into typed tables the
// churn model can consume.
//
// # Architecture
//
// The package is organized into four components:
//
// 1. Loader: reads CSV or XLSX exports into a Table of typed rows
// 2. Cleaning: drops rows with nulls in used columns and derives the label
// 3. Split: deterministic train/test partition of row indices
// 4. Aggregation: group-by/mean tables for reporting
//
// # Usage
//
//	loader := dataprocessing.NewLoader(dataprocessing.TelcoSchema(), logger)
//	table, err := loader.LoadFile(ctx, "data/WA_Fn-UseC_-Telco-Customer-Churn.csv")
//	if err != nil {
//	    return err
//	}
//
//	clean, dropped := dataprocessing.DropNulls(table, []string{"TotalCharges"})
//	labelled, err := dataprocessing.DeriveLabel(clean, "Churn", "label", "Yes")
//
//	byContract, err := dataprocessing.GroupMean(labelled, "Contract", "label")
//
// # Data Flow
//
//	CSV/XLSX → Loader → Table → DropNulls → DeriveLabel → {features, aggregates}
//
// # Null Handling
//
// Blank cells, and numeric cells that do not parse, load as null values. The
// reference telco export has blank TotalCharges for customers with zero
// tenure; those rows are removed by DropNulls before feature assembly.
package dataprocessing
