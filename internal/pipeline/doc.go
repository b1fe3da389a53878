// Package pipeline runs the churn batch job end to end.
//
// A Runner executes a fixed sequence of steps against an explicit
// config.Config. Every step reads and writes a shared RunState; nothing is
// kept in package globals, so several runs can proceed in one process.
//
// Steps, in order:
//
//  1. load: read the input file into a typed table
//  2. clean: drop rows with nulls in any used column
//  3. label: derive the 0/1 target column
//  4. split: seeded train/test partition
//  5. encode: fit category codes and add <column>_index fields
//  6. assemble: build feature vectors
//  7. fit: cross-validated λ search on the training rows, or a direct fit
//  8. evaluate: AUC and thresholded metrics on train and holdout rows
//  9. predict: score every row
//  10. aggregate: segment tables over the cleaned data
//  11. export: write predictions and aggregates through the sinks
//  12. summary: write run_summary.json
//
// Failures are returned as *errors.AppError so the CLI can map them to exit
// codes; the underlying typed error stays reachable with errors.As.
package pipeline
