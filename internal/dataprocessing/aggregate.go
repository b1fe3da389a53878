package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"churncli/internal/churn"
	"churncli/pkg/contracts/domain"
)

// Aggregation names one group-by/mean table
type Aggregation struct {
	Name  string `yaml:"name" json:"name" validate:"required"`
	Key   string `yaml:"key" json:"key" validate:"required"`
	Value string `yaml:"value" json:"value" validate:"required"`
}

// DefaultAggregations returns the reporting tables of the churn run
func DefaultAggregations() []Aggregation {
	return []Aggregation{
		{Name: "churn_by_contract", Key: "Contract", Value: LabelColumn},
		{Name: "avg_charges_by_service", Key: "InternetService", Value: "MonthlyCharges"},
	}
}

// GroupMean groups rows by the text of key and averages value. Rows with a
// null key or value are skipped. Results are sorted by key.
func GroupMean(t *Table, key, value string) ([]domain.SegmentAggregate, error) {
	groups := make(map[string][]float64)
	for i, r := range t.Rows() {
		k, v := r[key], r[value]
		if k.IsNull() || v.IsNull() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return nil, fmt.Errorf("group mean row %d: %w", i, &churn.FieldTypeError{Field: value, Kind: v.Kind(), Value: v.String()})
		}
		groups[k.String()] = append(groups[k.String()], f)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.SegmentAggregate, len(keys))
	for i, k := range keys {
		out[i] = domain.SegmentAggregate{
			Key:   k,
			Mean:  stat.Mean(groups[k], nil),
			Count: len(groups[k]),
		}
	}
	return out, nil
}

// Aggregate computes every requested table
func Aggregate(ctx context.Context, t *Table, aggregations []Aggregation, logger *slog.Logger) ([]domain.AggregateTable, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tables := make([]domain.AggregateTable, 0, len(aggregations))
	for _, agg := range aggregations {
		rows, err := GroupMean(t, agg.Key, agg.Value)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", agg.Name, err)
		}

		table := domain.AggregateTable{
			Name:        agg.Name,
			KeyColumn:   agg.Key,
			ValueColumn: agg.Value,
			Rows:        rows,
		}
		if err := domain.Validate(table); err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", agg.Name, err)
		}

		logger.InfoContext(ctx, "computed aggregate",
			slog.String("name", agg.Name),
			slog.String("key", agg.Key),
			slog.String("value", agg.Value),
			slog.Int("segments", len(rows)))
		tables = append(tables, table)
	}
	return tables, nil
}
