package dataprocessing

import (
	"fmt"

	"churncli/internal/churn"
)

// LabelColumn is the name of the derived 0/1 target column
const LabelColumn = "label"

// DropNulls returns a table without the rows that hold a null (or lack a
// value) in any of the given columns, and the number of rows removed.
func DropNulls(t *Table, columns []string) (*Table, int) {
	kept := t.Filter(func(r churn.Row) bool {
		for _, c := range columns {
			if v, ok := r[c]; !ok || v.IsNull() {
				return false
			}
		}
		return true
	})
	return kept, t.Len() - kept.Len()
}

// DeriveLabel adds an integer target column that is 1 where source equals
// positive and 0 otherwise. Rows are copied; the input table is unchanged.
func DeriveLabel(t *Table, source, target, positive string) (*Table, error) {
	rows := make([]churn.Row, t.Len())
	for i, r := range t.Rows() {
		v, ok := r[source]
		if !ok || v.IsNull() {
			return nil, fmt.Errorf("derive label row %d: %w", i, &churn.MissingFieldError{Field: source, Null: ok})
		}

		out := r.Clone()
		if v.String() == positive {
			out[target] = churn.IntValue(1)
		} else {
			out[target] = churn.IntValue(0)
		}
		rows[i] = out
	}
	return NewTable(t.Schema().With(Column{Name: target, Kind: churn.KindInt}), rows), nil
}

// Labels extracts a 0/1 column as float64 labels
func Labels(t *Table, column string) ([]float64, error) {
	out := make([]float64, t.Len())
	for i, r := range t.Rows() {
		v, ok := r[column]
		if !ok || v.IsNull() {
			return nil, fmt.Errorf("label row %d: %w", i, &churn.MissingFieldError{Field: column, Null: ok})
		}
		f, ok := v.Float()
		if !ok || (f != 0 && f != 1) {
			return nil, fmt.Errorf("label row %d: %w", i, &churn.FieldTypeError{Field: column, Kind: v.Kind(), Value: v.String()})
		}
		out[i] = f
	}
	return out, nil
}

// Strings extracts a column rendered as text
func Strings(t *Table, column string) []string {
	out := make([]string, t.Len())
	for i, r := range t.Rows() {
		out[i] = r[column].String()
	}
	return out
}
