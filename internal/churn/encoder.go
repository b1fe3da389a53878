package churn

import (
	"errors"
	"fmt"
	"sort"
)

// CategoryCodes is the immutable code table for one categorical column.
// Codes are 0..N-1 ordered by descending frequency in the fit data; ties go to
// the value that appeared first.
type CategoryCodes struct {
	column string
	codes  map[string]int
	values []string // values[code] is the category for code
	counts []int    // counts[code] is the fit frequency
}

// FitCategories builds the code table for a column of training values
func FitCategories(column string, values []string) *CategoryCodes {
	firstSeen := make(map[string]int)
	counts := make(map[string]int)
	var order []string

	for i, v := range values {
		if _, ok := firstSeen[v]; !ok {
			firstSeen[v] = i
			order = append(order, v)
		}
		counts[v]++
	}

	// order is first-seen order, so a stable sort on count keeps the tie-break
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	cc := &CategoryCodes{
		column: column,
		codes:  make(map[string]int, len(order)),
		values: order,
		counts: make([]int, len(order)),
	}
	for code, v := range order {
		cc.codes[v] = code
		cc.counts[code] = counts[v]
	}
	return cc
}

// Column returns the source column the table was fit on
func (c *CategoryCodes) Column() string { return c.column }

// Len returns the number of distinct categories
func (c *CategoryCodes) Len() int { return len(c.values) }

// Code maps a raw category to its code
func (c *CategoryCodes) Code(value string) (int, error) {
	code, ok := c.codes[value]
	if !ok {
		return 0, &UnseenCategoryError{Column: c.column, Value: value}
	}
	return code, nil
}

// Values returns the categories in code order
func (c *CategoryCodes) Values() []string {
	out := make([]string, len(c.values))
	copy(out, c.values)
	return out
}

// Count returns the fit frequency for a code
func (c *CategoryCodes) Count(code int) int {
	if code < 0 || code >= len(c.counts) {
		return 0
	}
	return c.counts[code]
}

// UnseenPolicy decides what Transform does with categories absent from a table
type UnseenPolicy string

const (
	// UnseenError surfaces UnseenCategoryError to the caller
	UnseenError UnseenPolicy = "error"
	// UnseenReserve substitutes the reserved code N (one past the last fitted code)
	UnseenReserve UnseenPolicy = "reserve"
)

// IsValid checks if the policy is known
func (p UnseenPolicy) IsValid() bool {
	return p == UnseenError || p == UnseenReserve
}

// Encoder holds the code tables for a fixed list of categorical columns
type Encoder struct {
	columns []string
	tables  map[string]*CategoryCodes
	policy  UnseenPolicy
}

// FitEncoder fits one code table per column over the given rows. Every row must
// carry a non-null value for every column.
func FitEncoder(rows []Row, columns []string) (*Encoder, error) {
	if len(columns) == 0 {
		return nil, &ValidationError{Field: "columns", Message: "no categorical columns given"}
	}

	tables := make(map[string]*CategoryCodes, len(columns))
	for _, col := range columns {
		values := make([]string, len(rows))
		for i, row := range rows {
			v, ok := row[col]
			if !ok || v.IsNull() {
				return nil, fmt.Errorf("fit encoder row %d: %w", i, &MissingFieldError{Field: col, Null: ok})
			}
			values[i] = v.String()
		}
		tables[col] = FitCategories(col, values)
	}

	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Encoder{columns: cols, tables: tables, policy: UnseenError}, nil
}

// WithPolicy returns a copy of the encoder using the given unseen-category policy
func (e *Encoder) WithPolicy(policy UnseenPolicy) *Encoder {
	return &Encoder{columns: e.columns, tables: e.tables, policy: policy}
}

// Columns returns the encoded source columns in fit order
func (e *Encoder) Columns() []string {
	out := make([]string, len(e.columns))
	copy(out, e.columns)
	return out
}

// Table returns the code table for a column
func (e *Encoder) Table(column string) (*CategoryCodes, bool) {
	t, ok := e.tables[column]
	return t, ok
}

// IndexColumns returns the names of the fields Transform adds
func (e *Encoder) IndexColumns() []string {
	out := make([]string, len(e.columns))
	for i, col := range e.columns {
		out[i] = IndexColumn(col)
	}
	return out
}

// Transform returns a copy of row with an integer "<column>_index" field added
// for every encoded column. The input row is not modified.
func (e *Encoder) Transform(row Row) (Row, error) {
	out := row.Clone()
	for _, col := range e.columns {
		v, ok := row[col]
		if !ok || v.IsNull() {
			return nil, &MissingFieldError{Field: col, Null: ok}
		}

		table := e.tables[col]
		code, err := table.Code(v.String())
		if err != nil {
			var unseen *UnseenCategoryError
			if e.policy != UnseenReserve || !errors.As(err, &unseen) {
				return nil, err
			}
			code = table.Len()
		}
		out[IndexColumn(col)] = IntValue(int64(code))
	}
	return out, nil
}
