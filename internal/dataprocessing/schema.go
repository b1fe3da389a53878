package dataprocessing

import (
	"churncli/internal/churn"
)

// Column declares one typed input column
type Column struct {
	Name string
	Kind churn.Kind
}

// Schema is the ordered set of columns a loader extracts
type Schema struct {
	columns []Column
	index   map[string]int
}

// NewSchema creates a schema from column declarations. Later duplicates of a
// name replace earlier ones.
func NewSchema(columns ...Column) Schema {
	s := Schema{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if i, ok := s.index[c.Name]; ok {
			s.columns[i] = c
			continue
		}
		s.index[c.Name] = len(s.columns)
		s.columns = append(s.columns, c)
	}
	return s
}

// TelcoSchema returns the schema of the IBM telco customer churn export
func TelcoSchema() Schema {
	str := func(name string) Column { return Column{Name: name, Kind: churn.KindString} }
	return NewSchema(
		str("customerID"),
		str("gender"),
		Column{Name: "SeniorCitizen", Kind: churn.KindInt},
		str("Partner"),
		str("Dependents"),
		Column{Name: "tenure", Kind: churn.KindInt},
		str("PhoneService"),
		str("MultipleLines"),
		str("InternetService"),
		str("OnlineSecurity"),
		str("OnlineBackup"),
		str("DeviceProtection"),
		str("TechSupport"),
		str("StreamingTV"),
		str("StreamingMovies"),
		str("Contract"),
		str("PaperlessBilling"),
		str("PaymentMethod"),
		Column{Name: "MonthlyCharges", Kind: churn.KindFloat},
		Column{Name: "TotalCharges", Kind: churn.KindFloat},
		str("Churn"),
	)
}

// Columns returns the column declarations in order
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the column names in order
func (s Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Kind returns the declared kind of a column
func (s Schema) Kind(name string) (churn.Kind, bool) {
	i, ok := s.index[name]
	if !ok {
		return churn.KindNull, false
	}
	return s.columns[i].Kind, true
}

// Has reports whether the schema declares a column
func (s Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of columns
func (s Schema) Len() int { return len(s.columns) }

// With returns a schema extended by one column
func (s Schema) With(c Column) Schema {
	return NewSchema(append(s.Columns(), c)...)
}

// Table is a schema plus the typed rows loaded against it. Tables are not
// modified in place; cleaning steps return new tables sharing unchanged rows.
type Table struct {
	schema Schema
	rows   []churn.Row
}

// NewTable creates a table
func NewTable(schema Schema, rows []churn.Row) *Table {
	return &Table{schema: schema, rows: rows}
}

// Schema returns the table schema
func (t *Table) Schema() Schema { return t.schema }

// Rows returns the rows. Callers must not modify them.
func (t *Table) Rows() []churn.Row { return t.rows }

// Len returns the row count
func (t *Table) Len() int { return len(t.rows) }

// Column returns every value of one column in row order
func (t *Table) Column(name string) []churn.Value {
	out := make([]churn.Value, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out
}

// Select returns a table holding the rows at the given indices
func (t *Table) Select(indices []int) *Table {
	rows := make([]churn.Row, len(indices))
	for i, idx := range indices {
		rows[i] = t.rows[idx]
	}
	return &Table{schema: t.schema, rows: rows}
}

// Filter returns a table holding the rows for which keep returns true
func (t *Table) Filter(keep func(churn.Row) bool) *Table {
	rows := make([]churn.Row, 0, len(t.rows))
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return &Table{schema: t.schema, rows: rows}
}
