package churn

import (
	"fmt"
)

// Assembler concatenates a declared, ordered list of fields into one
// FeatureVector per row. Values are coerced to float64 and passed through in
// raw units.
type Assembler struct {
	fields []string
}

// NewAssembler creates an assembler for the given field order
func NewAssembler(fields []string) *Assembler {
	f := make([]string, len(fields))
	copy(f, fields)
	return &Assembler{fields: f}
}

// Fields returns the declared field order
func (a *Assembler) Fields() []string {
	out := make([]string, len(a.fields))
	copy(out, a.fields)
	return out
}

// Width returns the feature vector length
func (a *Assembler) Width() int { return len(a.fields) }

// Assemble reads every declared field of row in order
func (a *Assembler) Assemble(row Row) (FeatureVector, error) {
	fv := make(FeatureVector, len(a.fields))
	for j, field := range a.fields {
		v, ok := row[field]
		if !ok || v.IsNull() {
			return nil, &MissingFieldError{Field: field, Null: ok}
		}
		f, ok := v.Float()
		if !ok {
			return nil, &FieldTypeError{Field: field, Kind: v.Kind(), Value: v.String()}
		}
		fv[j] = f
	}
	return fv, nil
}

// AssembleAll assembles every row, failing on the first bad row
func (a *Assembler) AssembleAll(rows []Row) ([]FeatureVector, error) {
	out := make([]FeatureVector, len(rows))
	for i, row := range rows {
		fv, err := a.Assemble(row)
		if err != nil {
			return nil, fmt.Errorf("assemble row %d: %w", i, err)
		}
		out[i] = fv
	}
	return out, nil
}
