package churn

import (
	"strconv"
)

// Kind identifies the dynamic type held by a Value
type Kind int

const (
	// KindNull marks a missing value
	KindNull Kind = iota
	// KindString holds a raw string (categorical) value
	KindString
	// KindInt holds an integer value
	KindInt
	// KindFloat holds a floating point value
	KindFloat
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Value is a typed scalar cell of a Row. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

// Null returns a null value
func Null() Value { return Value{} }

// StringValue wraps a string
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps an integer
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps a float
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// Kind returns the dynamic type of the value
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is missing
func (v Value) IsNull() bool { return v.kind == KindNull }

// Float coerces numeric values to float64. Strings are parsed; ok is false for
// null values and strings that are not numbers.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		f, err := strconv.ParseFloat(v.s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// String renders the value as text. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	default:
		return ""
	}
}

// Row maps column names to typed values
type Row map[string]Value

// Clone returns a shallow copy of the row; Values are immutable so this is a
// full copy for practical purposes.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// FeatureVector is the fixed-order numeric encoding of a row
type FeatureVector []float64

// Constants for default values
const (
	// DefaultMaxIterations caps Newton iterations per fit
	DefaultMaxIterations = 100
	// DefaultTolerance is the relative objective improvement that counts as converged
	DefaultTolerance = 1e-6
	// DefaultGradientTolerance is the gradient norm that counts as converged
	DefaultGradientTolerance = 1e-8

	// DecisionThreshold maps scores to labels
	DecisionThreshold = 0.5

	// IndexSuffix is appended to a categorical column name for its code field
	IndexSuffix = "_index"
)

// IndexColumn returns the name of the encoded field for a categorical column
func IndexColumn(column string) string {
	return column + IndexSuffix
}
