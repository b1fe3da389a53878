package churn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembler(t *testing.T) {
	asm := NewAssembler([]string{"tenure", "MonthlyCharges", "Contract_index"})
	assert.Equal(t, 3, asm.Width())
	assert.Equal(t, []string{"tenure", "MonthlyCharges", "Contract_index"}, asm.Fields())

	tests := []struct {
		name     string
		row      Row
		expected FeatureVector
		errCheck func(t *testing.T, err error)
	}{
		{
			name: "mixed numeric kinds in declared order",
			row: Row{
				"Contract_index": IntValue(2),
				"tenure":         IntValue(12),
				"MonthlyCharges": FloatValue(70.35),
				"customerID":     StringValue("7590-VHVEG"),
			},
			expected: FeatureVector{12, 70.35, 2},
		},
		{
			name: "numeric string is coerced",
			row: Row{
				"tenure":         StringValue("5"),
				"MonthlyCharges": FloatValue(20),
				"Contract_index": IntValue(0),
			},
			expected: FeatureVector{5, 20, 0},
		},
		{
			name: "absent field",
			row:  Row{"tenure": IntValue(1), "MonthlyCharges": FloatValue(1)},
			errCheck: func(t *testing.T, err error) {
				var missing *MissingFieldError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, "Contract_index", missing.Field)
				assert.False(t, missing.Null)
			},
		},
		{
			name: "null field",
			row:  Row{"tenure": IntValue(1), "MonthlyCharges": Null(), "Contract_index": IntValue(0)},
			errCheck: func(t *testing.T, err error) {
				var missing *MissingFieldError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, "MonthlyCharges", missing.Field)
				assert.True(t, missing.Null)
			},
		},
		{
			name: "non numeric string",
			row:  Row{"tenure": StringValue("twelve"), "MonthlyCharges": FloatValue(1), "Contract_index": IntValue(0)},
			errCheck: func(t *testing.T, err error) {
				var typeErr *FieldTypeError
				require.True(t, errors.As(err, &typeErr))
				assert.Equal(t, "tenure", typeErr.Field)
				assert.Equal(t, KindString, typeErr.Kind)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fv, err := asm.Assemble(tt.row)
			if tt.errCheck != nil {
				require.Error(t, err)
				tt.errCheck(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, fv)
		})
	}
}

func TestAssembleAll(t *testing.T) {
	asm := NewAssembler([]string{"a"})

	out, err := asm.AssembleAll([]Row{{"a": IntValue(1)}, {"a": FloatValue(2.5)}})
	require.NoError(t, err)
	assert.Equal(t, []FeatureVector{{1}, {2.5}}, out)

	_, err = asm.AssembleAll([]Row{{"a": IntValue(1)}, {"b": IntValue(2)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
}

// TestNewAssemblerCopiesFields ensures later edits to the caller's slice do not
// change the vector layout
func TestNewAssemblerCopiesFields(t *testing.T) {
	fields := []string{"a", "b"}
	asm := NewAssembler(fields)
	fields[0] = "z"
	assert.Equal(t, []string{"a", "b"}, asm.Fields())
}

func TestValue(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		kind    Kind
		float   float64
		floatOK bool
		str     string
	}{
		{"null", Null(), KindNull, 0, false, ""},
		{"int", IntValue(7), KindInt, 7, true, "7"},
		{"float", FloatValue(29.85), KindFloat, 29.85, true, "29.85"},
		{"numeric string", StringValue("1889.5"), KindString, 1889.5, true, "1889.5"},
		{"text", StringValue("Yes"), KindString, 0, false, "Yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.value.Kind())
			assert.Equal(t, tt.kind == KindNull, tt.value.IsNull())
			f, ok := tt.value.Float()
			assert.Equal(t, tt.floatOK, ok)
			assert.Equal(t, tt.float, f)
			assert.Equal(t, tt.str, tt.value.String())
		})
	}

	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "unknown", Kind(42).String())
	assert.Equal(t, "Contract_index", IndexColumn("Contract"))
}
