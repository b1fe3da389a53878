package churn

import (
	"fmt"
)

// MissingFieldError is returned by the assembler when a declared source field
// is absent from a row or holds a null.
type MissingFieldError struct {
	Field string
	Null  bool
}

// Error implements the error interface
func (e *MissingFieldError) Error() string {
	if e.Null {
		return fmt.Sprintf("missing field %q: value is null", e.Field)
	}
	return fmt.Sprintf("missing field %q", e.Field)
}

// FieldTypeError is returned when a field value cannot be coerced to float64
type FieldTypeError struct {
	Field string
	Kind  Kind
	Value string
}

// Error implements the error interface
func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("field %q: cannot coerce %s value %q to float", e.Field, e.Kind, e.Value)
}

// UnseenCategoryError is returned when a category table is asked to encode a
// value it never saw during fit.
type UnseenCategoryError struct {
	Column string
	Value  string
}

// Error implements the error interface
func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("unseen category %q in column %q", e.Value, e.Column)
}

// DegenerateEvaluationError is returned when AUC is undefined because every
// label belongs to one class.
type DegenerateEvaluationError struct {
	Positives int
	Negatives int
}

// Error implements the error interface
func (e *DegenerateEvaluationError) Error() string {
	return fmt.Sprintf("degenerate evaluation: AUC undefined with %d positive and %d negative labels",
		e.Positives, e.Negatives)
}

// SearchInfeasibleError is returned when the rows cannot be split into the
// requested number of non-empty folds.
type SearchInfeasibleError struct {
	Rows  int
	Folds int
}

// Error implements the error interface
func (e *SearchInfeasibleError) Error() string {
	return fmt.Sprintf("search infeasible: %d rows cannot form %d non-empty folds", e.Rows, e.Folds)
}

// ValidationError represents an invalid argument to a core operation
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return ve.Field + ": " + ve.Message
}
