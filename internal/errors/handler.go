package errors

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"churncli/internal/churn"
)

// Process exit codes by error class
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitConfig    = 2
	ExitData      = 3
	ExitModel     = 4
	ExitStorage   = 5
	ExitCancelled = 130
)

// ErrorHandler classifies pipeline failures and reports them
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// Classify maps any error to an AppError. Existing AppErrors are returned
// as-is; the typed core errors are recognised through the wrap chain and the
// original error stays reachable with errors.As.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewAppError(ErrTypeCancelled, "run cancelled", err)
	}

	var (
		missing    *churn.MissingFieldError
		fieldType  *churn.FieldTypeError
		unseen     *churn.UnseenCategoryError
		degenerate *churn.DegenerateEvaluationError
		infeasible *churn.SearchInfeasibleError
		invalid    *churn.ValidationError
	)

	switch {
	case errors.As(err, &missing):
		return NewDataError("required field missing", err).WithContext("field", missing.Field)
	case errors.As(err, &fieldType):
		return NewDataError("field is not numeric", err).WithContext("field", fieldType.Field)
	case errors.As(err, &unseen):
		return NewDataError("category not seen during encoder fit", err).
			WithContext("column", unseen.Column).
			WithContext("value", unseen.Value)
	case errors.As(err, &degenerate):
		return NewModelError("evaluation labels contain a single class", err).
			WithContext("positives", degenerate.Positives).
			WithContext("negatives", degenerate.Negatives)
	case errors.As(err, &infeasible):
		return NewModelError("not enough rows for cross-validation", err).
			WithContext("rows", infeasible.Rows).
			WithContext("folds", infeasible.Folds)
	case errors.As(err, &invalid):
		return NewAppError(ErrTypeValidation, "invalid argument", err).WithContext("field", invalid.Field)
	case errors.Is(err, fs.ErrNotExist):
		return NewAppError(ErrTypeNotFound, "file not found", err)
	case errors.Is(err, fs.ErrPermission):
		return NewAppError(ErrTypePermission, "permission denied", err)
	default:
		return NewAppError(ErrTypeInternal, "unexpected failure", err)
	}
}

// ExitCode returns the process exit status for an error class
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch Classify(err).Type {
	case ErrTypeConfig, ErrTypeValidation:
		return ExitConfig
	case ErrTypeData, ErrTypeParsing, ErrTypeNotFound:
		return ExitData
	case ErrTypeModel:
		return ExitModel
	case ErrTypeStorage, ErrTypePermission:
		return ExitStorage
	case ErrTypeCancelled:
		return ExitCancelled
	default:
		return ExitFailure
	}
}

// Handle logs a classified failure and returns its exit code
func (h *ErrorHandler) Handle(ctx context.Context, err error) int {
	if err == nil {
		return ExitOK
	}

	appErr := Classify(err)
	attrs := []any{
		slog.String("error_type", string(appErr.Type)),
		slog.String("error", err.Error()),
	}
	for k, v := range appErr.Context {
		attrs = append(attrs, slog.Any(k, v))
	}

	h.logger.ErrorContext(ctx, appErr.Message, attrs...)
	return ExitCode(appErr)
}
