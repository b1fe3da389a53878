package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// GenerateRunID creates a new unique run ID using UUID v4
func GenerateRunID() string {
	return uuid.New().String()
}

// EnsureRunID ensures the context has a run ID, generating one if needed.
// The ID in effect is returned alongside the context.
func EnsureRunID(ctx context.Context) (context.Context, string) {
	if id := GetRunID(ctx); id != "" {
		return ctx, id
	}
	id := GenerateRunID()
	return WithRunID(ctx, id), id
}

// WithComponent creates a logger with a component field
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithError creates a logger with an error field
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
