package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		assert.Len(t, handler.GetRecords(), 2)
		assert.True(t, handler.ContainsMessage("test message"))
		assert.True(t, handler.ContainsAttr("key", "value"))
		assert.True(t, handler.ContainsAttr("code", int64(500)))
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelDebug), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
	})

	t.Run("keeps attributes from With", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		child := logger.With(slog.String("component", "pipeline"))
		child.Info("step completed", slog.String("step", "fit"))

		records := handler.GetRecordsByMessage("step completed")
		require.Len(t, records, 1)
		assert.Equal(t, "pipeline", records[0].Attrs["component"])
		assert.Equal(t, "fit", records[0].Attrs["step"])
	})

	t.Run("flattens groups", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.WithGroup("model").Info("fitted", slog.Float64("lambda", 0.1))
		logger.Info("search", slog.Group("cv", slog.Int("k", 3)))

		assert.True(t, handler.ContainsAttr("model.lambda", 0.1))
		assert.True(t, handler.ContainsAttr("cv.k", int64(3)))
	})

	t.Run("derived handlers share records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With("a", 1).Info("one")
		logger.WithGroup("g").Info("two")
		logger.Info("three")

		assert.Equal(t, 3, handler.Count())
		handler.Clear()
		assert.Equal(t, 0, handler.Count())
	})
}

func TestAssertHelpers(t *testing.T) {
	logger, handler := NewTestLogger(t)
	logger.Info("pipeline completed", slog.Int("outputs", 4))

	AssertLogContains(t, handler, slog.LevelInfo, "pipeline completed")
	AssertLogAttr(t, handler, "outputs", int64(4))
	AssertNoErrors(t, handler)
}
