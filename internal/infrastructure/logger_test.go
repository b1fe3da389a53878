package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churncli/internal/config"
)

func lastEntry(t *testing.T, content []byte) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.Same(t, logger, GetLogger())

	logger.Info("test message", "key", "value")
	require.NoError(t, CloseLogFile())

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	entry := lastEntry(t, content)
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestCorrelationIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "console"}, &buf)
	require.NoError(t, err)

	ctx := WithRunID(context.Background(), "run-123")
	ctx = WithTraceID(ctx, "trace-abc")
	WithComponent(logger, "pipeline").InfoContext(ctx, "stage finished")

	entry := lastEntry(t, buf.Bytes())
	assert.Equal(t, "run-123", entry["run_id"])
	assert.Equal(t, "trace-abc", entry["trace_id"])
	assert.Equal(t, "pipeline", entry["component"])

	buf.Reset()
	logger.InfoContext(context.Background(), "no ids")
	entry = lastEntry(t, buf.Bytes())
	assert.NotContains(t, entry, "run_id")
	assert.NotContains(t, entry, "trace_id")
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
		warnSeen  bool
	}{
		{level: "debug", debugSeen: true, infoSeen: true, warnSeen: true},
		{level: "info", infoSeen: true, warnSeen: true},
		{level: "warning", warnSeen: true},
		{level: "error"},
		{level: "bogus", infoSeen: true, warnSeen: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(config.LoggingConfig{Level: tt.level, Output: "console"}, &buf)
			require.NoError(t, err)

			logger.Debug("debug line")
			logger.Info("info line")
			logger.Warn("warn line")

			out := buf.String()
			assert.Equal(t, tt.debugSeen, strings.Contains(out, "debug line"))
			assert.Equal(t, tt.infoSeen, strings.Contains(out, "info line"))
			assert.Equal(t, tt.warnSeen, strings.Contains(out, "warn line"))
		})
	}
}

func TestTextFormatAndBothOutputs(t *testing.T) {
	defer CloseLogFile()

	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "both.log")
	logger, err := NewLogger(config.LoggingConfig{Format: "text", Output: "both", FilePath: logFile}, &buf)
	require.NoError(t, err)

	logger.Info("hello", "rows", 3)
	require.NoError(t, CloseLogFile())

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "rows=3")
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "msg=hello")
}

func TestNewLoggerFileRequiresPath(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Output: "file"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestEnsureRunID(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, GetRunID(ctx))

	same, again := EnsureRunID(ctx)
	assert.Equal(t, id, again)
	assert.Equal(t, id, GetRunID(same))

	assert.NotEqual(t, GenerateRunID(), GenerateRunID())
}
