package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = base
	cfg.Telemetry.TraceFile = TraceFile

	paths, err := GetPaths(cfg)
	require.NoError(t, err)

	assert.Equal(t, base, paths.BaseDir)
	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "data", "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.Equal(t, filepath.Join(base, "data", "reports", RunSummaryFile), paths.RunSummaryJSON)
	assert.Equal(t, filepath.Join(base, "data", "reports", MetricsTextFile), paths.MetricsFile)
	assert.Equal(t, filepath.Join(base, "logs", TraceFile), paths.TraceFile)
	assert.Equal(t, filepath.Join(paths.ReportsDir, "x.csv"), paths.GetReportPath("x.csv"))
	assert.Equal(t, filepath.Join(paths.LogsDir, "a.log"), paths.GetLogPath("a.log"))
	assert.Equal(t, filepath.Join(paths.DataDir, "in.csv"), paths.GetDataPath("in.csv"))
}

func TestGetPathsAbsoluteDirs(t *testing.T) {
	reports := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Paths.ReportsDir = reports
	cfg.Telemetry.MetricsFile = "/var/lib/node_exporter/churn.prom"

	paths, err := GetPaths(cfg)
	require.NoError(t, err)
	assert.Equal(t, reports, paths.ReportsDir)
	assert.Equal(t, "/var/lib/node_exporter/churn.prom", paths.MetricsFile)
	assert.Empty(t, paths.TraceFile)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()
	paths, err := GetPaths(cfg)
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.DataDir, paths.ReportsDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestResolveInput(t *testing.T) {
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()
	paths, err := GetPaths(cfg)
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	// Not next to the base directory: falls back to the data directory
	assert.Equal(t, filepath.Join(paths.DataDir, "telco.csv"), paths.ResolveInput("telco.csv"))

	local := filepath.Join(paths.BaseDir, "telco.csv")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))
	assert.Equal(t, local, paths.ResolveInput("telco.csv"))

	abs := filepath.Join(t.TempDir(), "other.csv")
	assert.Equal(t, abs, paths.ResolveInput(abs))
	assert.True(t, FileExists(local))
	assert.False(t, FileExists(abs))
}
