package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	LogsDir    string

	// Well-known report files
	RunSummaryJSON string
	Workbook       string
	MetricsFile    string
	TraceFile      string
}

// GetPaths resolves the configured directories. Relative directories are
// joined to BaseDir; an empty BaseDir means the current working directory.
func GetPaths(cfg *Config) (*Paths, error) {
	base := cfg.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	reportsDir := resolve(cfg.Paths.ReportsDir)

	paths := &Paths{
		BaseDir:        base,
		DataDir:        resolve(cfg.Paths.DataDir),
		ReportsDir:     reportsDir,
		LogsDir:        resolve(cfg.Paths.LogsDir),
		RunSummaryJSON: filepath.Join(reportsDir, RunSummaryFile),
		Workbook:       filepath.Join(reportsDir, WorkbookFile),
	}

	if cfg.Telemetry.MetricsFile != "" {
		paths.MetricsFile = resolveUnder(reportsDir, cfg.Telemetry.MetricsFile)
	}
	if cfg.Telemetry.TraceFile != "" {
		paths.TraceFile = resolveUnder(paths.LogsDir, cfg.Telemetry.TraceFile)
	}

	return paths, nil
}

// resolveUnder joins a bare file name to dir; paths with a directory part are
// left as given
func resolveUnder(dir, name string) string {
	if filepath.IsAbs(name) || filepath.Base(name) != name {
		return name
	}
	return filepath.Join(dir, name)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.ReportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}

	return nil
}

// ResolveInput locates the input file. Absolute paths are used as given; a
// relative path is tried against the base directory first and then the data
// directory.
func (p *Paths) ResolveInput(input string) string {
	if filepath.IsAbs(input) {
		return input
	}
	if candidate := filepath.Join(p.BaseDir, input); FileExists(candidate) {
		return candidate
	}
	return filepath.Join(p.DataDir, input)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetReportPath returns the full path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// GetLogPath returns the full path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetDataPath returns the full path for a data file
func (p *Paths) GetDataPath(filename string) string {
	return filepath.Join(p.DataDir, filename)
}

// LogPathResolution logs detailed path resolution information for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("report_files",
			slog.String("run_summary", p.RunSummaryJSON),
			slog.String("workbook", p.Workbook),
			slog.String("metrics", p.MetricsFile),
			slog.String("traces", p.TraceFile),
		))
}
