package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"churncli/internal/files"
)

// FileValidator checks pipeline input and output locations before any data
// is read or written
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateFile checks if a specific file exists, is not a directory and is
// readable. Errors wrap the underlying fs error.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateInput checks that path is a readable, non-empty CSV or XLSX file
func (v *FileValidator) ValidateInput(path string) error {
	if err := v.ValidateFile(path); err != nil {
		return err
	}

	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		v.logger.Warn("Refusing temporary Excel file",
			slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}
	if !files.IsInputFile(base) {
		ext := strings.ToLower(filepath.Ext(path))
		v.logger.Error("Unsupported input extension",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("file %s is not a csv or xlsx file (extension: %q)", path, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file %s is empty", path)
	}
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
// and accepts new files
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	file, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := file.Name()
	file.Close()
	os.Remove(name)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
