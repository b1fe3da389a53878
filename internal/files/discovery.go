package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Input extensions the loader understands
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

func (d *Discovery) resolve(path string) string {
	if filepath.IsAbs(path) || d.basePath == "" {
		return path
	}
	return filepath.Join(d.basePath, path)
}

// IsInputFile reports whether name looks like a loadable dataset
func IsInputFile(name string) bool {
	if strings.HasPrefix(name, "~$") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtCSV, ExtXLSX:
		return true
	}
	return false
}

// FindInputs lists the CSV and XLSX files in dir, oldest first. Ties in
// modification time are ordered by name.
func (d *Discovery) FindInputs(dir string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !IsInputFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// ResolveInput returns path unchanged when it names a file. A directory is
// replaced by its most recently modified dataset.
func (d *Discovery) ResolveInput(path string) (string, error) {
	fullPath := d.resolve(path)

	info, err := os.Stat(fullPath)
	if err != nil || !info.IsDir() {
		// Missing files are reported by the validator and loader
		return fullPath, nil
	}

	files, err := d.FindInputs(fullPath)
	if err != nil {
		return "", err
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return "", fmt.Errorf("no csv or xlsx input in %s: %w", fullPath, os.ErrNotExist)
	}
	return latest.Path, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if !file.ModTime.Before(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}
