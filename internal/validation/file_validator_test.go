package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileValidator_ValidateInput(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		wantErr       bool
		notExist      bool
		errorContains string
	}{
		{
			name: "valid csv",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "telco.csv")
				require.NoError(t, os.WriteFile(file, []byte("customerID\n"), 0644))
				return file
			},
		},
		{
			name: "valid xlsx extension in upper case",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "TELCO.XLSX")
				require.NoError(t, os.WriteFile(file, []byte("PK"), 0644))
				return file
			},
		},
		{
			name: "missing file",
			setupFunc: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "absent.csv")
			},
			wantErr:  true,
			notExist: true,
		},
		{
			name: "directory",
			setupFunc: func(t *testing.T) string {
				return t.TempDir()
			},
			wantErr:       true,
			errorContains: "is a directory",
		},
		{
			name: "unsupported extension",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "telco.json")
				require.NoError(t, os.WriteFile(file, []byte("{}"), 0644))
				return file
			},
			wantErr:       true,
			errorContains: "not a csv or xlsx",
		},
		{
			name: "excel lock file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "~$telco.xlsx")
				require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
				return file
			},
			wantErr:       true,
			errorContains: "temporary Excel file",
		},
		{
			name: "empty file",
			setupFunc: func(t *testing.T) string {
				file := filepath.Join(t.TempDir(), "telco.csv")
				require.NoError(t, os.WriteFile(file, nil, 0644))
				return file
			},
			wantErr:       true,
			errorContains: "is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := NewFileValidator(nil)
			err := validator.ValidateInput(tt.setupFunc(t))

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.notExist {
				assert.ErrorIs(t, err, os.ErrNotExist)
			}
			if tt.errorContains != "" {
				assert.Contains(t, err.Error(), tt.errorContains)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	validator := NewFileValidator(nil)

	t.Run("creates missing directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "reports", "nested")
		require.NoError(t, validator.ValidateOutputDirectory(dir))

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries, "probe file must be removed")
	})

	t.Run("path blocked by a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "reports")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

		err := validator.ValidateOutputDirectory(filepath.Join(file, "sub"))
		assert.Error(t, err)
	})
}
