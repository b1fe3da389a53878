package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Model     ModelConfig     `yaml:"model" envconfig:"MODEL"`
	Search    SearchConfig    `yaml:"search" envconfig:"SEARCH"`
	Output    OutputConfig    `yaml:"output" envconfig:"OUTPUT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir    string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir    string `yaml:"data_dir" envconfig:"DATA_DIR" validate:"required"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" validate:"required"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
}

// DataConfig describes the input table and how rows become features
type DataConfig struct {
	Input         string   `yaml:"input" envconfig:"INPUT" validate:"required"`
	Sheet         string   `yaml:"sheet" envconfig:"SHEET"`
	IDColumn      string   `yaml:"id_column" envconfig:"ID_COLUMN" validate:"required"`
	LabelSource   string   `yaml:"label_source" envconfig:"LABEL_SOURCE" validate:"required"`
	LabelPositive string   `yaml:"label_positive" envconfig:"LABEL_POSITIVE" validate:"required"`
	Categorical   []string `yaml:"categorical" envconfig:"CATEGORICAL"`
	Numeric       []string `yaml:"numeric" envconfig:"NUMERIC"`
	TestRatio     float64  `yaml:"test_ratio" envconfig:"TEST_RATIO" validate:"gt=0,lt=1"`
	Seed          int64    `yaml:"seed" envconfig:"SEED"`
	// FitEncodersOn selects the rows category codes are fitted on: "all"
	// (every cleaned row) or "train" (training split only). With "all" the
	// code order sees holdout frequencies, so holdout metrics are slightly
	// optimistic.
	FitEncodersOn string `yaml:"fit_encoders_on" envconfig:"FIT_ENCODERS_ON" validate:"oneof=all train"`
	UnseenPolicy  string `yaml:"unseen_policy" envconfig:"UNSEEN_POLICY" validate:"oneof=error reserve"`
}

// ModelConfig contains estimator settings
type ModelConfig struct {
	Lambda            float64 `yaml:"lambda" envconfig:"LAMBDA" validate:"gte=0"`
	MaxIterations     int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"gte=1"`
	Tolerance         float64 `yaml:"tolerance" envconfig:"TOLERANCE" validate:"gte=0"`
	GradientTolerance float64 `yaml:"gradient_tolerance" envconfig:"GRADIENT_TOLERANCE" validate:"gte=0"`
}

// SearchConfig contains cross-validated grid search settings
type SearchConfig struct {
	Enabled        bool      `yaml:"enabled" envconfig:"ENABLED"`
	Candidates     []float64 `yaml:"candidates" envconfig:"CANDIDATES" validate:"required_if=Enabled true,dive,gte=0"`
	KFolds         int       `yaml:"k_folds" envconfig:"K_FOLDS" validate:"gte=2"`
	Seed           int64     `yaml:"seed" envconfig:"SEED"`
	MaxConcurrency int       `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" validate:"gte=1"`
}

// OutputConfig selects the report sinks
type OutputConfig struct {
	Formats    []string `yaml:"formats" envconfig:"FORMATS" validate:"min=1,dive,oneof=csv xlsx"`
	BOMPrefix  bool     `yaml:"bom_prefix" envconfig:"BOM_PREFIX"`
	RunSummary bool     `yaml:"run_summary" envconfig:"RUN_SUMMARY"`
}

// TelemetryConfig controls tracing and the metrics textfile
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required_if=Enabled true"`
	TraceFile   string `yaml:"trace_file" envconfig:"TRACE_FILE"`
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, then an optional YAML file,
// then CHURN_* environment variables (highest priority). An empty path falls
// back to CHURN_CONFIG and then to the well-known locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Fields without a matching variable are left untouched
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the keys present in a YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filePath, err)
	}
	return nil
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.Struct(c); err != nil {
		return err
	}

	columns := make([]string, 0, len(c.Data.Categorical)+len(c.Data.Numeric))
	columns = append(columns, c.Data.Categorical...)
	columns = append(columns, c.Data.Numeric...)
	for _, col := range columns {
		if strings.TrimSpace(col) == "" {
			return fmt.Errorf("feature column names must not be empty")
		}
	}
	if len(c.Data.Categorical)+len(c.Data.Numeric) == 0 {
		return fmt.Errorf("at least one feature column is required")
	}

	// Normalize the legacy spelling accepted by the logger
	if c.Logging.Level == "warning" {
		c.Logging.Level = "warn"
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(ConfigFileEnv); p != "" {
		return p
	}

	// Check for config file in common locations
	locations := []string{
		"churn.yaml",
		"configs/churn.yaml",
		"../configs/churn.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Paths: PathsConfig{
			DataDir:    DefaultDataDir,
			ReportsDir: DefaultReportsDir,
			LogsDir:    DefaultLogsDir,
		},
		Data: DataConfig{
			Input:         DefaultInputFile,
			IDColumn:      "customerID",
			LabelSource:   "Churn",
			LabelPositive: "Yes",
			Categorical:   []string{"Contract", "InternetService", "PaymentMethod", "gender"},
			Numeric:       []string{"SeniorCitizen", "tenure", "MonthlyCharges", "TotalCharges"},
			TestRatio:     0.2,
			Seed:          42,
			FitEncodersOn: "all",
			UnseenPolicy:  "error",
		},
		Model: ModelConfig{
			Lambda:            0.1,
			MaxIterations:     100,
			Tolerance:         1e-6,
			GradientTolerance: 1e-8,
		},
		Search: SearchConfig{
			Enabled:        true,
			Candidates:     []float64{0.01, 0.1, 1.0},
			KFolds:         3,
			Seed:           42,
			MaxConcurrency: 4,
		},
		Output: OutputConfig{
			Formats:    []string{"csv"},
			BOMPrefix:  false,
			RunSummary: true,
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			ServiceName: "churn-report",
			MetricsFile: MetricsTextFile,
		},
	}
}
