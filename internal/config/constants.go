package config

// Application constants
const (
	// Application Info
	AppName    = "Churn Report"
	AppVersion = "0.1.0"

	// EnvPrefix namespaces every environment variable (CHURN_*)
	EnvPrefix = "CHURN"

	// ConfigFileEnv names an explicit YAML config file
	ConfigFileEnv = "CHURN_CONFIG"

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultReportsDir = "data/reports"
	DefaultLogsDir    = "logs"

	// Input
	DefaultInputFile = "WA_Fn-UseC_-Telco-Customer-Churn.csv"

	// Report files
	PredictionsFile = "predictions"
	RunSummaryFile  = "run_summary.json"
	WorkbookFile    = "churn_report.xlsx"
	MetricsTextFile = "churn_metrics.prom"
	TraceFile       = "traces.jsonl"
	DefaultLogFile  = "churn.log"
)
