// Package config provides configuration management for the churn report.
// It handles loading configuration from multiple sources, validation, and
// path resolution for every file the run reads or writes.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CHURN_<SECTION>_<FIELD>:
//
//	CHURN_DATA_INPUT=data/telco.csv
//	CHURN_DATA_FIT_ENCODERS_ON=train
//	CHURN_SEARCH_CANDIDATES=0.01,0.1,1
//	CHURN_SEARCH_K_FOLDS=5
//	CHURN_LOGGING_LEVEL=debug
//	CHURN_OUTPUT_FORMATS=csv,xlsx
//
// # Configuration File
//
// The file is taken from the -config flag, then CHURN_CONFIG, then
// churn.yaml or configs/churn.yaml. Unknown keys are rejected.
//
//	data:
//	  input: WA_Fn-UseC_-Telco-Customer-Churn.csv
//	  categorical: [Contract, InternetService, PaymentMethod, gender]
//	  numeric: [SeniorCitizen, tenure, MonthlyCharges, TotalCharges]
//	search:
//	  candidates: [0.01, 0.1, 1.0]
//	  k_folds: 3
//
// # Path Management
//
// Paths resolves the data, reports and logs directories against a base
// directory (the working directory unless paths.base_dir is set):
//
//	paths, err := config.GetPaths(cfg)
//	reportPath := paths.GetReportPath("predictions.csv")
//
// # Validation
//
// Struct tags checked by go-playground/validator enforce ranges such as
// k_folds >= 2, 0 < test_ratio < 1 and non-negative regularization values.
// The loaded Config is passed explicitly to every pipeline stage.
package config
