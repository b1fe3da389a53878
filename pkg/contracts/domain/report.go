package domain

import (
	"time"
)

// RunSummary is the machine-readable outcome of one pipeline run
type RunSummary struct {
	RunID       string        `json:"run_id" validate:"required,uuid"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration"`
	InputPath   string        `json:"input_path" validate:"required"`

	RowsLoaded  int `json:"rows_loaded"`
	RowsDropped int `json:"rows_dropped"`
	TrainRows   int `json:"train_rows"`
	TestRows    int `json:"test_rows"`

	Features []string     `json:"features" validate:"min=1"`
	Model    ModelSummary `json:"model"`

	CrossValidation *SearchSummary  `json:"cross_validation,omitempty"`
	Holdout         *MetricsSummary `json:"holdout,omitempty"`
	Training        *MetricsSummary `json:"training,omitempty"`
	Outputs         []string        `json:"outputs"`
}

// ModelSummary describes the final fitted model
type ModelSummary struct {
	Lambda     float64            `json:"lambda" validate:"gte=0"`
	Bias       float64            `json:"bias"`
	Weights    map[string]float64 `json:"weights"`
	Converged  bool               `json:"converged"`
	Iterations int                `json:"iterations"`
	Objective  float64            `json:"objective"`
}

// SearchSummary records the cross-validated λ search
type SearchSummary struct {
	KFolds     int                `json:"k_folds" validate:"gte=2"`
	Seed       int64              `json:"seed"`
	Selected   float64            `json:"selected_lambda"`
	MeanAUC    float64            `json:"mean_auc" validate:"gte=0,lte=1"`
	Candidates []CandidateSummary `json:"candidates" validate:"min=1,dive"`
}

// CandidateSummary is one row of the search table
type CandidateSummary struct {
	Lambda  float64   `json:"lambda" validate:"gte=0"`
	FoldAUC []float64 `json:"fold_auc"`
	MeanAUC float64   `json:"mean_auc"`
}

// MetricsSummary holds threshold-free and thresholded metrics on one split
type MetricsSummary struct {
	Rows      int     `json:"rows"`
	AUC       float64 `json:"auc"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}
