package churn

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// SearchConfig contains configuration for the cross-validated λ search
type SearchConfig struct {
	// Grid search parameters
	Candidates []float64 `json:"candidates"` // Regularization strengths to try

	// Cross-validation settings
	KFolds int   `json:"k_folds"` // Number of CV folds
	Seed   int64 `json:"seed"`    // Random seed for fold assignment

	// Performance settings
	MaxConcurrency int `json:"max_concurrency"` // Maximum concurrent fold fits

	Estimator EstimatorConfig `json:"estimator"`
}

// DefaultSearchConfig returns the default search settings
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Candidates:     []float64{0.01, 0.1, 1.0},
		KFolds:         3,
		Seed:           42,
		MaxConcurrency: 4,
		Estimator:      DefaultEstimatorConfig(),
	}
}

// CandidateScore holds the per-fold AUCs for one λ
type CandidateScore struct {
	Lambda  float64   `json:"lambda"`
	FoldAUC []float64 `json:"fold_auc"`
	MeanAUC float64   `json:"mean_auc"`
}

// SearchResult is the outcome of GridSearch
type SearchResult struct {
	Lambda     float64          `json:"lambda"`
	MeanAUC    float64          `json:"mean_auc"`
	Model      *Model           `json:"-"`
	Candidates []CandidateScore `json:"candidates"`
	Folds      [][]int          `json:"-"`
	Duration   time.Duration    `json:"duration"`
}

// GridSearch selects λ by k-fold cross-validated AUC and refits on all rows.
// Ties in mean AUC go to the smallest λ. A held-out fold containing a single
// class fails the search with DegenerateEvaluationError.
func GridSearch(ctx context.Context, X []FeatureVector, y []float64, config SearchConfig, logger *slog.Logger) (*SearchResult, error) {
	start := time.Now()
	if logger == nil {
		logger = slog.Default()
	}

	if err := validateSearchConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validateFitInputs(X, y, 0); err != nil {
		return nil, fmt.Errorf("invalid input data: %w", err)
	}
	if len(X) < config.KFolds {
		return nil, &SearchInfeasibleError{Rows: len(X), Folds: config.KFolds}
	}

	logger.InfoContext(ctx, "starting cross-validated grid search",
		"rows", len(X),
		"features", len(X[0]),
		"candidates", len(config.Candidates),
		"k_folds", config.KFolds,
		"seed", config.Seed,
	)

	folds := assignFolds(y, config.KFolds, config.Seed)
	splits := make([]foldSplit, len(folds))
	for f := range folds {
		splits[f] = makeFoldSplit(X, y, folds, f)
	}

	estimator := NewEstimator(config.Estimator, logger)

	// Pre-sized so that concurrent writers never share a slot
	table := make([][]float64, len(config.Candidates))
	for c := range table {
		table[c] = make([]float64, len(folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.MaxConcurrency)

	for c, lambda := range config.Candidates {
		for f := range splits {
			g.Go(func() error {
				auc, err := evaluateFold(gctx, estimator, splits[f], lambda)
				if err != nil {
					return fmt.Errorf("candidate lambda=%g fold %d: %w", lambda, f, err)
				}
				table[c][f] = auc

				logger.DebugContext(gctx, "evaluated fold",
					"lambda", lambda,
					"fold", f,
					"auc", auc,
				)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("grid search: %w", err)
	}

	scores := make([]CandidateScore, len(config.Candidates))
	best := -1
	for c, lambda := range config.Candidates {
		mean := stat.Mean(table[c], nil)
		scores[c] = CandidateScore{Lambda: lambda, FoldAUC: table[c], MeanAUC: mean}

		logger.InfoContext(ctx, "candidate evaluated",
			"lambda", lambda,
			"mean_auc", mean,
		)

		if best < 0 || mean > scores[best].MeanAUC ||
			(mean == scores[best].MeanAUC && lambda < scores[best].Lambda) {
			best = c
		}
	}

	selected := scores[best]
	model, err := estimator.Fit(ctx, X, y, selected.Lambda)
	if err != nil {
		return nil, fmt.Errorf("refit with lambda=%g: %w", selected.Lambda, err)
	}

	result := &SearchResult{
		Lambda:     selected.Lambda,
		MeanAUC:    selected.MeanAUC,
		Model:      model,
		Candidates: scores,
		Folds:      folds,
		Duration:   time.Since(start),
	}

	logger.InfoContext(ctx, "grid search completed",
		"duration", result.Duration,
		"selected_lambda", result.Lambda,
		"mean_auc", result.MeanAUC,
		"converged", model.Converged(),
		"iterations", model.Iterations(),
	)

	return result, nil
}

// foldSplit is a read-only view of one fold's train and held-out rows
type foldSplit struct {
	trainX []FeatureVector
	trainY []float64
	testX  []FeatureVector
	testY  []float64
}

func makeFoldSplit(X []FeatureVector, y []float64, folds [][]int, held int) foldSplit {
	var s foldSplit
	for f, idx := range folds {
		for _, i := range idx {
			if f == held {
				s.testX = append(s.testX, X[i])
				s.testY = append(s.testY, y[i])
			} else {
				s.trainX = append(s.trainX, X[i])
				s.trainY = append(s.trainY, y[i])
			}
		}
	}
	return s
}

// evaluateFold fits on the training rows and returns AUC on the held-out rows
func evaluateFold(ctx context.Context, estimator *Estimator, split foldSplit, lambda float64) (float64, error) {
	model, err := estimator.Fit(ctx, split.trainX, split.trainY, lambda)
	if err != nil {
		return 0, fmt.Errorf("fit: %w", err)
	}
	scores, _, err := model.PredictBatch(split.testX)
	if err != nil {
		return 0, fmt.Errorf("predict: %w", err)
	}
	auc, err := AreaUnderROC(scores, split.testY)
	if err != nil {
		return 0, fmt.Errorf("evaluate: %w", err)
	}
	return auc, nil
}

// assignFolds partitions row indices into k folds. Each class is shuffled with
// a generator seeded from seed and dealt round-robin, continuing the dealing
// position from one class to the next, so fold sizes differ by at most one
// and class proportions are preserved. Indices within a fold are ascending.
func assignFolds(labels []float64, k int, seed int64) [][]int {
	var negatives, positives []int
	for i, l := range labels {
		if l == 1 {
			positives = append(positives, i)
		} else {
			negatives = append(negatives, i)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	folds := make([][]int, k)
	next := 0
	for _, class := range [][]int{negatives, positives} {
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })
		for _, idx := range class {
			folds[next] = append(folds[next], idx)
			next = (next + 1) % k
		}
	}

	for _, fold := range folds {
		sort.Ints(fold)
	}
	return folds
}

// validateSearchConfig validates the search configuration
func validateSearchConfig(config SearchConfig) error {
	if len(config.Candidates) == 0 {
		return &ValidationError{
			Field:   "Candidates",
			Message: "at least one regularization candidate is required",
		}
	}

	for _, lambda := range config.Candidates {
		if lambda < 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
			return &ValidationError{
				Field:   "Candidates",
				Message: "regularization candidates must be finite values >= 0",
				Value:   lambda,
			}
		}
	}

	if config.KFolds < 2 {
		return &ValidationError{
			Field:   "KFolds",
			Message: "k-folds must be at least 2",
			Value:   config.KFolds,
		}
	}

	if config.MaxConcurrency < 1 {
		return &ValidationError{
			Field:   "MaxConcurrency",
			Message: "max concurrency must be at least 1",
			Value:   config.MaxConcurrency,
		}
	}

	if !config.Estimator.IsValid() {
		return &ValidationError{
			Field:   "Estimator",
			Message: "invalid optimizer settings",
			Value:   config.Estimator,
		}
	}

	return nil
}
