package churn

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// EstimatorConfig controls the Newton optimizer
type EstimatorConfig struct {
	MaxIterations     int     `json:"max_iterations"`     // Iteration cap; reaching it is not an error
	Tolerance         float64 `json:"tolerance"`          // Relative objective improvement threshold
	GradientTolerance float64 `json:"gradient_tolerance"` // Gradient norm threshold
}

// DefaultEstimatorConfig returns the default optimizer settings
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		MaxIterations:     DefaultMaxIterations,
		Tolerance:         DefaultTolerance,
		GradientTolerance: DefaultGradientTolerance,
	}
}

// IsValid checks if the optimizer settings are usable
func (c EstimatorConfig) IsValid() bool {
	return c.MaxIterations > 0 && c.Tolerance >= 0 && c.GradientTolerance >= 0
}

// Model is a fitted binary logistic regression. It is immutable and safe for
// concurrent use.
type Model struct {
	weights    []float64
	bias       float64
	lambda     float64
	converged  bool
	iterations int
	objective  float64
}

// Weights returns a copy of the coefficient vector
func (m *Model) Weights() []float64 {
	out := make([]float64, len(m.weights))
	copy(out, m.weights)
	return out
}

// Bias returns the intercept
func (m *Model) Bias() float64 { return m.bias }

// Lambda returns the regularization strength used for the fit
func (m *Model) Lambda() float64 { return m.lambda }

// Converged reports whether the optimizer met a tolerance before the iteration cap
func (m *Model) Converged() bool { return m.converged }

// Iterations returns the number of Newton iterations performed
func (m *Model) Iterations() int { return m.iterations }

// Objective returns the regularized negative log-likelihood at the returned weights
func (m *Model) Objective() float64 { return m.objective }

// NumFeatures returns the expected feature vector length
func (m *Model) NumFeatures() int { return len(m.weights) }

// Predict returns σ(w·x+b) and the label thresholded at DecisionThreshold
func (m *Model) Predict(x FeatureVector) (float64, int, error) {
	if len(x) != len(m.weights) {
		return 0, 0, &ValidationError{
			Field:   "features",
			Message: "feature count mismatch between model and vector",
			Value:   map[string]int{"expected": len(m.weights), "actual": len(x)},
		}
	}
	score := sigmoid(floats.Dot(m.weights, x) + m.bias)
	return score, thresholdLabel(score), nil
}

// PredictBatch scores every vector, splitting rows across GOMAXPROCS workers
func (m *Model) PredictBatch(X []FeatureVector) ([]float64, []int, error) {
	for i, x := range X {
		if len(x) != len(m.weights) {
			return nil, nil, fmt.Errorf("row %d: %w", i, &ValidationError{
				Field:   "features",
				Message: "feature count mismatch between model and vector",
				Value:   map[string]int{"expected": len(m.weights), "actual": len(x)},
			})
		}
	}

	scores := make([]float64, len(X))
	labels := make([]int, len(X))
	if len(X) == 0 {
		return scores, labels, nil
	}

	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := min(start+rowsPerWorker, len(X))
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				scores[i] = sigmoid(floats.Dot(m.weights, X[i]) + m.bias)
				labels[i] = thresholdLabel(scores[i])
			}
		}(start, end)
	}
	wg.Wait()
	return scores, labels, nil
}

// Estimator fits logistic regression models
type Estimator struct {
	config EstimatorConfig
	logger *slog.Logger
}

// NewEstimator creates an estimator. A nil logger uses slog.Default().
func NewEstimator(config EstimatorConfig, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{config: config, logger: logger}
}

// Config returns the optimizer settings
func (e *Estimator) Config() EstimatorConfig { return e.config }

// Fit minimizes Σ[log(1+e^z) − y·z] + λ‖w‖² with damped Newton steps. The
// intercept is not penalized. Hitting MaxIterations returns the last (best)
// iterate with Converged() == false.
func (e *Estimator) Fit(ctx context.Context, X []FeatureVector, y []float64, lambda float64) (*Model, error) {
	if err := validateFitInputs(X, y, lambda); err != nil {
		return nil, err
	}
	if !e.config.IsValid() {
		return nil, &ValidationError{Field: "EstimatorConfig", Message: "invalid optimizer settings", Value: e.config}
	}

	p := &problem{X: X, y: y, lambda: lambda, d: len(X[0])}
	m := p.d + 1 // weights then intercept

	theta := make([]float64, m)
	grad := make([]float64, m)
	dir := make([]float64, m)
	candidate := make([]float64, m)
	hess := mat.NewSymDense(m, nil)

	f := p.objective(theta)
	converged := false
	iter := 0

	for iter < e.config.MaxIterations {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during fit: %w", ctx.Err())
		default:
		}

		p.gradientHessian(theta, grad, hess)
		if floats.Norm(grad, 2) <= e.config.GradientTolerance {
			converged = true
			break
		}

		newtonDirection(hess, grad, dir)
		slope := floats.Dot(grad, dir)
		if slope >= 0 || math.IsNaN(slope) {
			// Not a descent direction: fall back to steepest descent
			floats.ScaleTo(dir, -1, grad)
			slope = floats.Dot(grad, dir)
		}

		// Backtracking line search (Armijo)
		step := 1.0
		fNew := math.Inf(1)
		accepted := false
		for k := 0; k < maxLineSearchSteps; k++ {
			floats.AddScaledTo(candidate, theta, step, dir)
			fNew = p.objective(candidate)
			if fNew <= f+armijoC*step*slope {
				accepted = true
				break
			}
			step *= 0.5
		}
		iter++

		if !accepted {
			// No representable decrease along the direction
			converged = true
			break
		}

		copy(theta, candidate)
		improvement := (f - fNew) / math.Max(math.Abs(f), 1e-300)
		f = fNew
		if improvement < e.config.Tolerance {
			converged = true
			break
		}
	}

	model := &Model{
		weights:    append([]float64(nil), theta[:p.d]...),
		bias:       theta[p.d],
		lambda:     lambda,
		converged:  converged,
		iterations: iter,
		objective:  f,
	}

	e.logger.DebugContext(ctx, "logistic regression fit finished",
		"rows", len(X),
		"features", p.d,
		"lambda", lambda,
		"iterations", iter,
		"converged", converged,
		"objective", f,
	)

	return model, nil
}

const (
	armijoC            = 1e-4
	maxLineSearchSteps = 60
	maxJitterAttempts  = 12
)

// problem holds one fit's read-only inputs
type problem struct {
	X      []FeatureVector
	y      []float64
	lambda float64
	d      int
}

// objective evaluates the regularized negative log-likelihood at theta
func (p *problem) objective(theta []float64) float64 {
	w, b := theta[:p.d], theta[p.d]
	sum := 0.0
	for i, x := range p.X {
		z := floats.Dot(w, x) + b
		sum += softplus(z) - p.y[i]*z
	}
	return sum + p.lambda*floats.Dot(w, w)
}

// gradientHessian fills grad and hess at theta
func (p *problem) gradientHessian(theta, grad []float64, hess *mat.SymDense) {
	d := p.d
	w, b := theta[:d], theta[d]

	for j := range grad {
		grad[j] = 0
	}
	// Accumulate the upper triangle in a flat buffer, then copy into hess
	m := d + 1
	h := make([]float64, m*m)

	for i, x := range p.X {
		z := floats.Dot(w, x) + b
		prob := sigmoid(z)
		r := prob - p.y[i]
		s := prob * (1 - prob)

		for j := 0; j < d; j++ {
			grad[j] += r * x[j]
			sx := s * x[j]
			row := h[j*m:]
			for k := j; k < d; k++ {
				row[k] += sx * x[k]
			}
			row[d] += sx
		}
		grad[d] += r
		h[d*m+d] += s
	}

	for j := 0; j < d; j++ {
		grad[j] += 2 * p.lambda * w[j]
		h[j*m+j] += 2 * p.lambda
	}

	for j := 0; j < m; j++ {
		for k := j; k < m; k++ {
			hess.SetSym(j, k, h[j*m+k])
		}
	}
}

// newtonDirection solves hess·dir = −grad. When the Hessian is not positive
// definite (zero-variance or collinear columns with λ=0, saturated
// probabilities) a growing diagonal jitter is added; as a last resort dir is
// the negative gradient.
func newtonDirection(hess *mat.SymDense, grad, dir []float64) {
	m := len(grad)
	rhs := mat.NewVecDense(m, nil)
	for j, g := range grad {
		rhs.SetVec(j, -g)
	}
	out := mat.NewVecDense(m, dir)

	maxDiag := 0.0
	for j := 0; j < m; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(hess.At(j, j)))
	}
	jitter := 0.0
	base := 1e-10 * math.Max(maxDiag, 1)

	work := mat.NewSymDense(m, nil)
	for attempt := 0; attempt <= maxJitterAttempts; attempt++ {
		work.CopySym(hess)
		if jitter > 0 {
			for j := 0; j < m; j++ {
				work.SetSym(j, j, work.At(j, j)+jitter)
			}
		}

		var chol mat.Cholesky
		if chol.Factorize(work) {
			if err := chol.SolveVecTo(out, rhs); err == nil && finite(dir) {
				return
			}
		}

		if jitter == 0 {
			jitter = base
		} else {
			jitter *= 10
		}
	}

	floats.ScaleTo(dir, -1, grad)
}

// validateFitInputs checks shapes, labels and λ
func validateFitInputs(X []FeatureVector, y []float64, lambda float64) error {
	if len(X) == 0 {
		return &ValidationError{Field: "features", Message: "no training rows provided"}
	}
	if len(y) != len(X) {
		return &ValidationError{
			Field:   "labels",
			Message: "labels length mismatch",
			Value:   map[string]int{"expected": len(X), "actual": len(y)},
		}
	}
	d := len(X[0])
	for i, x := range X {
		if len(x) != d {
			return &ValidationError{
				Field:   "features",
				Message: fmt.Sprintf("row %d has %d features, expected %d", i, len(x), d),
			}
		}
		if !finite(x) {
			return &ValidationError{Field: "features", Message: fmt.Sprintf("row %d contains NaN or Inf", i)}
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return &ValidationError{
				Field:   "labels",
				Message: fmt.Sprintf("label at row %d is not binary", i),
				Value:   label,
			}
		}
	}
	if lambda < 0 || math.IsNaN(lambda) || math.IsInf(lambda, 0) {
		return &ValidationError{Field: "lambda", Message: "regularization strength must be a finite value >= 0", Value: lambda}
	}
	return nil
}

// sigmoid is the logistic function, evaluated without overflow
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	ez := math.Exp(z)
	return ez / (1 + ez)
}

// softplus computes log(1+e^z) without overflow
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func thresholdLabel(score float64) int {
	if score >= DecisionThreshold {
		return 1
	}
	return 0
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
