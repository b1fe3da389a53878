package churn

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticData draws rows from a known logistic model
func syntheticData(n int, weights []float64, bias float64, seed int64) ([]FeatureVector, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([]FeatureVector, n)
	y := make([]float64, n)
	for i := range X {
		x := make(FeatureVector, len(weights))
		z := bias
		for j, w := range weights {
			x[j] = rng.NormFloat64()
			z += w * x[j]
		}
		X[i] = x
		if rng.Float64() < sigmoid(z) {
			y[i] = 1
		}
	}
	return X, y
}

func TestEstimatorSeparableMonotone(t *testing.T) {
	X := []FeatureVector{{1}, {2}, {3}}
	y := []float64{0, 0, 1}

	model, err := NewEstimator(DefaultEstimatorConfig(), nil).Fit(context.Background(), X, y, 0)
	require.NoError(t, err)

	assert.Greater(t, model.Weights()[0], 0.0)

	s1, l1, err := model.Predict(X[0])
	require.NoError(t, err)
	s2, l2, err := model.Predict(X[1])
	require.NoError(t, err)
	s3, l3, err := model.Predict(X[2])
	require.NoError(t, err)

	assert.Less(t, s1, s2)
	assert.Less(t, s2, s3)
	assert.Equal(t, []int{0, 0, 1}, []int{l1, l2, l3})
	assert.False(t, math.IsNaN(model.Objective()))
}

func TestEstimatorRecoversCoefficients(t *testing.T) {
	trueWeights := []float64{2, -1}
	X, y := syntheticData(4000, trueWeights, 0.5, 7)

	model, err := NewEstimator(DefaultEstimatorConfig(), nil).Fit(context.Background(), X, y, 0)
	require.NoError(t, err)

	assert.True(t, model.Converged())
	assert.Greater(t, model.Iterations(), 0)
	assert.LessOrEqual(t, model.Iterations(), DefaultMaxIterations)

	w := model.Weights()
	assert.InDelta(t, 2.0, w[0], 0.4)
	assert.InDelta(t, -1.0, w[1], 0.4)
	assert.InDelta(t, 0.5, model.Bias(), 0.4)
	assert.Equal(t, 2, model.NumFeatures())
	assert.Equal(t, 0.0, model.Lambda())
}

func TestEstimatorRegularizationShrinks(t *testing.T) {
	X, y := syntheticData(500, []float64{1.5, -2}, 0, 11)
	est := NewEstimator(DefaultEstimatorConfig(), nil)

	norm := func(lambda float64) float64 {
		model, err := est.Fit(context.Background(), X, y, lambda)
		require.NoError(t, err)
		w := model.Weights()
		return math.Sqrt(w[0]*w[0] + w[1]*w[1])
	}

	n0, n1, n100 := norm(0), norm(1), norm(100)
	assert.Greater(t, n0, n1)
	assert.Greater(t, n1, n100)
}

func TestEstimatorObjectiveDecreasesFromStart(t *testing.T) {
	X, y := syntheticData(300, []float64{1, 1, -1}, -0.2, 3)
	model, err := NewEstimator(DefaultEstimatorConfig(), nil).Fit(context.Background(), X, y, 0.1)
	require.NoError(t, err)

	// At w=0, b=0 every row contributes log(2)
	assert.Less(t, model.Objective(), float64(len(X))*math.Ln2)
}

func TestEstimatorIterationCap(t *testing.T) {
	X, y := syntheticData(1000, []float64{2, -1}, 0.5, 5)
	cfg := DefaultEstimatorConfig()
	cfg.MaxIterations = 1

	model, err := NewEstimator(cfg, nil).Fit(context.Background(), X, y, 0)
	require.NoError(t, err)
	assert.False(t, model.Converged())
	assert.Equal(t, 1, model.Iterations())
}

func TestEstimatorDegenerateColumns(t *testing.T) {
	tests := []struct {
		name string
		X    []FeatureVector
		y    []float64
	}{
		{
			name: "zero variance column",
			X:    []FeatureVector{{5, 1}, {5, 2}, {5, 3}, {5, 4}, {5, 2.5}, {5, 1.5}},
			y:    []float64{0, 1, 1, 1, 0, 0},
		},
		{
			name: "duplicated column",
			X:    []FeatureVector{{1, 1}, {2, 2}, {3, 3}, {4, 4}, {2.5, 2.5}, {1.5, 1.5}},
			y:    []float64{0, 1, 0, 1, 1, 0},
		},
		{
			name: "all one class",
			X:    []FeatureVector{{1}, {2}, {3}},
			y:    []float64{1, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := NewEstimator(DefaultEstimatorConfig(), nil).Fit(context.Background(), tt.X, tt.y, 0)
			require.NoError(t, err)

			assert.True(t, finite(model.Weights()))
			assert.False(t, math.IsNaN(model.Bias()))
			scores, _, err := model.PredictBatch(tt.X)
			require.NoError(t, err)
			for _, s := range scores {
				assert.GreaterOrEqual(t, s, 0.0)
				assert.LessOrEqual(t, s, 1.0)
			}
		})
	}
}

func TestEstimatorValidation(t *testing.T) {
	est := NewEstimator(DefaultEstimatorConfig(), nil)

	tests := []struct {
		name   string
		X      []FeatureVector
		y      []float64
		lambda float64
		field  string
	}{
		{"empty data", nil, nil, 0, "features"},
		{"length mismatch", []FeatureVector{{1}, {2}}, []float64{0}, 0, "labels"},
		{"ragged vectors", []FeatureVector{{1}, {2, 3}}, []float64{0, 1}, 0, "features"},
		{"non binary label", []FeatureVector{{1}, {2}}, []float64{0, 2}, 0, "labels"},
		{"NaN feature", []FeatureVector{{1}, {math.NaN()}}, []float64{0, 1}, 0, "features"},
		{"negative lambda", []FeatureVector{{1}, {2}}, []float64{0, 1}, -1, "lambda"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := est.Fit(context.Background(), tt.X, tt.y, tt.lambda)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	t.Run("invalid config", func(t *testing.T) {
		bad := NewEstimator(EstimatorConfig{MaxIterations: 0}, nil)
		_, err := bad.Fit(context.Background(), []FeatureVector{{1}, {2}}, []float64{0, 1}, 0)
		var ve *ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "EstimatorConfig", ve.Field)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := est.Fit(ctx, []FeatureVector{{1}, {2}}, []float64{0, 1}, 0)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestModelImmutable(t *testing.T) {
	model, err := NewEstimator(DefaultEstimatorConfig(), nil).Fit(context.Background(),
		[]FeatureVector{{1}, {2}, {3}, {4}}, []float64{0, 1, 0, 1}, 0.5)
	require.NoError(t, err)

	before := model.Weights()
	w := model.Weights()
	w[0] = 1e9
	assert.Equal(t, before, model.Weights())
}

func TestPredictBatchMatchesPredict(t *testing.T) {
	X, y := syntheticData(257, []float64{0.7, -0.3, 1.1}, 0.1, 13)
	model, err := NewEstimator(DefaultEstimatorConfig(), nil).Fit(context.Background(), X, y, 0.01)
	require.NoError(t, err)

	scores, labels, err := model.PredictBatch(X)
	require.NoError(t, err)
	require.Len(t, scores, len(X))

	for i, x := range X {
		s, l, err := model.Predict(x)
		require.NoError(t, err)
		assert.Equal(t, s, scores[i])
		assert.Equal(t, l, labels[i])
	}

	empty, _, err := model.PredictBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, _, err = model.PredictBatch([]FeatureVector{{1, 2}})
	assert.Error(t, err)
	_, _, err = model.Predict(FeatureVector{1})
	assert.Error(t, err)
}

// TestModelConcurrentReads shares one model across goroutines
func TestModelConcurrentReads(t *testing.T) {
	X, y := syntheticData(200, []float64{1}, 0, 17)
	model, err := NewEstimator(DefaultEstimatorConfig(), nil).Fit(context.Background(), X, y, 0.1)
	require.NoError(t, err)

	want, _, err := model.PredictBatch(X)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, _, err := model.PredictBatch(X)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestSigmoidSoftplusStable(t *testing.T) {
	assert.Equal(t, 0.5, sigmoid(0))
	assert.InDelta(t, 1.0, sigmoid(800), 1e-12)
	assert.InDelta(t, 0.0, sigmoid(-800), 1e-12)
	assert.InDelta(t, math.Ln2, softplus(0), 1e-15)
	assert.InDelta(t, 800.0, softplus(800), 1e-9)
	assert.False(t, math.IsInf(softplus(1000), 0))
	assert.GreaterOrEqual(t, softplus(-800), 0.0)
}
