package churn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAreaUnderROC(t *testing.T) {
	tests := []struct {
		name     string
		scores   []float64
		labels   []float64
		expected float64
	}{
		{
			name:     "perfect separation",
			scores:   []float64{0.1, 0.2, 0.8, 0.9},
			labels:   []float64{0, 0, 1, 1},
			expected: 1.0,
		},
		{
			name:     "perfectly wrong",
			scores:   []float64{0.9, 0.8, 0.2, 0.1},
			labels:   []float64{0, 0, 1, 1},
			expected: 0.0,
		},
		{
			name:     "one misordered pair",
			scores:   []float64{0.1, 0.4, 0.35, 0.8},
			labels:   []float64{0, 0, 1, 1},
			expected: 0.75,
		},
		{
			name:     "all scores tied",
			scores:   []float64{0.5, 0.5, 0.5, 0.5},
			labels:   []float64{0, 1, 0, 1},
			expected: 0.5,
		},
		{
			name:     "tie across classes counts half",
			scores:   []float64{0.2, 0.6, 0.6, 0.9},
			labels:   []float64{0, 0, 1, 1},
			expected: 0.875,
		},
		{
			name:     "unsorted input",
			scores:   []float64{0.7, 0.1, 0.9, 0.3, 0.5},
			labels:   []float64{1, 0, 1, 0, 0},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auc, err := AreaUnderROC(tt.scores, tt.labels)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, auc, 1e-12)
		})
	}
}

// TestAreaUnderROCMonotoneInvariance checks that AUC depends only on score order
func TestAreaUnderROCMonotoneInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	scores := make([]float64, 200)
	labels := make([]float64, 200)
	for i := range scores {
		scores[i] = rng.Float64()
		if rng.Float64() < scores[i] {
			labels[i] = 1
		}
	}

	base, err := AreaUnderROC(scores, labels)
	require.NoError(t, err)

	transforms := map[string]func(float64) float64{
		"affine": func(s float64) float64 { return 3*s + 7 },
		"cube":   func(s float64) float64 { return s * s * s },
		"logit":  func(s float64) float64 { return math.Log(s / (1 - s)) },
	}
	for name, fn := range transforms {
		t.Run(name, func(t *testing.T) {
			transformed := make([]float64, len(scores))
			for i, s := range scores {
				transformed[i] = fn(s)
			}
			auc, err := AreaUnderROC(transformed, labels)
			require.NoError(t, err)
			assert.InDelta(t, base, auc, 1e-12)
		})
	}
}

func TestAreaUnderROCRandomScores(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	n := 20000
	scores := make([]float64, n)
	labels := make([]float64, n)
	for i := range scores {
		scores[i] = rng.Float64()
		if rng.Intn(2) == 1 {
			labels[i] = 1
		}
	}

	auc, err := AreaUnderROC(scores, labels)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, auc, 0.02)
}

func TestAreaUnderROCErrors(t *testing.T) {
	t.Run("single class", func(t *testing.T) {
		_, err := AreaUnderROC([]float64{0.2, 0.4, 0.9}, []float64{1, 1, 1})
		var degenerate *DegenerateEvaluationError
		require.True(t, errors.As(err, &degenerate))
		assert.Equal(t, 3, degenerate.Positives)
		assert.Equal(t, 0, degenerate.Negatives)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := AreaUnderROC(nil, nil)
		var degenerate *DegenerateEvaluationError
		assert.True(t, errors.As(err, &degenerate))
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := AreaUnderROC([]float64{0.1}, []float64{0, 1})
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("NaN score", func(t *testing.T) {
		_, err := AreaUnderROC([]float64{0.1, math.NaN()}, []float64{0, 1})
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})
}

func TestConfusionMetrics(t *testing.T) {
	scores := []float64{0.9, 0.8, 0.3, 0.6, 0.2, 0.1}
	labels := []float64{1, 1, 1, 0, 0, 0}

	cm, err := Confusion(scores, labels)
	require.NoError(t, err)
	assert.Equal(t, ConfusionMatrix{TruePositives: 2, FalsePositives: 1, TrueNegatives: 2, FalseNegatives: 1}, cm)
	assert.Equal(t, 6, cm.Total())

	acc, err := Accuracy(scores, labels)
	require.NoError(t, err)
	assert.InDelta(t, 4.0/6.0, acc, 1e-12)

	p, r, f1, err := PrecisionRecallF1(scores, labels)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, p, 1e-12)
	assert.InDelta(t, 2.0/3.0, r, 1e-12)
	assert.InDelta(t, 2.0/3.0, f1, 1e-12)

	t.Run("threshold is inclusive", func(t *testing.T) {
		cm, err := Confusion([]float64{0.5}, []float64{1})
		require.NoError(t, err)
		assert.Equal(t, 1, cm.TruePositives)
	})

	t.Run("no predicted positives", func(t *testing.T) {
		p, r, f1, err := PrecisionRecallF1([]float64{0.1, 0.2}, []float64{1, 0})
		require.NoError(t, err)
		assert.Zero(t, p)
		assert.Zero(t, r)
		assert.Zero(t, f1)
	})
}

func TestEvaluate(t *testing.T) {
	res, err := Evaluate([]float64{0.1, 0.4, 0.35, 0.8}, []float64{0, 0, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.AUC, 1e-12)
	assert.InDelta(t, 0.75, res.Accuracy, 1e-12)
	assert.InDelta(t, 1.0, res.Precision, 1e-12)
	assert.InDelta(t, 0.5, res.Recall, 1e-12)

	_, err = Evaluate([]float64{0.1, 0.2}, []float64{0, 0})
	var degenerate *DegenerateEvaluationError
	assert.True(t, errors.As(err, &degenerate))
}
