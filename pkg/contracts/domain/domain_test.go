package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrediction(t *testing.T) {
	tests := []struct {
		name        string
		customerID  string
		label       int
		probability float64
		wantErr     bool
		errContains string
	}{
		{
			name:        "valid prediction",
			customerID:  "7590-VHVEG",
			label:       1,
			probability: 0.73,
		},
		{
			name:        "whitespace trimmed",
			customerID:  " 5575-GNVDE ",
			label:       0,
			probability: 0.12,
		},
		{
			name:        "missing customer id",
			customerID:  "  ",
			label:       0,
			probability: 0.1,
			wantErr:     true,
			errContains: "customer_id",
		},
		{
			name:        "label out of range",
			customerID:  "3668-QPYBK",
			label:       2,
			probability: 0.6,
			wantErr:     true,
			errContains: "prediction",
		},
		{
			name:        "probability above one",
			customerID:  "3668-QPYBK",
			label:       1,
			probability: 1.2,
			wantErr:     true,
			errContains: "probability",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPrediction(tt.customerID, tt.label, tt.probability)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.NotContains(t, p.CustomerID, " ")
			assert.Equal(t, tt.label, p.Label)
			assert.Nil(t, p.Actual)
		})
	}
}

func TestPredictionWithActual(t *testing.T) {
	p, err := NewPrediction("7795-CFOCW", 0, 0.2)
	require.NoError(t, err)

	q := p.WithActual(1, "test")
	require.NotNil(t, q.Actual)
	assert.Equal(t, 1, *q.Actual)
	assert.Equal(t, "test", q.Split)
	assert.Nil(t, p.Actual, "original must not change")
	assert.NoError(t, Validate(q))

	bad := p.WithActual(1, "holdout")
	assert.Error(t, Validate(bad))
}

func TestAggregateTableValidation(t *testing.T) {
	table := AggregateTable{
		Name:        "churn_by_contract",
		KeyColumn:   "Contract",
		ValueColumn: "label",
		Rows: []SegmentAggregate{
			{Key: "Month-to-month", Mean: 0.43, Count: 3875},
			{Key: "One year", Mean: 0.11, Count: 1473},
		},
	}
	assert.NoError(t, Validate(table))

	table.Name = "../escape"
	assert.Error(t, Validate(table))

	table.Name = "ok"
	table.Rows = append(table.Rows, SegmentAggregate{Key: "Two year", Count: 0})
	assert.Error(t, Validate(table))
}

func TestRunSummaryValidation(t *testing.T) {
	summary := RunSummary{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
		InputPath:   "data/telco.csv",
		Features:    []string{"tenure"},
		Model:       ModelSummary{Lambda: 0.1},
		CrossValidation: &SearchSummary{
			KFolds:     3,
			Selected:   0.1,
			MeanAUC:    0.84,
			Candidates: []CandidateSummary{{Lambda: 0.1, FoldAUC: []float64{0.83, 0.85, 0.84}, MeanAUC: 0.84}},
		},
	}
	assert.NoError(t, Validate(summary))

	summary.RunID = "not-a-uuid"
	assert.Error(t, Validate(summary))
}
