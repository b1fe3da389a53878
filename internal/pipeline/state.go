package pipeline

import (
	"sync"
	"time"

	"churncli/internal/churn"
	"churncli/internal/dataprocessing"
	"churncli/pkg/contracts/domain"
)

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	mu        sync.RWMutex
	ID        string     `json:"id"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Message   string     `json:"message,omitempty"`
	Error     error      `json:"-"`
}

// NewStepState creates a pending step state
func NewStepState(id string) *StepState {
	return &StepState{ID: id, Status: StepStatusPending}
}

// Start marks the step as active and sets the start time
func (s *StepState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed
func (s *StepState) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
}

// Fail marks the step as failed with the given error
func (s *StepState) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Error = err
}

// Skip marks the step as skipped with the given reason
func (s *StepState) Skip(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusSkipped
	s.Message = reason
}

// GetStatus returns the current status
func (s *StepState) GetStatus() StepStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// Duration returns the duration of the step execution
func (s *StepState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(*s.StartTime)
	}
	return time.Since(*s.StartTime)
}

// RunState carries the data passed between steps of one run
type RunState struct {
	ID        string
	StartedAt time.Time
	InputPath string

	// Data
	Table       *dataprocessing.Table
	RowsLoaded  int
	RowsDropped int
	Labels      []float64
	TrainIdx    []int
	TestIdx     []int

	// Features
	Encoder  *churn.Encoder
	Features []string
	Vectors  []churn.FeatureVector

	// Model
	Search   *churn.SearchResult
	Model    *churn.Model
	Training *churn.EvaluationResult
	Holdout  *churn.EvaluationResult

	// Outputs
	Predictions []domain.Prediction
	Aggregates  []domain.AggregateTable
	Outputs     []string
	Summary     *domain.RunSummary

	Steps []*StepState
}

// NewRunState creates the state for a run
func NewRunState(id string) *RunState {
	return &RunState{ID: id, StartedAt: time.Now()}
}

// Step returns the state of the step with the given ID
func (s *RunState) Step(id string) (*StepState, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return nil, false
}

// rowsAt selects rows by index
func rowsAt[T any](all []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = all[j]
	}
	return out
}
