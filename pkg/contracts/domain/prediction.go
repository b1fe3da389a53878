package domain

import (
	"fmt"
	"strings"
)

// Prediction is one scored customer record as persisted by the sinks
type Prediction struct {
	CustomerID  string  `json:"customer_id" csv:"customerID" validate:"required"`
	Label       int     `json:"prediction" csv:"prediction" validate:"oneof=0 1"`
	Probability float64 `json:"probability" csv:"probability" validate:"gte=0,lte=1"`
	Actual      *int    `json:"actual,omitempty" csv:"actual" validate:"omitempty,oneof=0 1"`
	Split       string  `json:"split,omitempty" csv:"split" validate:"omitempty,oneof=train test all"`
}

// NewPrediction creates a validated prediction record
func NewPrediction(customerID string, label int, probability float64) (*Prediction, error) {
	p := &Prediction{
		CustomerID:  strings.TrimSpace(customerID),
		Label:       label,
		Probability: probability,
	}

	if err := Validate(p); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return p, nil
}

// WithActual returns a copy carrying the observed label and split membership
func (p Prediction) WithActual(actual int, split string) Prediction {
	p.Actual = &actual
	p.Split = split
	return p
}
