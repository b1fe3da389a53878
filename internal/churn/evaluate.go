package churn

import (
	"fmt"
	"math"
	"sort"
)

// EvaluationResult summarizes a scored label set. AUC is threshold free; the
// remaining fields use DecisionThreshold.
type EvaluationResult struct {
	AUC       float64         `json:"auc"`
	Accuracy  float64         `json:"accuracy"`
	Precision float64         `json:"precision"`
	Recall    float64         `json:"recall"`
	F1        float64         `json:"f1"`
	Confusion ConfusionMatrix `json:"confusion"`
}

// ConfusionMatrix counts thresholded predictions against true labels
type ConfusionMatrix struct {
	TruePositives  int `json:"tp"`
	FalsePositives int `json:"fp"`
	TrueNegatives  int `json:"tn"`
	FalseNegatives int `json:"fn"`
}

// Total returns the number of counted predictions
func (c ConfusionMatrix) Total() int {
	return c.TruePositives + c.FalsePositives + c.TrueNegatives + c.FalseNegatives
}

// AreaUnderROC computes the ROC AUC as the normalized Mann–Whitney U
// statistic. Tied scores get their average rank, so a tie between a positive
// and a negative contributes one half. The result depends only on the order
// of the scores.
func AreaUnderROC(scores, labels []float64) (float64, error) {
	if err := validateScored(scores, labels); err != nil {
		return 0, err
	}

	positives, negatives := countClasses(labels)
	if positives == 0 || negatives == 0 {
		return 0, &DegenerateEvaluationError{Positives: positives, Negatives: negatives}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})

	// Sum of 1-based average ranks over the positives
	rankSum := 0.0
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if labels[order[k]] == 1 {
				rankSum += avgRank
			}
		}
		i = j + 1
	}

	np, nn := float64(positives), float64(negatives)
	u := rankSum - np*(np+1)/2
	return u / (np * nn), nil
}

// Confusion thresholds scores at DecisionThreshold and counts outcomes
func Confusion(scores, labels []float64) (ConfusionMatrix, error) {
	if err := validateScored(scores, labels); err != nil {
		return ConfusionMatrix{}, err
	}

	var cm ConfusionMatrix
	for i, s := range scores {
		predicted := thresholdLabel(s) == 1
		actual := labels[i] == 1
		switch {
		case predicted && actual:
			cm.TruePositives++
		case predicted && !actual:
			cm.FalsePositives++
		case !predicted && actual:
			cm.FalseNegatives++
		default:
			cm.TrueNegatives++
		}
	}
	return cm, nil
}

// Accuracy is the fraction of thresholded predictions matching the labels
func Accuracy(scores, labels []float64) (float64, error) {
	cm, err := Confusion(scores, labels)
	if err != nil {
		return 0, err
	}
	if cm.Total() == 0 {
		return 0, nil
	}
	return float64(cm.TruePositives+cm.TrueNegatives) / float64(cm.Total()), nil
}

// PrecisionRecallF1 reports positive-class precision, recall and their
// harmonic mean. Undefined ratios are reported as 0.
func PrecisionRecallF1(scores, labels []float64) (precision, recall, f1 float64, err error) {
	cm, err := Confusion(scores, labels)
	if err != nil {
		return 0, 0, 0, err
	}
	precision, recall, f1 = cm.rates()
	return precision, recall, f1, nil
}

func (c ConfusionMatrix) rates() (precision, recall, f1 float64) {
	if tp := c.TruePositives + c.FalsePositives; tp > 0 {
		precision = float64(c.TruePositives) / float64(tp)
	}
	if ap := c.TruePositives + c.FalseNegatives; ap > 0 {
		recall = float64(c.TruePositives) / float64(ap)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// Evaluate computes AUC and the thresholded metrics in one pass. AUC errors
// (including DegenerateEvaluationError) are returned unchanged.
func Evaluate(scores, labels []float64) (EvaluationResult, error) {
	auc, err := AreaUnderROC(scores, labels)
	if err != nil {
		return EvaluationResult{}, err
	}
	cm, err := Confusion(scores, labels)
	if err != nil {
		return EvaluationResult{}, err
	}

	precision, recall, f1 := cm.rates()
	return EvaluationResult{
		AUC:       auc,
		Accuracy:  float64(cm.TruePositives+cm.TrueNegatives) / float64(cm.Total()),
		Precision: precision,
		Recall:    recall,
		F1:        f1,
		Confusion: cm,
	}, nil
}

func validateScored(scores, labels []float64) error {
	if len(scores) != len(labels) {
		return &ValidationError{
			Field:   "labels",
			Message: "scores and labels length mismatch",
			Value:   map[string]int{"scores": len(scores), "labels": len(labels)},
		}
	}
	for i, s := range scores {
		if math.IsNaN(s) {
			return &ValidationError{Field: "scores", Message: fmt.Sprintf("score at row %d is NaN", i)}
		}
	}
	for i, l := range labels {
		if l != 0 && l != 1 {
			return &ValidationError{
				Field:   "labels",
				Message: fmt.Sprintf("label at row %d is not binary", i),
				Value:   l,
			}
		}
	}
	return nil
}

func countClasses(labels []float64) (positives, negatives int) {
	for _, l := range labels {
		if l == 1 {
			positives++
		} else {
			negatives++
		}
	}
	return positives, negatives
}
