// Package churn implements the feature-encoding, model-fitting and
// hyperparameter-search core of the customer churn pipeline.
//
// # Core Components
//
// The package is organized leaf-first:
//
//   - encoder.go: CategoricalEncoder, frequency-ordered category codes per column
//   - assembler.go: FeatureAssembler, fixed-order feature vectors from typed rows
//   - logistic.go: LogisticRegressionEstimator, L2-regularized Newton (IRLS) fit
//   - evaluate.go: BinaryClassificationEvaluator, rank-based ROC AUC plus
//     thresholded accuracy / precision / recall / F1
//   - crossval.go: CrossValidatedGridSearch over the regularization strength
//   - errors.go: the error taxonomy surfaced to pipeline callers
//
// # Usage Example
//
//	enc, err := FitEncoder(rows, []string{"Contract", "InternetService"})
//	if err != nil {
//	    return err
//	}
//	asm := NewAssembler([]string{"tenure", "MonthlyCharges", "Contract_index"})
//
//	var X []FeatureVector
//	for _, row := range rows {
//	    encoded, err := enc.Transform(row)
//	    if err != nil {
//	        return err
//	    }
//	    fv, err := asm.Assemble(encoded)
//	    if err != nil {
//	        return err
//	    }
//	    X = append(X, fv)
//	}
//
//	result, err := GridSearch(ctx, X, labels, DefaultSearchConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	score, label, err := result.Model.Predict(X[0])
//
// # Mathematical Foundation
//
// The estimator minimizes the L2-regularized negative log-likelihood
//
//	Σᵢ [ log(1+exp(zᵢ)) − yᵢ·zᵢ ] + λ·‖w‖²,   zᵢ = w·xᵢ + b
//
// The intercept b is not penalized. Features are passed through in raw units;
// there is no scaling step, so wide-magnitude columns share one coefficient
// space. Newton steps are invariant to that scaling, gradient steps are not,
// which is why the optimizer is second order.
//
// # Determinism
//
// Fold assignment depends only on the labels and SearchConfig.Seed. Fold fits
// may run concurrently but write into a pre-sized result table, so the
// selected λ and its mean AUC are identical across runs on identical input.
//
// # Leakage
//
// Category codes are ordered by frequency over whatever rows the caller passes
// to FitEncoder. The pipeline fits them on the full dataset by default, which
// means held-out folds influence code ordering. This mirrors the baseline
// behaviour and is configurable in the pipeline (fit on the training split).
package churn
