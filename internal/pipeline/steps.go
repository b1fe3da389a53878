package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"churncli/internal/churn"
	"churncli/internal/dataprocessing"
	apperrors "churncli/internal/errors"
	"churncli/internal/exporter"
	"churncli/internal/infrastructure"
	"churncli/pkg/contracts/domain"
)

// Split names recorded on predictions
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

func (r *Runner) defaultSteps() []Step {
	return []Step{
		stepFunc{id: StepLoad, run: r.load},
		stepFunc{id: StepClean, run: r.clean},
		stepFunc{id: StepLabel, run: r.label},
		stepFunc{id: StepSplit, run: r.split},
		stepFunc{id: StepEncode, run: r.encode, skip: r.skipEncode},
		stepFunc{id: StepAssemble, run: r.assemble},
		stepFunc{id: StepFit, run: r.fit},
		stepFunc{id: StepEvaluate, run: r.evaluate},
		stepFunc{id: StepPredict, run: r.predict},
		stepFunc{id: StepAggregate, run: r.aggregate, skip: r.skipAggregate},
		stepFunc{id: StepExport, run: r.export},
		stepFunc{id: StepSummary, run: r.summary},
	}
}

func (r *Runner) load(ctx context.Context, state *RunState) error {
	path, err := r.discovery.ResolveInput(r.paths.ResolveInput(r.cfg.Data.Input))
	if err != nil {
		return err
	}
	state.InputPath = path

	if err := r.validator.ValidateInput(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return err
		}
		return apperrors.NewDataError("invalid input file", err).WithContext("path", path)
	}

	var table *dataprocessing.Table
	if strings.EqualFold(filepath.Ext(path), ".xlsx") && r.cfg.Data.Sheet != "" {
		table, err = r.loader.LoadXLSX(ctx, path, r.cfg.Data.Sheet)
	} else {
		table, err = r.loader.LoadFile(ctx, path)
	}
	if err != nil {
		return err
	}
	if table.Len() == 0 {
		return apperrors.NewDataError("input contains no rows", nil).WithContext("path", path)
	}

	state.Table = table
	state.RowsLoaded = table.Len()
	r.telemetry.Metrics.RecordRows(ctx, StepLoad, table.Len())
	r.logger.InfoContext(ctx, "input loaded",
		slog.String("path", path),
		slog.Int("rows", table.Len()))
	return nil
}

// usedColumns lists every column a run reads
func (r *Runner) usedColumns() []string {
	d := r.cfg.Data
	cols := []string{d.IDColumn, d.LabelSource}
	cols = append(cols, d.Categorical...)
	cols = append(cols, d.Numeric...)
	return cols
}

func (r *Runner) clean(ctx context.Context, state *RunState) error {
	cleaned, dropped := dataprocessing.DropNulls(state.Table, r.usedColumns())
	if cleaned.Len() == 0 {
		return apperrors.NewDataError("no rows left after dropping nulls", nil).
			WithContext("dropped", dropped)
	}

	state.Table = cleaned
	state.RowsDropped = dropped
	r.telemetry.Metrics.RecordRows(ctx, StepClean, cleaned.Len())
	r.logger.InfoContext(ctx, "null rows dropped",
		slog.Int("kept", cleaned.Len()),
		slog.Int("dropped", dropped))
	return nil
}

func (r *Runner) label(ctx context.Context, state *RunState) error {
	d := r.cfg.Data
	labelled, err := dataprocessing.DeriveLabel(state.Table, d.LabelSource, dataprocessing.LabelColumn, d.LabelPositive)
	if err != nil {
		return err
	}
	labels, err := dataprocessing.Labels(labelled, dataprocessing.LabelColumn)
	if err != nil {
		return err
	}

	positives := 0
	for _, l := range labels {
		if l == 1 {
			positives++
		}
	}

	state.Table = labelled
	state.Labels = labels
	r.logger.InfoContext(ctx, "labels derived",
		slog.String("source", d.LabelSource),
		slog.Int("positives", positives),
		slog.Int("negatives", len(labels)-positives))
	return nil
}

func (r *Runner) split(ctx context.Context, state *RunState) error {
	train, test, err := dataprocessing.SplitTrainTest(state.Table.Len(), r.cfg.Data.TestRatio, r.cfg.Data.Seed)
	if err != nil {
		return apperrors.NewDataError("cannot split rows", err)
	}
	state.TrainIdx = train
	state.TestIdx = test
	r.logger.InfoContext(ctx, "train/test split",
		slog.Int("train", len(train)),
		slog.Int("test", len(test)),
		slog.Int64("seed", r.cfg.Data.Seed))
	return nil
}

func (r *Runner) skipEncode(*RunState) string {
	if len(r.cfg.Data.Categorical) == 0 {
		return "no categorical columns configured"
	}
	return ""
}

func (r *Runner) encode(ctx context.Context, state *RunState) error {
	rows := state.Table.Rows()
	fitRows := rows
	if r.cfg.Data.FitEncodersOn == "train" {
		fitRows = rowsAt(rows, state.TrainIdx)
	}

	enc, err := churn.FitEncoder(fitRows, r.cfg.Data.Categorical)
	if err != nil {
		return err
	}
	enc = enc.WithPolicy(churn.UnseenPolicy(r.cfg.Data.UnseenPolicy))

	// Codes are complete before the first transform
	encoded := make([]churn.Row, len(rows))
	for i, row := range rows {
		out, err := enc.Transform(row)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
		encoded[i] = out
	}

	schema := state.Table.Schema()
	for _, col := range enc.IndexColumns() {
		schema = schema.With(dataprocessing.Column{Name: col, Kind: churn.KindInt})
	}

	for _, col := range enc.Columns() {
		if t, ok := enc.Table(col); ok {
			r.logger.DebugContext(ctx, "category codes fitted",
				slog.String("column", col),
				slog.Any("values", t.Values()))
		}
	}

	state.Encoder = enc
	state.Table = dataprocessing.NewTable(schema, encoded)
	r.logger.InfoContext(ctx, "categorical columns encoded",
		slog.Int("columns", len(enc.Columns())),
		slog.String("fit_on", r.cfg.Data.FitEncodersOn),
		slog.Int("fit_rows", len(fitRows)))
	return nil
}

// featureColumns is the assembler order: numeric columns, then category codes
func (r *Runner) featureColumns(state *RunState) []string {
	fields := append([]string(nil), r.cfg.Data.Numeric...)
	if state.Encoder != nil {
		fields = append(fields, state.Encoder.IndexColumns()...)
	}
	return fields
}

func (r *Runner) assemble(ctx context.Context, state *RunState) error {
	fields := r.featureColumns(state)
	vectors, err := churn.NewAssembler(fields).AssembleAll(state.Table.Rows())
	if err != nil {
		return err
	}

	state.Features = fields
	state.Vectors = vectors
	r.telemetry.Metrics.RecordRows(ctx, StepAssemble, len(vectors))
	r.logger.InfoContext(ctx, "feature vectors assembled",
		slog.Int("rows", len(vectors)),
		slog.Any("features", fields))
	return nil
}

func (r *Runner) estimatorConfig() churn.EstimatorConfig {
	m := r.cfg.Model
	return churn.EstimatorConfig{
		MaxIterations:     m.MaxIterations,
		Tolerance:         m.Tolerance,
		GradientTolerance: m.GradientTolerance,
	}
}

func (r *Runner) fit(ctx context.Context, state *RunState) error {
	X := rowsAt(state.Vectors, state.TrainIdx)
	y := rowsAt(state.Labels, state.TrainIdx)
	metrics := r.telemetry.Metrics

	if r.cfg.Search.Enabled {
		s := r.cfg.Search
		result, err := churn.GridSearch(ctx, X, y, churn.SearchConfig{
			Candidates:     s.Candidates,
			KFolds:         s.KFolds,
			Seed:           s.Seed,
			MaxConcurrency: s.MaxConcurrency,
			Estimator:      r.estimatorConfig(),
		}, r.logger)
		if err != nil {
			return err
		}

		metrics.RecordFits(ctx, "cv", len(s.Candidates)*s.KFolds)
		metrics.RecordFits(ctx, "refit", 1)
		for _, c := range result.Candidates {
			metrics.RecordCandidate(ctx, c.Lambda, c.MeanAUC)
		}
		infrastructure.AddSpanEvent(ctx, "lambda.selected",
			attribute.Float64("lambda", result.Lambda),
			attribute.Float64("mean_auc", result.MeanAUC))

		state.Search = result
		state.Model = result.Model
	} else {
		model, err := churn.NewEstimator(r.estimatorConfig(), r.logger).Fit(ctx, X, y, r.cfg.Model.Lambda)
		if err != nil {
			return err
		}
		metrics.RecordFits(ctx, "direct", 1)
		state.Model = model
	}

	if !state.Model.Converged() {
		r.logger.WarnContext(ctx, "optimizer hit the iteration cap",
			slog.Int("iterations", state.Model.Iterations()),
			slog.Float64("objective", state.Model.Objective()))
	}
	r.logger.InfoContext(ctx, "model fitted",
		slog.Float64("lambda", state.Model.Lambda()),
		slog.Bool("converged", state.Model.Converged()),
		slog.Int("iterations", state.Model.Iterations()))
	return nil
}

// evaluateOn scores the given rows with the final model
func (r *Runner) evaluateOn(state *RunState, idx []int) (*churn.EvaluationResult, error) {
	scores, _, err := state.Model.PredictBatch(rowsAt(state.Vectors, idx))
	if err != nil {
		return nil, err
	}
	result, err := churn.Evaluate(scores, rowsAt(state.Labels, idx))
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *Runner) evaluate(ctx context.Context, state *RunState) error {
	training, err := r.evaluateOn(state, state.TrainIdx)
	if err != nil {
		return fmt.Errorf("evaluate training rows: %w", err)
	}
	holdout, err := r.evaluateOn(state, state.TestIdx)
	if err != nil {
		return fmt.Errorf("evaluate holdout rows: %w", err)
	}

	state.Training = training
	state.Holdout = holdout
	r.telemetry.Metrics.RecordEvaluation(ctx, SplitTrain, training.AUC)
	r.telemetry.Metrics.RecordEvaluation(ctx, SplitTest, holdout.AUC)

	r.logger.InfoContext(ctx, "model evaluated",
		slog.Float64("train_auc", training.AUC),
		slog.Float64("test_auc", holdout.AUC),
		slog.Float64("test_accuracy", holdout.Accuracy),
		slog.Float64("test_precision", holdout.Precision),
		slog.Float64("test_recall", holdout.Recall),
		slog.Float64("test_f1", holdout.F1))
	return nil
}

func (r *Runner) predict(ctx context.Context, state *RunState) error {
	scores, labels, err := state.Model.PredictBatch(state.Vectors)
	if err != nil {
		return err
	}

	splits := make([]string, len(scores))
	for i := range splits {
		splits[i] = SplitTrain
	}
	for _, i := range state.TestIdx {
		splits[i] = SplitTest
	}

	rows := state.Table.Rows()
	predictions := make([]domain.Prediction, len(scores))
	for i := range scores {
		p, err := domain.NewPrediction(rows[i][r.cfg.Data.IDColumn].String(), labels[i], scores[i])
		if err != nil {
			return apperrors.NewDataError("invalid prediction record", err).WithContext("row", i)
		}
		predictions[i] = p.WithActual(int(state.Labels[i]), splits[i])
	}

	state.Predictions = predictions
	r.telemetry.Metrics.RecordRows(ctx, StepPredict, len(predictions))
	r.logger.InfoContext(ctx, "rows scored", slog.Int("rows", len(predictions)))
	return nil
}

func (r *Runner) skipAggregate(*RunState) string {
	if len(r.aggregations) == 0 {
		return "no aggregations configured"
	}
	return ""
}

func (r *Runner) aggregate(ctx context.Context, state *RunState) error {
	tables, err := dataprocessing.Aggregate(ctx, state.Table, r.aggregations, r.logger)
	if err != nil {
		return err
	}
	state.Aggregates = tables
	return nil
}

func (r *Runner) export(ctx context.Context, state *RunState) (err error) {
	storageErr := func(msg string, cause error) error {
		if ctx.Err() != nil {
			return cause
		}
		return apperrors.NewStorageError(msg, cause)
	}

	if err := r.validator.ValidateOutputDirectory(r.paths.ReportsDir); err != nil {
		return storageErr("prepare output directory", err)
	}

	sink, err := exporter.NewSink(r.cfg.Output.Formats, r.paths, exporter.Options{
		BOMPrefix: r.cfg.Output.BOMPrefix,
		IDColumn:  r.cfg.Data.IDColumn,
	}, r.logger)
	if err != nil {
		return apperrors.NewConfigError("invalid output configuration", err)
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = storageErr("close outputs", cerr)
		}
		state.Outputs = append(state.Outputs, sink.Outputs()...)
	}()

	if err := sink.WritePredictions(ctx, state.Predictions); err != nil {
		return storageErr("write predictions", err)
	}
	for _, table := range state.Aggregates {
		if err := sink.WriteAggregates(ctx, table); err != nil {
			return storageErr("write aggregate", err)
		}
	}
	return nil
}

func (r *Runner) summary(ctx context.Context, state *RunState) error {
	if path, err := r.telemetry.WriteMetrics(ctx); err != nil {
		r.logger.WarnContext(ctx, "metrics textfile not written", slog.String("error", err.Error()))
	} else if path != "" {
		state.Outputs = append(state.Outputs, path)
	}

	if r.cfg.Output.RunSummary {
		state.Outputs = append(state.Outputs, r.paths.RunSummaryJSON)
	}
	summary := r.buildSummary(state)
	if err := domain.Validate(summary); err != nil {
		return apperrors.NewAppError(apperrors.ErrTypeInternal, "invalid run summary", err)
	}
	state.Summary = summary

	if !r.cfg.Output.RunSummary {
		return nil
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.paths.RunSummaryJSON), 0755); err != nil {
		return apperrors.NewStorageError("create summary directory", err)
	}
	if err := os.WriteFile(r.paths.RunSummaryJSON, data, 0644); err != nil {
		return apperrors.NewStorageError("write run summary", err)
	}

	r.logger.InfoContext(ctx, "run summary written", slog.String("path", r.paths.RunSummaryJSON))
	return nil
}

func (r *Runner) buildSummary(state *RunState) *domain.RunSummary {
	completed := time.Now()
	model := state.Model

	weights := make(map[string]float64, len(state.Features))
	for i, w := range model.Weights() {
		weights[state.Features[i]] = w
	}

	summary := &domain.RunSummary{
		RunID:       state.ID,
		StartedAt:   state.StartedAt,
		CompletedAt: completed,
		Duration:    completed.Sub(state.StartedAt),
		InputPath:   state.InputPath,
		RowsLoaded:  state.RowsLoaded,
		RowsDropped: state.RowsDropped,
		TrainRows:   len(state.TrainIdx),
		TestRows:    len(state.TestIdx),
		Features:    state.Features,
		Model: domain.ModelSummary{
			Lambda:     model.Lambda(),
			Bias:       model.Bias(),
			Weights:    weights,
			Converged:  model.Converged(),
			Iterations: model.Iterations(),
			Objective:  model.Objective(),
		},
		Training: metricsSummary(state.Training, len(state.TrainIdx)),
		Holdout:  metricsSummary(state.Holdout, len(state.TestIdx)),
		Outputs:  append([]string(nil), state.Outputs...),
	}

	if s := state.Search; s != nil {
		candidates := make([]domain.CandidateSummary, len(s.Candidates))
		for i, c := range s.Candidates {
			candidates[i] = domain.CandidateSummary{Lambda: c.Lambda, FoldAUC: c.FoldAUC, MeanAUC: c.MeanAUC}
		}
		summary.CrossValidation = &domain.SearchSummary{
			KFolds:     r.cfg.Search.KFolds,
			Seed:       r.cfg.Search.Seed,
			Selected:   s.Lambda,
			MeanAUC:    s.MeanAUC,
			Candidates: candidates,
		}
	}
	return summary
}

func metricsSummary(e *churn.EvaluationResult, rows int) *domain.MetricsSummary {
	if e == nil {
		return nil
	}
	return &domain.MetricsSummary{
		Rows:      rows,
		AUC:       e.AUC,
		Accuracy:  e.Accuracy,
		Precision: e.Precision,
		Recall:    e.Recall,
		F1:        e.F1,
	}
}
