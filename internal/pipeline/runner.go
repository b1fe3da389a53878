package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"churncli/internal/config"
	"churncli/internal/dataprocessing"
	apperrors "churncli/internal/errors"
	"churncli/internal/files"
	"churncli/internal/infrastructure"
	"churncli/internal/validation"
	"churncli/pkg/contracts/domain"
)

// Step IDs in execution order
const (
	StepLoad      = "load"
	StepClean     = "clean"
	StepLabel     = "label"
	StepSplit     = "split"
	StepEncode    = "encode"
	StepAssemble  = "assemble"
	StepFit       = "fit"
	StepEvaluate  = "evaluate"
	StepPredict   = "predict"
	StepAggregate = "aggregate"
	StepExport    = "export"
	StepSummary   = "summary"
)

// Step is one unit of pipeline work
type Step interface {
	// ID returns the unique identifier for this step
	ID() string
	// Execute runs the step against the run state
	Execute(ctx context.Context, state *RunState) error
}

// Skipper is implemented by steps that may not apply to a run
type Skipper interface {
	// SkipReason returns a non-empty reason when the step should not run
	SkipReason(state *RunState) string
}

// stepFunc adapts a function to Step
type stepFunc struct {
	id   string
	run  func(ctx context.Context, state *RunState) error
	skip func(state *RunState) string
}

func (s stepFunc) ID() string { return s.id }

func (s stepFunc) Execute(ctx context.Context, state *RunState) error { return s.run(ctx, state) }

func (s stepFunc) SkipReason(state *RunState) string {
	if s.skip == nil {
		return ""
	}
	return s.skip(state)
}

// Runner executes the churn pipeline with an explicit configuration
type Runner struct {
	cfg          *config.Config
	paths        *config.Paths
	logger       *slog.Logger
	telemetry    *infrastructure.Telemetry
	schema       dataprocessing.Schema
	loader       *dataprocessing.Loader
	discovery    *files.Discovery
	validator    *validation.FileValidator
	aggregations []dataprocessing.Aggregation
	steps        []Step
}

// Option customizes a Runner
type Option func(*Runner)

// WithTelemetry records spans and metrics through t
func WithTelemetry(t *infrastructure.Telemetry) Option {
	return func(r *Runner) { r.telemetry = t }
}

// WithSchema replaces the default telco schema
func WithSchema(s dataprocessing.Schema) Option {
	return func(r *Runner) { r.schema = s }
}

// WithAggregations replaces the default aggregate tables
func WithAggregations(a []dataprocessing.Aggregation) Option {
	return func(r *Runner) { r.aggregations = a }
}

// NewRunner validates the configuration against the schema and builds the
// step list
func NewRunner(cfg *config.Config, paths *config.Paths, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil || paths == nil {
		return nil, apperrors.NewConfigError("configuration and paths are required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Runner{
		cfg:          cfg,
		paths:        paths,
		logger:       infrastructure.WithComponent(logger, "pipeline"),
		schema:       dataprocessing.TelcoSchema(),
		aggregations: dataprocessing.DefaultAggregations(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("invalid configuration", err)
	}
	if err := r.checkColumns(); err != nil {
		return nil, err
	}

	if r.telemetry == nil {
		t, err := infrastructure.InitializeTelemetry(config.TelemetryConfig{}, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize telemetry: %w", err)
		}
		r.telemetry = t
	}

	r.loader = dataprocessing.NewLoader(r.schema, logger)
	r.discovery = files.NewDiscovery(paths.DataDir)
	r.validator = validation.NewFileValidator(r.logger)
	r.steps = r.defaultSteps()
	return r, nil
}

// checkColumns ensures every configured column exists in the schema
func (r *Runner) checkColumns() error {
	d := r.cfg.Data
	check := func(role, col string) error {
		if !r.schema.Has(col) {
			return apperrors.NewConfigError("configured column is not in the input schema", nil).
				WithContext("role", role).
				WithContext("column", col)
		}
		return nil
	}

	if err := check("id", d.IDColumn); err != nil {
		return err
	}
	if err := check("label_source", d.LabelSource); err != nil {
		return err
	}
	for _, c := range d.Categorical {
		if err := check("categorical", c); err != nil {
			return err
		}
	}
	for _, c := range d.Numeric {
		if err := check("numeric", c); err != nil {
			return err
		}
	}
	for _, a := range r.aggregations {
		if err := domain.Validate(a); err != nil {
			return apperrors.NewConfigError("invalid aggregation", err).WithContext("aggregation", a.Name)
		}
		if err := check("aggregation_key", a.Key); err != nil {
			return err
		}
		if a.Value != dataprocessing.LabelColumn {
			if err := check("aggregation_value", a.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Steps returns the step IDs in execution order
func (r *Runner) Steps() []string {
	ids := make([]string, len(r.steps))
	for i, s := range r.steps {
		ids[i] = s.ID()
	}
	return ids
}

// Run executes every step in order and returns the run summary. The returned
// error is an *errors.AppError carrying the failing step in its context.
func (r *Runner) Run(ctx context.Context) (*domain.RunSummary, error) {
	state, err := r.RunState(ctx)
	if err != nil {
		return nil, err
	}
	return state.Summary, nil
}

// RunState is Run returning the full state, for callers that need the
// intermediate results
func (r *Runner) RunState(ctx context.Context) (*RunState, error) {
	ctx, runID := infrastructure.EnsureRunID(ctx)
	state := NewRunState(runID)
	for _, s := range r.steps {
		state.Steps = append(state.Steps, NewStepState(s.ID()))
	}

	ctx, root := r.telemetry.StartStage(ctx, "run", attribute.String("run.id", runID))
	r.logger.InfoContext(ctx, "pipeline started",
		slog.Int("steps", len(r.steps)),
		slog.String("input", r.cfg.Data.Input),
		slog.Bool("search_enabled", r.cfg.Search.Enabled))

	err := r.execute(ctx, state)
	root.End(ctx, err)
	r.telemetry.Metrics.RecordRun(ctx, err)
	if err != nil {
		return state, err
	}

	r.logger.InfoContext(ctx, "pipeline completed",
		slog.Duration("duration", time.Since(state.StartedAt)),
		slog.Int("outputs", len(state.Outputs)))
	return state, nil
}

func (r *Runner) execute(ctx context.Context, state *RunState) error {
	for i, step := range r.steps {
		st := state.Steps[i]

		if err := ctx.Err(); err != nil {
			st.Fail(err)
			return r.fail(ctx, step.ID(), err)
		}

		if sk, ok := step.(Skipper); ok {
			if reason := sk.SkipReason(state); reason != "" {
				st.Skip(reason)
				r.logger.InfoContext(ctx, "step skipped",
					slog.String("step", step.ID()),
					slog.String("reason", reason))
				continue
			}
		}

		st.Start()
		stepCtx, stage := r.telemetry.StartStage(ctx, step.ID())
		r.logger.DebugContext(stepCtx, "step started", slog.String("step", step.ID()))

		err := step.Execute(stepCtx, state)
		duration := stage.End(stepCtx, err)
		if err != nil {
			st.Fail(err)
			return r.fail(stepCtx, step.ID(), err)
		}

		st.Complete()
		r.logger.InfoContext(stepCtx, "step completed",
			slog.String("step", step.ID()),
			slog.Duration("duration", duration))
	}
	return nil
}

// fail classifies err and tags it with the failing step
func (r *Runner) fail(ctx context.Context, step string, err error) error {
	appErr := apperrors.Classify(err).WithContext("step", step)
	r.logger.ErrorContext(ctx, "step failed",
		slog.String("step", step),
		slog.String("error_type", string(appErr.Type)),
		slog.String("error", err.Error()))
	return appErr
}
