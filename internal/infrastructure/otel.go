package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"churncli/internal/config"
)

// MeterName is the instrumentation scope for tracer and meter
const MeterName = "churncli"

// Telemetry holds the tracing and metrics providers of one run. Metrics are
// collected on a private Prometheus registry and written to a textfile rather
// than served.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prom.Registry
	Metrics        *PipelineMetrics
	Runtime        *SystemMetrics

	metricsFile string
	traceFile   *os.File
	logger      *slog.Logger
}

// InitializeTelemetry sets up tracing and metrics. When telemetry is disabled
// the returned value is backed by no-op providers so callers need no checks.
func InitializeTelemetry(cfg config.TelemetryConfig, paths *config.Paths, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Telemetry{logger: WithComponent(logger, "telemetry")}

	if !cfg.Enabled {
		t.Tracer = tracenoop.NewTracerProvider().Tracer(MeterName)
		t.Meter = metricnoop.NewMeterProvider().Meter(MeterName)
		return t, t.createInstruments()
	}

	res, err := resource.New(context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(config.AppVersion),
			attribute.String("service.instance.id", generateInstanceID()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	if err := t.initializeTracing(res, paths); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := t.initializeMetrics(res, paths); err != nil {
		t.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	if err := t.createInstruments(); err != nil {
		t.Shutdown(context.Background())
		return nil, err
	}

	t.logger.Info("Telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("trace_file", pathOrNone(t.traceFile)),
		slog.String("metrics_file", t.metricsFile))
	return t, nil
}

// initializeTracing creates a tracer provider; spans are exported only when a
// trace file is configured
func (t *Telemetry) initializeTracing(res *resource.Resource, paths *config.Paths) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	if paths != nil && paths.TraceFile != "" {
		if err := os.MkdirAll(filepath.Dir(paths.TraceFile), 0755); err != nil {
			return fmt.Errorf("failed to create trace directory: %w", err)
		}
		file, err := os.OpenFile(paths.TraceFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open trace file: %w", err)
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(file))
		if err != nil {
			file.Close()
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		t.traceFile = file
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	t.TracerProvider = sdktrace.NewTracerProvider(opts...)
	t.Tracer = t.TracerProvider.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))
	return nil
}

// initializeMetrics wires the OTel Prometheus exporter to a private registry
func (t *Telemetry) initializeMetrics(res *resource.Resource, paths *config.Paths) error {
	t.Registry = prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(t.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.Meter = t.MeterProvider.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))
	if paths != nil {
		t.metricsFile = paths.MetricsFile
	}
	return nil
}

func (t *Telemetry) createInstruments() error {
	metrics, err := CreatePipelineMetrics(t.Meter)
	if err != nil {
		return fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	runtimeMetrics, err := NewSystemMetrics(t.Meter)
	if err != nil {
		return fmt.Errorf("failed to create runtime metrics: %w", err)
	}
	t.Metrics = metrics
	t.Runtime = runtimeMetrics
	return nil
}

// WriteMetrics writes the registry in the node-exporter textfile format. It
// returns the written path, or "" when metrics are disabled.
func (t *Telemetry) WriteMetrics(ctx context.Context) (string, error) {
	if t.Registry == nil || t.metricsFile == "" {
		return "", nil
	}
	t.Runtime.Record(ctx)

	if err := os.MkdirAll(filepath.Dir(t.metricsFile), 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(t.metricsFile, t.Registry); err != nil {
		return "", fmt.Errorf("write metrics textfile: %w", err)
	}

	t.logger.InfoContext(ctx, "Metrics written", slog.String("path", t.metricsFile))
	return t.metricsFile, nil
}

// Shutdown flushes pending spans and releases the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		t.traceFile = nil
	}
	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// Stage is an in-flight pipeline stage span
type Stage struct {
	name    string
	span    trace.Span
	start   time.Time
	metrics *PipelineMetrics
}

// StartStage opens a span for a pipeline stage
func (t *Telemetry) StartStage(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Stage) {
	ctx, span := t.Tracer.Start(ctx, "pipeline."+name,
		trace.WithAttributes(append([]attribute.KeyValue{attribute.String("stage", name)}, attrs...)...))
	return ctx, &Stage{name: name, span: span, start: time.Now(), metrics: t.Metrics}
}

// End closes the span, recording err on it, and observes the stage duration
func (s *Stage) End(ctx context.Context, err error) time.Duration {
	duration := time.Since(s.start)

	status := "success"
	if err != nil {
		status = "failure"
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()

	s.metrics.StageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", s.name),
		attribute.String("status", status),
	))
	return duration
}

// SetAttributes sets attributes on the stage span
func (s *Stage) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// PipelineMetrics holds the run's instruments
type PipelineMetrics struct {
	StageDuration metric.Float64Histogram
	RowsProcessed metric.Int64Counter
	ModelFits     metric.Int64Counter
	CandidateAUC  metric.Float64Histogram
	EvaluationAUC metric.Float64Gauge
	Runs          metric.Int64Counter
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	stageDuration, err := meter.Float64Histogram(
		"churn_stage_duration",
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rowsProcessed, err := meter.Int64Counter(
		"churn_rows_processed",
		metric.WithDescription("Rows handled per pipeline stage"),
	)
	if err != nil {
		return nil, err
	}

	modelFits, err := meter.Int64Counter(
		"churn_model_fits",
		metric.WithDescription("Logistic regression fits performed"),
	)
	if err != nil {
		return nil, err
	}

	candidateAUC, err := meter.Float64Histogram(
		"churn_cv_auc",
		metric.WithDescription("Mean cross-validated AUC per regularization candidate"),
		metric.WithExplicitBucketBoundaries(0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1),
	)
	if err != nil {
		return nil, err
	}

	evaluationAUC, err := meter.Float64Gauge(
		"churn_evaluation_auc",
		metric.WithDescription("AUC of the final model per data split"),
	)
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(
		"churn_runs",
		metric.WithDescription("Pipeline runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		StageDuration: stageDuration,
		RowsProcessed: rowsProcessed,
		ModelFits:     modelFits,
		CandidateAUC:  candidateAUC,
		EvaluationAUC: evaluationAUC,
		Runs:          runs,
	}, nil
}

// RecordRows adds n rows to the stage's counter
func (m *PipelineMetrics) RecordRows(ctx context.Context, stage string, n int) {
	m.RowsProcessed.Add(ctx, int64(n), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordFits adds n model fits of the given kind (cv, refit, direct)
func (m *PipelineMetrics) RecordFits(ctx context.Context, kind string, n int) {
	m.ModelFits.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordCandidate observes one candidate's mean CV AUC
func (m *PipelineMetrics) RecordCandidate(ctx context.Context, lambda, meanAUC float64) {
	m.CandidateAUC.Record(ctx, meanAUC, metric.WithAttributes(attribute.Float64("lambda", lambda)))
}

// RecordEvaluation sets the AUC gauge for a split
func (m *PipelineMetrics) RecordEvaluation(ctx context.Context, split string, auc float64) {
	m.EvaluationAUC.Record(ctx, auc, metric.WithAttributes(attribute.String("split", split)))
}

// RecordRun counts a finished run
func (m *PipelineMetrics) RecordRun(ctx context.Context, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.Runs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// TraceIDFromContext extracts the active span's trace ID for log correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

func pathOrNone(f *os.File) string {
	if f == nil {
		return "none"
	}
	return f.Name()
}
