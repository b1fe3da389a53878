package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"churncli/internal/config"
	apperrors "churncli/internal/errors"
	"churncli/internal/infrastructure"
	"churncli/internal/pipeline"
	"churncli/pkg/contracts"
	"churncli/pkg/contracts/domain"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  = flag.String("config", "", "Path to YAML configuration file")
		inputPath   = flag.String("input", "", "Override the input dataset (CSV or XLSX)")
		formats     = flag.String("formats", "", "Comma-separated output formats (csv,xlsx)")
		noSearch    = flag.Bool("no-search", false, "Fit the configured lambda directly instead of grid search")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return apperrors.ExitOK
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap := apperrors.NewErrorHandler(slog.Default())

	cfg, err := config.Load(*configPath)
	if err != nil {
		return bootstrap.Handle(ctx, apperrors.NewConfigError("load configuration", err))
	}
	if *inputPath != "" {
		cfg.Data.Input = *inputPath
	}
	if *formats != "" {
		cfg.Output.Formats = splitList(*formats)
	}
	if *noSearch {
		cfg.Search.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return bootstrap.Handle(ctx, apperrors.NewConfigError("validate configuration", err))
	}

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return bootstrap.Handle(ctx, apperrors.NewConfigError("resolve paths", err))
	}
	if err := paths.EnsureDirectories(); err != nil {
		return bootstrap.Handle(ctx, apperrors.NewStorageError("create directories", err))
	}

	if cfg.Logging.FilePath != "" && !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.GetLogPath(cfg.Logging.FilePath)
	}
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return bootstrap.Handle(ctx, apperrors.NewConfigError("initialize logger", err))
	}
	defer infrastructure.CloseLogFile()
	paths.LogPathResolution(logger)

	handler := apperrors.NewErrorHandler(logger)

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, paths, logger)
	if err != nil {
		return handler.Handle(ctx, apperrors.NewConfigError("initialize telemetry", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	runner, err := pipeline.NewRunner(cfg, paths, logger, pipeline.WithTelemetry(telemetry))
	if err != nil {
		return handler.Handle(ctx, err)
	}

	logger.Info("starting churn report",
		"version", contracts.Version,
		"input", paths.ResolveInput(cfg.Data.Input),
		"formats", cfg.Output.Formats,
		"steps", len(runner.Steps()),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return handler.Handle(ctx, err)
	}

	logger.Info("churn report completed",
		"run_id", summary.RunID,
		"duration", summary.Duration,
		"outputs", len(summary.Outputs),
	)
	printSummaryStats(summary)
	return apperrors.ExitOK
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printSummaryStats(summary *domain.RunSummary) {
	fmt.Println("\n=== CHURN MODEL SUMMARY ===")
	fmt.Printf("Rows loaded: %d (dropped %d, train %d, test %d)\n",
		summary.RowsLoaded, summary.RowsDropped, summary.TrainRows, summary.TestRows)
	fmt.Printf("Lambda: %g | Converged: %t | Iterations: %d\n",
		summary.Model.Lambda, summary.Model.Converged, summary.Model.Iterations)

	if cv := summary.CrossValidation; cv != nil {
		fmt.Printf("\n=== %d-FOLD CROSS-VALIDATION ===\n", cv.KFolds)
		fmt.Println("Lambda     | Mean AUC")
		fmt.Println("-----------|---------")
		for _, c := range cv.Candidates {
			marker := ""
			if c.Lambda == cv.Selected {
				marker = " *"
			}
			fmt.Printf("%-10g | %8.4f%s\n", c.Lambda, c.MeanAUC, marker)
		}
	}

	fmt.Println("\n=== EVALUATION ===")
	fmt.Println("Split    | Rows  | AUC    | Accuracy | Precision | Recall | F1")
	fmt.Println("---------|-------|--------|----------|-----------|--------|-------")
	printMetrics("train", summary.Training)
	printMetrics("test", summary.Holdout)

	if len(summary.Model.Weights) > 0 {
		names := make([]string, 0, len(summary.Model.Weights))
		for name := range summary.Model.Weights {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("\n=== COEFFICIENTS ===")
		fmt.Printf("%-24s %12.6f\n", "(intercept)", summary.Model.Bias)
		for _, name := range names {
			fmt.Printf("%-24s %12.6f\n", name, summary.Model.Weights[name])
		}
	}

	if len(summary.Outputs) > 0 {
		fmt.Println("\nOutputs:")
		for _, out := range summary.Outputs {
			fmt.Println("  " + out)
		}
	}
}

func printMetrics(split string, m *domain.MetricsSummary) {
	if m == nil {
		return
	}
	fmt.Printf("%-8s | %5d | %6.4f | %8.4f | %9.4f | %6.4f | %6.4f\n",
		split, m.Rows, m.AUC, m.Accuracy, m.Precision, m.Recall, m.F1)
}
