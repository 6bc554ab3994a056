package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"sdgwater/internal/config"
	"sdgwater/internal/infrastructure"
	"sdgwater/internal/operations"
	"sdgwater/internal/validation"
)

// Options controls where a run writes besides its files
type Options struct {
	// Stdout receives the console report. Nil means os.Stdout.
	Stdout io.Writer
	// LogOutput receives console logs. Nil means os.Stderr so the report
	// on stdout stays clean.
	LogOutput io.Writer
}

// Application represents one configured pipeline run
type Application struct {
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Manager   *operations.Manager

	logger    *infrastructure.Logger
	startTime time.Time
}

// NewApplication wires logging, paths, telemetry and the pipeline steps
func NewApplication(cfg *config.Config, opts Options) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	start := time.Now()

	paths, err := config.GetPaths(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	appLogger, err := infrastructure.NewLogger(cfg.Logging, opts.LogOutput)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := appLogger.Logger

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("datasets", len(cfg.Datasets)))
	paths.LogPathResolution(logger)

	fv := validation.NewFileValidator(logger)
	if err := fv.ValidateInputDirectory(paths.InputDir); err != nil {
		appLogger.Close()
		return nil, err
	}
	if err := fv.ValidateOutputDirectory(paths.OutputDir); err != nil {
		appLogger.Close()
		return nil, err
	}

	for _, ds := range cfg.Datasets {
		if !config.FileExists(paths.DatasetPath(ds)) {
			logger.Warn("Dataset file not found",
				slog.String("dataset", ds.Name),
				slog.String("path", paths.DatasetPath(ds)))
		}
	}

	tel, err := infrastructure.InitTelemetry(cfg.Telemetry, paths.TraceFile, logger)
	if err != nil {
		appLogger.Close()
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	tracer := operations.NewOperationTracer(tel)
	manager := operations.NewManager(nil, tracer, logger)
	if err := operations.RegisterPipeline(manager, operations.PipelineOptions{
		Config: cfg,
		Paths:  paths,
		Logger: logger,
		Tracer: tracer,
		Stdout: opts.Stdout,
	}); err != nil {
		_ = tel.Shutdown(context.Background())
		appLogger.Close()
		return nil, fmt.Errorf("failed to register pipeline: %w", err)
	}

	return &Application{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: tel,
		Manager:   manager,
		logger:    appLogger,
		startTime: start,
	}, nil
}

// Run executes the pipeline once. A trace ID already on ctx becomes the run
// ID; otherwise one is generated. The returned response is non-nil whenever
// the steps were attempted, including on failure.
func (a *Application) Run(ctx context.Context) (*operations.OperationResponse, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)

	state := operations.NewOperationState(runID)
	resp, err := a.Manager.Execute(ctx, state)

	stats := infrastructure.CollectRuntimeStats(a.startTime)
	if recErr := infrastructure.RecordRuntimeStats(ctx, a.Telemetry.Meter, stats); recErr != nil {
		a.Logger.WarnContext(ctx, "Failed to record runtime stats", slog.String("error", recErr.Error()))
	}
	if werr := a.Telemetry.WriteTextfile(a.Paths.MetricsTextfile); werr != nil {
		a.Logger.WarnContext(ctx, "Failed to write metrics textfile",
			slog.String("path", a.Paths.MetricsTextfile),
			slog.String("error", werr.Error()))
	}

	if err != nil {
		infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Pipeline failed",
			slog.Any("runtime", stats))
		return resp, err
	}

	a.Logger.InfoContext(ctx, "Pipeline completed",
		slog.String("output", a.Paths.OutputCSV),
		slog.Any("failed_datasets", resp.FailedDatasets),
		slog.Any("runtime", stats))
	return resp, nil
}

// Shutdown flushes telemetry and closes the log file
func (a *Application) Shutdown(ctx context.Context) error {
	var errs []error
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.logger.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	return errors.Join(errs...)
}

// Run builds an application from cfg, runs the pipeline once and shuts
// the application down.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*operations.OperationResponse, error) {
	application, err := NewApplication(cfg, opts)
	if err != nil {
		return nil, err
	}

	resp, runErr := application.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		application.Logger.Warn("Shutdown error", slog.String("error", err.Error()))
	}
	return resp, runErr
}
