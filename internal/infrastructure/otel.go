package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"sdgwater/internal/config"
	apperrors "sdgwater/internal/errors"
)

const (
	// MeterName is the instrumentation scope for tracer and meter
	MeterName = "sdgwater"
)

// Telemetry holds the OpenTelemetry providers of one run.
// Providers are owned by the run and never installed globally.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Registry       *prometheus.Registry
	Metrics        *PipelineMetrics
	Logger         *slog.Logger

	traceOut io.Closer
}

// InitTelemetry sets up tracing and metrics. traceFile is the resolved
// destination for the stdout exporter; empty means stderr so the console
// report on stdout stays readable.
func InitTelemetry(cfg config.TelemetryConfig, traceFile string, logger *slog.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tel := &Telemetry{Logger: logger}

	if err := tel.initializeTracing(ctx, cfg, traceFile, res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := tel.initializeMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.DebugContext(ctx, "Telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter))

	return tel, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg config.TelemetryConfig) (*resource.Resource, error) {
	service := cfg.ServiceName
	if service == "" {
		service = config.AppName
	}
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(service),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func (t *Telemetry) initializeTracing(ctx context.Context, cfg config.TelemetryConfig, traceFile string, res *resource.Resource) error {
	switch cfg.TraceExporter {
	case "", "none":
		t.Tracer = noop.NewTracerProvider().Tracer(MeterName)
		return nil
	case "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	var w io.Writer = os.Stderr
	if traceFile != "" {
		f, err := os.OpenFile(traceFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.FilePermissions)
		if err != nil {
			return fmt.Errorf("failed to open trace file: %w", err)
		}
		t.traceOut = f
		w = f
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.TracerProvider = tp
	t.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(config.AppVersion))

	t.Logger.DebugContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.String("file", traceFile))
	return nil
}

// initializeMetrics wires an OpenTelemetry meter to a private Prometheus registry
func (t *Telemetry) initializeMetrics(res *resource.Resource) error {
	t.Registry = prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(t.Registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	t.MeterProvider = mp
	t.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(config.AppVersion))

	metrics, err := CreatePipelineMetrics(t.Meter)
	if err != nil {
		return err
	}
	t.Metrics = metrics
	return nil
}

// PipelineMetrics holds the batch job's instruments
type PipelineMetrics struct {
	RowsLoaded      metric.Int64Counter
	RowsWritten     metric.Int64Counter
	StepDuration    metric.Float64Histogram
	StepErrors      metric.Int64Counter
	DatasetFailures metric.Int64Counter
}

// CreatePipelineMetrics creates the pipeline instruments on meter
func CreatePipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	rowsLoaded, err := meter.Int64Counter(
		"sdgwater_rows_loaded",
		metric.WithDescription("Rows read from each input dataset"),
	)
	if err != nil {
		return nil, err
	}

	rowsWritten, err := meter.Int64Counter(
		"sdgwater_rows_written",
		metric.WithDescription("Rows written to the output file"),
	)
	if err != nil {
		return nil, err
	}

	stepDuration, err := meter.Float64Histogram(
		"sdgwater_step_duration",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stepErrors, err := meter.Int64Counter(
		"sdgwater_step_errors",
		metric.WithDescription("Pipeline steps that failed"),
	)
	if err != nil {
		return nil, err
	}

	datasetFailures, err := meter.Int64Counter(
		"sdgwater_dataset_failures",
		metric.WithDescription("Datasets that could not be loaded or reshaped"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RowsLoaded:      rowsLoaded,
		RowsWritten:     rowsWritten,
		StepDuration:    stepDuration,
		StepErrors:      stepErrors,
		DatasetFailures: datasetFailures,
	}, nil
}

// Metric label keys. Prometheus text parsers before the UTF-8 name scheme
// reject dotted label names, so these use underscores.
const (
	labelStepID    = "step_id"
	labelErrorType = "error_type"
	labelDataset   = "dataset"
	labelStatus    = "status"
)

// RecordStepMetrics records duration and outcome of one step
func RecordStepMetrics(ctx context.Context, metrics *PipelineMetrics, stepID string, duration time.Duration, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(labelStepID, stepID)}

	status := attribute.String(labelStatus, "success")
	if err != nil {
		status = attribute.String(labelStatus, "failure")
		errorAttrs := append(attrs, attribute.String(labelErrorType, errorType(err)))
		metrics.StepErrors.Add(ctx, 1, metric.WithAttributes(errorAttrs...))
	}
	durationAttrs := append(attrs, status)
	metrics.StepDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(durationAttrs...))
}

// RecordDatasetLoaded counts the rows read for a dataset
func RecordDatasetLoaded(ctx context.Context, metrics *PipelineMetrics, dataset string, rows int) {
	if metrics == nil {
		return
	}
	metrics.RowsLoaded.Add(ctx, int64(rows), metric.WithAttributes(attribute.String(labelDataset, dataset)))
}

// RecordDatasetFailure counts a dataset that was nulled out
func RecordDatasetFailure(ctx context.Context, metrics *PipelineMetrics, dataset string, err error) {
	if metrics == nil {
		return
	}
	metrics.DatasetFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String(labelDataset, dataset),
		attribute.String(labelErrorType, errorType(err)),
	))
}

// RecordRowsWritten counts rows written to the output file
func RecordRowsWritten(ctx context.Context, metrics *PipelineMetrics, rows int) {
	if metrics == nil {
		return
	}
	metrics.RowsWritten.Add(ctx, int64(rows))
}

// errorType labels an error by its AppError type when it has one
func errorType(err error) string {
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return fmt.Sprintf("%T", err)
}

// WriteTextfile dumps the registry in the node_exporter textfile format
func (t *Telemetry) WriteTextfile(path string) error {
	if path == "" || t.Registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown flushes and shuts down the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if t.traceOut != nil {
		if err := t.traceOut.Close(); err != nil {
			errs = append(errs, fmt.Errorf("trace file close: %w", err))
		}
		t.traceOut = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}
