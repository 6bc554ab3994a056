package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"sdgwater/internal/infrastructure"
)

// OperationTracer provides span and metric instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer builds a tracer from the run's telemetry; nil gives
// a no-op tracer without metrics
func NewOperationTracer(tel *infrastructure.Telemetry) *OperationTracer {
	if tel == nil || tel.Tracer == nil {
		return &OperationTracer{tracer: noop.NewTracerProvider().Tracer(infrastructure.MeterName)}
	}
	return &OperationTracer{tracer: tel.Tracer, metrics: tel.Metrics}
}

// Tracer exposes the underlying tracer for child spans
func (ot *OperationTracer) Tracer() trace.Tracer {
	return ot.tracer
}

// Metrics exposes the pipeline instruments, possibly nil
func (ot *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	return ot.metrics
}

// TraceOperationExecution creates the root span of a run
func (ot *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("operation.id", operationID)),
	)
}

// TraceStepExecution creates a span for one step, named by its ID
func (ot *OperationTracer) TraceStepExecution(ctx context.Context, operationID string, step Step) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, step.ID(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// RecordStepCompletion ends a step span and records its metrics
func (ot *OperationTracer) RecordStepCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, fmt.Sprintf("step %s completed", stepID))
	}
	span.End()

	infrastructure.RecordStepMetrics(ctx, ot.metrics, stepID, duration, err)
}

// RecordOperationCompletion ends the root span
func (ot *OperationTracer) RecordOperationCompletion(span trace.Span, status OperationStatus, err error) {
	span.SetAttributes(attribute.String("operation.status", string(status)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
