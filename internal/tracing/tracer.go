package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider manages the lifecycle of the OpenTelemetry tracer
type TracerProvider struct {
	tp *sdktrace.TracerProvider
}

// NewTracerProvider creates an OTLP/gRPC tracer provider and installs it
// globally.
func NewTracerProvider(ctx context.Context, serviceName, serviceVersion, otlpEndpoint string) (*TracerProvider, error) {
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(otlpEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return newProvider(serviceName, serviceVersion, sdktrace.WithBatcher(exporter))
}

func newProvider(serviceName, serviceVersion string, opts ...sdktrace.TracerProviderOption) (*TracerProvider, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
			semconv.ServiceNamespaceKey.String("vigilante"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts = append(opts,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return &TracerProvider{tp: tp}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.tp.Shutdown(ctx)
}

// StepTracer wraps the simulation and advisor spans. With no provider
// installed the global no-op tracer makes every call free.
type StepTracer struct {
	tracer trace.Tracer
}

func NewStepTracer(serviceName string) *StepTracer {
	return &StepTracer{tracer: otel.Tracer(serviceName)}
}

// StartRunSpan covers one whole simulation run.
func (st *StepTracer) StartRunSpan(ctx context.Context, runID, csvPath string, points int) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "simulation_run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.csv_path", csvPath),
			attribute.Int("run.points", points),
		),
	)
}

// StartStepSpan covers the evaluation of one index.
func (st *StepTracer) StartStepSpan(ctx context.Context, index int, at time.Time) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "evaluate_step",
		trace.WithAttributes(
			attribute.Int("step.index", index),
			attribute.String("step.time", at.UTC().Format(time.RFC3339)),
		),
	)
}

// StartAdvisorSpan covers one advisor request, retries included.
func (st *StepTracer) StartAdvisorSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return st.tracer.Start(ctx, "advisor_request",
		trace.WithAttributes(
			attribute.String("advisor.provider", provider),
			attribute.String("advisor.model", model),
		),
	)
}

// RecordDecision annotates a step span with the deterministic outcome.
func (st *StepTracer) RecordDecision(span trace.Span, state, source, rule string, velocity float64) {
	span.SetAttributes(
		attribute.String("decision.state", state),
		attribute.String("decision.source", source),
		attribute.String("decision.rule", rule),
		attribute.Float64("decision.vel_mm_hr", velocity),
	)
}

// RecordError records an error on a span
func (st *StepTracer) RecordError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attrs...)
	span.RecordError(err)
}
