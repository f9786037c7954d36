package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of generation spans.
const TracerName = "workflowgen/ai"

// Span names.
const (
	SpanGenerate     = "ai.generate"
	SpanProviderCall = "ai.provider.generate"
)

// GenerationTracer creates spans around a generation request and the
// provider calls made while serving it.
type GenerationTracer struct {
	tracer trace.Tracer
}

// NewGenerationTracer creates a GenerationTracer. If tracer is nil, the
// global tracer provider is used.
func NewGenerationTracer(tracer trace.Tracer) *GenerationTracer {
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(TracerName)
	}
	return &GenerationTracer{tracer: tracer}
}

// StartGeneration begins the root span for one generation request.
func (g *GenerationTracer) StartGeneration(ctx context.Context, requestID string, providers int) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, SpanGenerate,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.Int("providers.count", providers),
		),
	)
}

// StartProviderCall begins a child span for one provider attempt.
func (g *GenerationTracer) StartProviderCall(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return g.tracer.Start(ctx, SpanProviderCall,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("provider.name", provider),
			attribute.String("provider.model", model),
		),
	)
}

// EndGeneration annotates the root span with how the document was produced.
func (g *GenerationTracer) EndGeneration(span trace.Span, source string, attempts, nodes int) {
	span.SetAttributes(
		attribute.String("generation.source", source),
		attribute.Int("generation.attempts", attempts),
		attribute.Int("document.nodes", nodes),
	)
}

// RecordError records err on span and marks it failed with description.
func (g *GenerationTracer) RecordError(span trace.Span, err error, description string) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, description)
	}
}

// SetSuccess marks a span as successful.
func (g *GenerationTracer) SetSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
