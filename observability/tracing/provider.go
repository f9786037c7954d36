package tracing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrDisabled is returned by NewProvider when no endpoint is configured.
var ErrDisabled = errors.New("tracing: no OTLP endpoint configured")

// Config selects where generation traces are exported. Tracing is off when
// Endpoint is empty.
type Config struct {
	// Endpoint is the collector as host:port, or a full URL such as
	// https://otel.example.com:4318/v1/traces. A URL's scheme decides TLS and
	// overrides Insecure.
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	// URLPath replaces the default /v1/traces path for host:port endpoints.
	URLPath string `json:"urlPath,omitempty" yaml:"urlPath"`
	// Headers are sent with every export, typically collector credentials.
	Headers map[string]string `json:"-" yaml:"headers"`
	// ServiceName and ServiceVersion identify this process in traces.
	ServiceName    string `json:"serviceName" yaml:"serviceName"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion"`
	Insecure       bool   `json:"insecure" yaml:"insecure"`
	// SampleRate is the fraction of root generations traced. Values outside
	// (0, 1) trace everything.
	SampleRate float64 `json:"sampleRate" yaml:"sampleRate"`
}

// Enabled reports whether an exporter endpoint is configured.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// DefaultConfig returns a disabled Config with the remaining defaults set.
func DefaultConfig() Config {
	return Config{
		ServiceName: "workflowgen",
		Insecure:    true,
		SampleRate:  1.0,
	}
}

// exporterOptions translates cfg into OTLP/HTTP exporter options.
func exporterOptions(cfg Config) []otlptracehttp.Option {
	var opts []otlptracehttp.Option
	if strings.Contains(cfg.Endpoint, "://") {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	} else {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if cfg.URLPath != "" {
			opts = append(opts, otlptracehttp.WithURLPath(cfg.URLPath))
		}
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return opts
}

// Provider owns the SDK tracer provider that generation and HTTP spans are
// exported through.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider builds the exporting tracer provider for cfg and installs it,
// with W3C trace context and baggage propagation, as the process default.
// The exporter connects lazily; an unreachable collector only loses spans.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	exporter, err := otlptracehttp.New(ctx, exporterOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	attrs := []resource.Option{
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName)),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersionKey.String(cfg.ServiceVersion)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{tp: tp}, nil
}

// Sampler returns the sampler for rate. Remote parent decisions are honoured
// so a sampled caller keeps its generation spans.
func Sampler(rate float64) sdktrace.Sampler {
	if rate <= 0 || rate >= 1.0 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// TracerProvider returns the underlying SDK provider, for ai.WithTracerProvider.
func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	return p.tp
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
