// Package metrics exposes Prometheus metrics for workflow generation and the
// HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds configuration for the Collector.
type Config struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
	Path      string `yaml:"path" json:"path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Namespace: "workflowgen",
		Path:      "/metrics",
	}
}

// Collector wraps Prometheus metrics for the generator. It owns its registry
// so several collectors can coexist in tests. It implements ai.Recorder.
type Collector struct {
	config   Config
	registry *prometheus.Registry

	GenerationAttempts  *prometheus.CounterVec
	Generations         *prometheus.CounterVec
	ProviderDuration    *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates a Collector with the default configuration.
func New() *Collector {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Collector with its own Prometheus registry.
func NewWithConfig(cfg Config) *Collector {
	reg := prometheus.NewRegistry()
	ns, sub := cfg.Namespace, cfg.Subsystem

	c := &Collector{
		config:   cfg,
		registry: reg,
		GenerationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "generation_attempts_total",
			Help:      "Provider calls made while generating workflows, by outcome",
		}, []string{"provider", "outcome"}),
		Generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "generations_total",
			Help:      "Workflow documents returned, by the provider or heuristic that produced them",
		}, []string{"source"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "provider_call_duration_seconds",
			Help:      "Duration of provider calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"provider"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		c.GenerationAttempts,
		c.Generations,
		c.ProviderDuration,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
	)
	return c
}

// Path returns the configured metrics endpoint path.
func (c *Collector) Path() string { return c.config.Path }

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler returns an HTTP handler that serves Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordAttempt records one provider call and how it ended.
func (c *Collector) RecordAttempt(provider, outcome string, duration time.Duration) {
	c.GenerationAttempts.WithLabelValues(provider, outcome).Inc()
	c.ProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordGeneration records a returned document by source.
func (c *Collector) RecordGeneration(source string) {
	c.Generations.WithLabelValues(source).Inc()
}

// RecordHTTPRequest records an HTTP request metric.
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	c.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Middleware records request counts and latencies. Requests are labelled
// with the matched mux pattern when there is one, so path parameters do not
// explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		c.RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}
