package ai

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/GoCodeAlone/workflowgen/document"
	"github.com/GoCodeAlone/workflowgen/observability/tracing"
)

var errNoNodes = errors.New("workflow has no nodes")

// Attempt outcomes reported to the Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeParse   = "parse_error"
)

// Recorder receives generation metrics. observability/metrics implements it.
type Recorder interface {
	RecordAttempt(provider, outcome string, duration time.Duration)
	RecordGeneration(source string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(string, string, time.Duration) {}
func (nopRecorder) RecordGeneration(string)                     {}

// ProviderOptions configure how the Service calls one provider.
type ProviderOptions struct {
	GenerateOptions
	// Timeout bounds a single call, including time spent waiting for a
	// concurrency slot. Zero means no per-call limit.
	Timeout time.Duration
	// MaxConcurrent caps in-flight calls to the provider across requests.
	// Zero means unlimited.
	MaxConcurrent int
}

type registration struct {
	provider Provider
	opts     ProviderOptions
	slots    *semaphore.Weighted
}

// Attempt records one provider call made while serving a request.
type Attempt struct {
	Provider string        `json:"provider"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Result is a generated document together with the record of how it was
// produced.
type Result struct {
	RequestID string             `json:"requestId"`
	Source    string             `json:"source"`
	Document  *document.Document `json:"document"`
	Attempts  []Attempt          `json:"attempts,omitempty"`
}

// Service generates workflow documents by trying registered providers in
// priority order and falling back to Synthesize when none succeeds.
type Service struct {
	mu        sync.RWMutex
	providers []registration

	logger   *slog.Logger
	recorder Recorder
	tracer   *tracing.GenerationTracer
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithTracerProvider sets the tracer provider spans are created from.
// The global provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tracing.NewGenerationTracer(tp.Tracer(tracing.TracerName))
		}
	}
}

// WithClock sets the clock used when normalizing documents.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a Service with no providers. Until providers are
// registered every request is served by Synthesize.
func NewService(opts ...Option) *Service {
	s := &Service{
		logger:   slog.Default(),
		recorder: nopRecorder{},
		tracer:   tracing.NewGenerationTracer(nil),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registration pairs a provider with the options it is called with.
type Registration struct {
	Provider Provider
	Options  ProviderOptions
}

func newRegistration(p Provider, opts ProviderOptions) registration {
	reg := registration{provider: p, opts: opts}
	if opts.MaxConcurrent > 0 {
		reg.slots = semaphore.NewWeighted(int64(opts.MaxConcurrent))
	}
	return reg
}

// Register appends p to the fallback chain. Providers are tried in the order
// they were registered.
func (s *Service) Register(p Provider, opts ProviderOptions) {
	reg := newRegistration(p, opts)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = append(s.providers, reg)
}

// Replace swaps the whole fallback chain. Requests already running keep the
// chain they started with.
func (s *Service) Replace(regs ...Registration) {
	chain := make([]registration, 0, len(regs))
	for _, r := range regs {
		chain = append(chain, newRegistration(r.Provider, r.Options))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = chain
}

// Providers returns the registered provider names in priority order.
func (s *Service) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for _, r := range s.providers {
		names = append(names, r.provider.Name())
	}
	return names
}

// Availability reports, for every known provider variant and every
// registered provider, whether it is part of the fallback chain.
func (s *Service) Availability() map[string]bool {
	avail := make(map[string]bool, len(KnownProviders))
	for _, name := range KnownProviders {
		avail[name] = false
	}
	for _, name := range s.Providers() {
		avail[name] = true
	}
	return avail
}

func (s *Service) chain() []registration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]registration(nil), s.providers...)
}

// Generate produces a normalized workflow document for the requirement.
//
// The prompt is built once and providers are called one at a time in
// priority order; the first reply that yields a document with at least one
// node wins. Provider and parse failures are logged and skipped. When no
// provider succeeds the document is synthesized from the requirement, so the
// only error returned is the context's, when ctx is done before a document
// is produced.
func (s *Service) Generate(ctx context.Context, bc BusinessContext, requirement string) (*Result, error) {
	chain := s.chain()
	res := &Result{RequestID: uuid.NewString()}
	logger := s.logger.With("request_id", res.RequestID)

	ctx, span := s.tracer.StartGeneration(ctx, res.RequestID, len(chain))
	defer span.End()

	if len(chain) > 0 {
		prompt := BuildPrompt(bc, requirement)
		for _, reg := range chain {
			name := reg.provider.Name()
			start := time.Now()
			doc, err := s.attempt(ctx, reg, prompt)
			elapsed := time.Since(start)
			res.Attempts = append(res.Attempts, newAttempt(name, err, elapsed))
			s.recorder.RecordAttempt(name, outcome(err), elapsed)

			if err == nil {
				return s.finish(span, logger, res, name, doc), nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				logger.Info("generation cancelled", "provider", name, "error", ctxErr)
				s.tracer.RecordError(span, ctxErr, "cancelled")
				return nil, ctxErr
			}
			logger.Warn("provider failed, falling back", "provider", name, "error", err, "duration", elapsed)
		}
	}

	if err := ctx.Err(); err != nil {
		s.tracer.RecordError(span, err, "cancelled")
		return nil, err
	}
	return s.finish(span, logger, res, SourceHeuristic, Synthesize(requirement)), nil
}

func (s *Service) finish(span trace.Span, logger *slog.Logger, res *Result, source string, doc *document.Document) *Result {
	res.Source = source
	res.Document = document.NormalizeAt(doc, s.now())
	s.recorder.RecordGeneration(source)
	s.tracer.EndGeneration(span, source, len(res.Attempts), len(res.Document.Nodes))
	s.tracer.SetSuccess(span)
	logger.Info("workflow generated",
		"source", source,
		"attempts", len(res.Attempts),
		"nodes", len(res.Document.Nodes),
	)
	return res
}

// attempt makes one provider call and extracts a document from the reply.
func (s *Service) attempt(ctx context.Context, reg registration, prompt string) (*document.Document, error) {
	name := reg.provider.Name()
	if reg.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, reg.opts.Timeout)
		defer cancel()
	}
	ctx, span := s.tracer.StartProviderCall(ctx, name, reg.opts.Model)
	defer span.End()

	doc, err := s.call(ctx, reg, prompt)
	if err != nil {
		s.tracer.RecordError(span, err, outcome(err))
		return nil, err
	}
	s.tracer.SetSuccess(span)
	return doc, nil
}

func (s *Service) call(ctx context.Context, reg registration, prompt string) (*document.Document, error) {
	name := reg.provider.Name()
	if reg.slots != nil {
		if err := reg.slots.Acquire(ctx, 1); err != nil {
			return nil, NewProviderError(ctx, name, err)
		}
		defer reg.slots.Release(1)
	}

	raw, err := reg.provider.Generate(ctx, prompt, reg.opts.GenerateOptions)
	if err != nil {
		var pe *ProviderError
		if !errors.As(err, &pe) {
			err = NewProviderError(ctx, name, err)
		}
		return nil, err
	}
	doc, err := ExtractDocument(raw)
	if err != nil {
		return nil, err
	}
	if len(doc.Nodes) == 0 {
		return nil, &ParseError{Err: errNoNodes}
	}
	return doc, nil
}

func newAttempt(provider string, err error, d time.Duration) Attempt {
	a := Attempt{Provider: provider, Duration: d, Err: err}
	if err != nil {
		a.Error = err.Error()
	}
	return a
}

func outcome(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &pe):
		return string(pe.Kind)
	case errors.Is(err, ErrParse):
		return OutcomeParse
	default:
		return string(KindNetwork)
	}
}
