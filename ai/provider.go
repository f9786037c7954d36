package ai

import (
	"context"
	"errors"
	"fmt"
)

// Provider is an external LLM backend able to turn a prompt into raw text.
// Implementations return the model's reply verbatim after unwrapping their
// API envelope; they do not parse or validate it.
type Provider interface {
	// Name returns the provider's identifier (e.g., "anthropic", "openai").
	Name() string

	// Generate sends prompt to the model and returns the raw reply text.
	// Failures are reported as *ProviderError.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions are the per-call model parameters. Zero values leave the
// choice to the provider; a nil Temperature is not sent, while a pointer to
// 0 requests deterministic sampling.
type GenerateOptions struct {
	Model       string   `json:"model" yaml:"model"`
	MaxTokens   int      `json:"maxTokens" yaml:"maxTokens"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature"`
}

// Temperature returns a pointer to v for use in GenerateOptions.
func Temperature(v float64) *float64 { return &v }

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindStatus  ErrorKind = "status"
	KindTimeout ErrorKind = "timeout"
)

var (
	// ErrProvider matches every *ProviderError with errors.Is.
	ErrProvider = errors.New("provider error")
	// ErrParse matches every *ParseError with errors.Is.
	ErrParse = errors.New("parse error")
)

// ProviderError reports a transport-level or non-success-status failure of
// a provider call.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Kind == KindStatus && e.Err != nil:
		return fmt.Sprintf("%s: API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	case e.Kind == KindStatus:
		return fmt.Sprintf("%s: API error (status %d)", e.Provider, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s failure: %v", e.Provider, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s failure", e.Provider, e.Kind)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is reports whether target is ErrProvider.
func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

// NewProviderError classifies err from a call made under ctx. Deadline
// expiry of ctx is a timeout; anything else is a network failure.
func NewProviderError(ctx context.Context, provider string, err error) *ProviderError {
	kind := KindNetwork
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// NewStatusError reports a non-2xx response. body is included, truncated.
func NewStatusError(provider string, status int, body []byte) *ProviderError {
	const maxBody = 512
	msg := string(body)
	if len(msg) > maxBody {
		msg = msg[:maxBody] + "..."
	}
	var err error
	if msg != "" {
		err = errors.New(msg)
	}
	return &ProviderError{Provider: provider, Kind: KindStatus, StatusCode: status, Err: err}
}

// ErrNoObject is the ParseError cause when a reply contains no JSON object
// at all.
var ErrNoObject = errors.New("no JSON object found in response")

// ParseError reports that a provider's reply did not yield a usable
// workflow document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil || errors.Is(e.Err, ErrNoObject) {
		return ErrNoObject.Error()
	}
	return "invalid workflow JSON: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
