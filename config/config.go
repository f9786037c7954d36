// Package config loads the generator's YAML configuration and applies
// environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/workflowgen/ai"
	"github.com/GoCodeAlone/workflowgen/observability/metrics"
	"github.com/GoCodeAlone/workflowgen/observability/tracing"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Providers ProvidersConfig `json:"providers" yaml:"providers"`
	Tracing   tracing.Config  `json:"tracing" yaml:"tracing"`
	Metrics   metrics.Config  `json:"metrics" yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr               string        `json:"addr" yaml:"addr"`
	CORSOrigins        []string      `json:"corsOrigins" yaml:"corsOrigins"`
	RateLimitPerMinute int           `json:"rateLimitPerMinute" yaml:"rateLimitPerMinute"`
	ShutdownTimeout    time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// ProviderConfig holds the settings shared by every provider variant.
type ProviderConfig struct {
	APIKey        string        `json:"-" yaml:"apiKey"`
	Model         string        `json:"model" yaml:"model"`
	MaxTokens     int           `json:"maxTokens" yaml:"maxTokens"`
	Temperature   *float64      `json:"temperature,omitempty" yaml:"temperature"`
	Timeout       time.Duration `json:"timeout" yaml:"timeout"`
	MaxConcurrent int           `json:"maxConcurrent" yaml:"maxConcurrent"`
}

// Options converts the shared settings into service registration options.
func (p ProviderConfig) Options() ai.ProviderOptions {
	opts := ai.ProviderOptions{
		GenerateOptions: ai.GenerateOptions{
			Model:     p.Model,
			MaxTokens: p.MaxTokens,
		},
		Timeout:       p.Timeout,
		MaxConcurrent: p.MaxConcurrent,
	}
	if p.Temperature != nil {
		opts.Temperature = ai.Temperature(*p.Temperature)
	}
	return opts
}

// AnthropicConfig configures the primary provider.
type AnthropicConfig struct {
	ProviderConfig `yaml:",inline"`
	BaseURL        string `json:"baseURL" yaml:"baseURL"`
	DisableTools   bool   `json:"disableTools" yaml:"disableTools"`
}

// OpenAIConfig configures the fast OpenAI-compatible provider.
type OpenAIConfig struct {
	ProviderConfig `yaml:",inline"`
	BaseURL        string `json:"baseURL" yaml:"baseURL"`
	JSONMode       bool   `json:"jsonMode" yaml:"jsonMode"`
}

// CopilotConfig configures the Copilot provider. It is only used when
// CLIPath is set.
type CopilotConfig struct {
	ProviderConfig `yaml:",inline"`
	CLIPath        string `json:"cliPath" yaml:"cliPath"`
}

// ProvidersConfig lists the providers in fallback order.
type ProvidersConfig struct {
	Order     []string        `json:"order" yaml:"order"`
	Anthropic AnthropicConfig `json:"anthropic" yaml:"anthropic"`
	OpenAI    OpenAIConfig    `json:"openai" yaml:"openai"`
	Copilot   CopilotConfig   `json:"copilot" yaml:"copilot"`
}

// Get returns the shared settings of the named provider, or the zero value
// for an unknown name.
func (p ProvidersConfig) Get(name string) ProviderConfig {
	switch name {
	case ai.ProviderAnthropic:
		return p.Anthropic.ProviderConfig
	case ai.ProviderOpenAI:
		return p.OpenAI.ProviderConfig
	case ai.ProviderCopilot:
		return p.Copilot.ProviderConfig
	}
	return ProviderConfig{}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8080",
			CORSOrigins:        []string{"*"},
			RateLimitPerMinute: 10,
			ShutdownTimeout:    10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Providers: ProvidersConfig{
			Order: slices.Clone(ai.KnownProviders),
			Anthropic: AnthropicConfig{ProviderConfig: ProviderConfig{
				MaxTokens:     4096,
				Temperature:   ai.Temperature(0.7),
				Timeout:       60 * time.Second,
				MaxConcurrent: 8,
			}},
			OpenAI: OpenAIConfig{ProviderConfig: ProviderConfig{
				Model:         "gpt-4o-mini",
				MaxTokens:     4096,
				Temperature:   ai.Temperature(0.7),
				Timeout:       30 * time.Second,
				MaxConcurrent: 16,
			}},
			Copilot: CopilotConfig{ProviderConfig: ProviderConfig{
				Timeout:       90 * time.Second,
				MaxConcurrent: 2,
			}},
		},
		Tracing: tracing.DefaultConfig(),
		Metrics: metrics.DefaultConfig(),
	}
}

// LoadFromFile loads a configuration from a YAML file. Keys missing from the
// file keep their defaults.
func LoadFromFile(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadFromString loads a configuration from YAML text.
func LoadFromString(s string) (*Config, error) {
	cfg, err := parse([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("server.rateLimitPerMinute must not be negative"))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdownTimeout must not be negative"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	seen := make(map[string]bool, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		if !slices.Contains(ai.KnownProviders, name) {
			errs = append(errs, fmt.Errorf("providers.order: unknown provider %q", name))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("providers.order: %q listed twice", name))
		}
		seen[name] = true
	}
	for _, name := range ai.KnownProviders {
		p := c.Providers.Get(name)
		if p.MaxTokens < 0 || p.Timeout < 0 || p.MaxConcurrent < 0 || (p.Temperature != nil && *p.Temperature < 0) {
			errs = append(errs, fmt.Errorf("providers.%s: limits must not be negative", name))
		}
	}

	if r := c.Tracing.SampleRate; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("tracing.sampleRate %v must be between 0 and 1", r))
	}
	return errors.Join(errs...)
}

// ParseLevel converts a level name into a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
