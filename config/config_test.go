package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/workflowgen/ai"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, []string{"anthropic", "openai", "copilot"}, cfg.Providers.Order)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)
	assert.False(t, cfg.Tracing.Enabled())
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromString(t *testing.T) {
	cfg, err := LoadFromString(`
server:
  addr: ":9090"
  rateLimitPerMinute: 30
  shutdownTimeout: 3s
log:
  level: debug
  format: json
providers:
  order: [openai, anthropic]
  anthropic:
    model: claude-3-5-haiku-latest
    timeout: 45s
    disableTools: true
  openai:
    baseURL: https://api.groq.com/openai/v1
    jsonMode: true
    maxConcurrent: 4
tracing:
  endpoint: localhost:4318
  urlPath: /otel/traces
  headers:
    authorization: Bearer collector-token
  sampleRate: 0.25
`)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 30, cfg.Server.RateLimitPerMinute)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins, "unset keys keep defaults")
	assert.Equal(t, "json", cfg.Log.Format)

	assert.Equal(t, []string{"openai", "anthropic"}, cfg.Providers.Order)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Providers.Anthropic.Model)
	assert.Equal(t, 45*time.Second, cfg.Providers.Anthropic.Timeout)
	assert.True(t, cfg.Providers.Anthropic.DisableTools)
	assert.Equal(t, 4096, cfg.Providers.Anthropic.MaxTokens)
	assert.True(t, cfg.Providers.OpenAI.JSONMode)
	assert.Equal(t, 4, cfg.Providers.OpenAI.MaxConcurrent)
	assert.Equal(t, "gpt-4o-mini", cfg.Providers.OpenAI.Model)

	assert.True(t, cfg.Tracing.Enabled())
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRate, 1e-9)
	assert.Equal(t, "workflowgen", cfg.Tracing.ServiceName)
	assert.Equal(t, "/otel/traces", cfg.Tracing.URLPath)
	assert.Equal(t, map[string]string{"authorization": "Bearer collector-token"}, cfg.Tracing.Headers)
}

func TestLoadFromString_Empty(t *testing.T) {
	cfg, err := LoadFromString("  \n")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromString_UnknownKey(t *testing.T) {
	_, err := LoadFromString("server:\n  port: 8080\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
}

func TestLoadFromString_ZeroTemperature(t *testing.T) {
	cfg, err := LoadFromString("providers:\n  openai:\n    temperature: 0\n")
	require.NoError(t, err)

	require.NotNil(t, cfg.Providers.OpenAI.Temperature)
	assert.Zero(t, *cfg.Providers.OpenAI.Temperature)
	opts := cfg.Providers.OpenAI.Options()
	require.NotNil(t, opts.Temperature, "an explicit 0 must reach the provider")
	assert.Zero(t, *opts.Temperature)

	require.NotNil(t, cfg.Providers.Anthropic.Temperature)
	assert.InDelta(t, 0.7, *cfg.Providers.Anthropic.Temperature, 1e-9)
	assert.Nil(t, cfg.Providers.Copilot.Options().Temperature)
}

func TestLoadFromFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "workflowgen.yaml")
	require.NoError(t, os.WriteFile(fp, []byte("server:\n  addr: \":7070\"\n"), 0644))

	cfg, err := LoadFromFile(fp)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Config)
		want   []string
	}{
		"unknown provider": {
			mutate: func(c *Config) { c.Providers.Order = []string{"anthropic", "gemini"} },
			want:   []string{`unknown provider "gemini"`},
		},
		"duplicate provider": {
			mutate: func(c *Config) { c.Providers.Order = []string{"openai", "openai"} },
			want:   []string{`"openai" listed twice`},
		},
		"negative limits": {
			mutate: func(c *Config) {
				c.Server.RateLimitPerMinute = -1
				c.Providers.Copilot.Timeout = -time.Second
			},
			want: []string{"rateLimitPerMinute", "providers.copilot"},
		},
		"bad log settings": {
			mutate: func(c *Config) {
				c.Log.Level = "loud"
				c.Log.Format = "xml"
			},
			want: []string{`log.level "loud"`, `log.format "xml"`},
		},
		"sample rate": {
			mutate: func(c *Config) { c.Tracing.SampleRate = 1.5 },
			want:   []string{"tracing.sampleRate"},
		},
		"empty addr": {
			mutate: func(c *Config) { c.Server.Addr = "" },
			want:   []string{"server.addr is required"},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			for _, w := range tt.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestValidate_ProviderErrorsInKnownOrder(t *testing.T) {
	cfg := Default()
	cfg.Providers.Copilot.MaxTokens = -1
	cfg.Providers.OpenAI.Temperature = ai.Temperature(-0.5)
	cfg.Providers.Anthropic.MaxConcurrent = -2

	for i := 0; i < 10; i++ {
		err := cfg.Validate()
		require.Error(t, err)
		assert.Equal(t,
			"providers.anthropic: limits must not be negative\n"+
				"providers.openai: limits must not be negative\n"+
				"providers.copilot: limits must not be negative",
			err.Error())
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", " sk-oai ")
	t.Setenv("OPENAI_BASE_URL", "https://openrouter.ai/api/v1")
	t.Setenv("COPILOT_CLI_PATH", "/usr/local/bin/copilot")
	t.Setenv("WORKFLOWGEN_ADDR", ":9999")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://otel.example.com:4318/")
	t.Setenv("ANTHROPIC_MODEL", "")

	cfg := Default()
	cfg.Providers.Anthropic.Model = "from-file"
	cfg.ApplyEnv()

	assert.Equal(t, "sk-ant", cfg.Providers.Anthropic.APIKey)
	assert.Equal(t, "from-file", cfg.Providers.Anthropic.Model, "empty variables are ignored")
	assert.Equal(t, "sk-oai", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.Providers.OpenAI.BaseURL)
	assert.Equal(t, "/usr/local/bin/copilot", cfg.Providers.Copilot.CLIPath)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "otel.example.com:4318", cfg.Tracing.Endpoint)
	assert.False(t, cfg.Tracing.Insecure)
}

func TestProviderConfig_Options(t *testing.T) {
	p := ProviderConfig{Model: "m", MaxTokens: 100, Temperature: ai.Temperature(0.3), Timeout: time.Second, MaxConcurrent: 2}
	opts := p.Options()
	assert.Equal(t, "m", opts.Model)
	assert.Equal(t, 100, opts.MaxTokens)
	require.NotNil(t, opts.Temperature)
	assert.InDelta(t, 0.3, *opts.Temperature, 1e-9)
	assert.Equal(t, time.Second, opts.Timeout)
	assert.Equal(t, 2, opts.MaxConcurrent)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
