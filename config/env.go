package config

import (
	"os"
	"strings"
)

// ApplyEnv overrides file values with the provider credentials and endpoints
// found in the environment. Unset variables leave the value untouched.
func (c *Config) ApplyEnv() {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	set(&c.Server.Addr, "WORKFLOWGEN_ADDR")
	set(&c.Log.Level, "WORKFLOWGEN_LOG_LEVEL")

	set(&c.Providers.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	set(&c.Providers.Anthropic.Model, "ANTHROPIC_MODEL")
	set(&c.Providers.Anthropic.BaseURL, "ANTHROPIC_BASE_URL")

	set(&c.Providers.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Providers.OpenAI.Model, "OPENAI_MODEL")
	set(&c.Providers.OpenAI.BaseURL, "OPENAI_BASE_URL")

	set(&c.Providers.Copilot.CLIPath, "COPILOT_CLI_PATH")
	set(&c.Providers.Copilot.Model, "COPILOT_MODEL")

	set(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	set(&c.Tracing.ServiceName, "OTEL_SERVICE_NAME")

	// The exporter takes host:port; the scheme only selects TLS.
	switch ep := c.Tracing.Endpoint; {
	case strings.HasPrefix(ep, "https://"):
		c.Tracing.Endpoint = strings.TrimPrefix(ep, "https://")
		c.Tracing.Insecure = false
	case strings.HasPrefix(ep, "http://"):
		c.Tracing.Endpoint = strings.TrimPrefix(ep, "http://")
		c.Tracing.Insecure = true
	}
	c.Tracing.Endpoint = strings.TrimRight(c.Tracing.Endpoint, "/")
}
