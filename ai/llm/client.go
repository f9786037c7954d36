// Package llm implements the Anthropic Messages API provider.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/GoCodeAlone/workflowgen/ai"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
	maxToolRounds    = 10
)

const systemPrompt = "You are an expert n8n workflow automation architect. " +
	"You design importable n8n workflows for small businesses. " +
	"Use the available tools to look up node types, the document schema and example workflows, " +
	"and to validate your workflow before answering. Answer with the workflow JSON only."

var errToolRounds = errors.New("exceeded maximum tool call rounds")

// ClientConfig holds configuration for the Anthropic LLM client.
type ClientConfig struct {
	APIKey  string // Defaults to ANTHROPIC_API_KEY env var
	Model   string // Defaults to claude-sonnet-4-20250514
	BaseURL string // Defaults to https://api.anthropic.com
	// DisableTools sends single-shot requests without the tool loop.
	DisableTools bool
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}

// Client implements ai.Provider using the Anthropic Claude API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	tools      bool
	httpClient *http.Client
}

var _ ai.Provider = (*Client)(nil)

// NewClient creates a new Anthropic LLM client.
func NewClient(cfg ClientConfig) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		tools:      !cfg.DisableTools,
		httpClient: httpClient,
	}, nil
}

// Name implements ai.Provider.
func (c *Client) Name() string { return ai.ProviderAnthropic }

// -- Anthropic API types --

type message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type toolDef struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type apiRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Tools       []toolDef `json:"tools,omitempty"`
}

type contentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type apiResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

func (c *Client) newRequest(opts ai.GenerateOptions, messages []message, tools []toolDef) apiRequest {
	req := apiRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    systemPrompt,
		Messages:  messages,
		Tools:     tools,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		t := *opts.Temperature
		req.Temperature = &t
	}
	return req
}

func (c *Client) call(ctx context.Context, req apiRequest) (*apiResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, ai.NewProviderError(ctx, c.Name(), fmt.Errorf("API request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.NewProviderError(ctx, c.Name(), fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ai.NewStatusError(c.Name(), resp.StatusCode, respBody)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, ai.NewProviderError(ctx, c.Name(), fmt.Errorf("failed to parse response: %w", err))
	}
	return &apiResp, nil
}

// Generate implements ai.Provider. When tools are enabled the model may look
// up node types, the document schema and examples before answering; the
// final text blocks are returned joined by newlines.
func (c *Client) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	var apiTools []toolDef
	if c.tools {
		tools := Tools()
		apiTools = make([]toolDef, len(tools))
		for i, t := range tools {
			apiTools[i] = toolDef(t)
		}
	}

	userMsg, _ := json.Marshal(prompt)
	messages := []message{
		{Role: "user", Content: userMsg},
	}

	for i := 0; i < maxToolRounds; i++ {
		resp, err := c.call(ctx, c.newRequest(opts, messages, apiTools))
		if err != nil {
			return "", err
		}

		if resp.StopReason != "tool_use" {
			return joinText(resp.Content), nil
		}

		// Replay the assistant turn, then answer each tool_use block.
		assistantContent, _ := json.Marshal(resp.Content)
		messages = append(messages, message{Role: "assistant", Content: assistantContent})

		var resultBlocks []map[string]interface{}
		for _, block := range resp.Content {
			if block.Type != "tool_use" {
				continue
			}
			result, err := HandleToolCall(block.Name, block.Input)
			isError := err != nil
			if isError {
				result = err.Error()
			}
			resultBlocks = append(resultBlocks, map[string]interface{}{
				"type":        "tool_result",
				"tool_use_id": block.ID,
				"content":     result,
				"is_error":    isError,
			})
		}
		toolContent, _ := json.Marshal(resultBlocks)
		messages = append(messages, message{Role: "user", Content: toolContent})
	}

	return "", ai.NewProviderError(ctx, c.Name(), errToolRounds)
}

func joinText(blocks []contentBlock) string {
	var texts []string
	for _, block := range blocks {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	return strings.Join(texts, "\n")
}
