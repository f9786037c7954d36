// Package openai provides the fast ai.Provider variant on top of any
// OpenAI-compatible chat completions API (OpenAI, Groq, OpenRouter, ...).
package openai

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
	defaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1"
)

const systemPrompt = "You are an n8n workflow generator. Reply with a single JSON object and nothing else."

var errNoChoices = errors.New("no choices in response")

// Config holds configuration for the OpenAI provider.
type Config struct {
	APIKey  string // Defaults to OPENAI_API_KEY env var
	Model   string // Defaults to gpt-4o-mini
	BaseURL string // Defaults to https://api.openai.com/v1
	// JSONMode asks the API to constrain the reply to a JSON object. Not
	// every compatible host supports it.
	JSONMode   bool
	HTTPClient *http.Client
}

// Client implements ai.Provider for OpenAI-compatible chat completions.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	jsonMode   bool
	httpClient *http.Client
}

var _ ai.Provider = (*Client)(nil)

// New creates a new OpenAI provider.
func New(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY not set")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	baseURL := normalizeBaseURL(cfg.BaseURL)

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		jsonMode:   cfg.JSONMode,
		httpClient: httpClient,
	}, nil
}

// normalizeBaseURL trims trailing slashes and a pasted /chat/completions
// suffix so either form of the endpoint can be configured.
func normalizeBaseURL(u string) string {
	u = strings.TrimRight(strings.TrimSpace(u), "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	if u == "" {
		return defaultBaseURL
	}
	return u
}

// Name implements ai.Provider.
func (c *Client) Name() string { return ai.ProviderOpenAI }

// -- OpenAI API types --

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatChoice struct {
	Message struct {
		Role    string  `json:"role"`
		Content *string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

func (c *Client) doRequest(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, ai.NewProviderError(ctx, c.Name(), fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ai.NewProviderError(ctx, c.Name(), fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ai.NewStatusError(c.Name(), resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, ai.NewProviderError(ctx, c.Name(), fmt.Errorf("parse response: %w", err))
	}
	return &chatResp, nil
}

// Generate implements ai.Provider and returns choices[0].message.content.
func (c *Client) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	chatReq := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: opts.MaxTokens,
	}
	if opts.Temperature != nil {
		t := *opts.Temperature
		chatReq.Temperature = &t
	}
	if c.jsonMode {
		chatReq.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	resp, err := c.doRequest(ctx, chatReq)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ai.NewProviderError(ctx, c.Name(), errNoChoices)
	}
	if content := resp.Choices[0].Message.Content; content != nil {
		return *content, nil
	}
	return "", nil
}
