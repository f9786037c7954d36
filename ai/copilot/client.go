// Package copilotai provides an ai.Provider backed by GitHub Copilot sessions.
package copilotai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/GoCodeAlone/workflowgen/ai"
	aillm "github.com/GoCodeAlone/workflowgen/ai/llm"
)

const systemMessage = "You generate importable n8n workflow JSON documents for small businesses. " +
	"Use the workflow tools to look up node types and validate your answer. Reply with the JSON object only."

var errEmptyResponse = errors.New("empty response from Copilot")

// ClientConfig holds configuration for the Copilot SDK client.
type ClientConfig struct {
	// CLIPath is the path to the Copilot CLI binary.
	CLIPath string
	// Model to use for sessions (e.g., "claude-sonnet-4-20250514").
	Model string
	// Provider configures BYOK (Bring Your Own Key) for custom model providers.
	Provider *copilot.ProviderConfig
}

// Client implements ai.Provider using the GitHub Copilot SDK. Each Generate
// call runs in a fresh session.
type Client struct {
	cfg    ClientConfig
	opener Opener
}

var _ ai.Provider = (*Client)(nil)

// NewClient creates a new Copilot SDK client. The Copilot CLI must be available.
func NewClient(cfg ClientConfig) (*Client, error) {
	cliPath := cfg.CLIPath
	if cliPath == "" {
		cliPath = "copilot"
	}

	cli := copilot.NewClient(&copilot.ClientOptions{
		CLIPath: cliPath,
	})

	return &Client{
		cfg:    cfg,
		opener: &sdkOpener{cli: cli},
	}, nil
}

// Name implements ai.Provider.
func (c *Client) Name() string { return ai.ProviderCopilot }

// workflowTools exposes the Anthropic tool set to Copilot sessions.
func workflowTools() []copilot.Tool {
	defs := aillm.Tools()
	tools := make([]copilot.Tool, 0, len(defs))
	for _, def := range defs {
		name := def.Name
		tools = append(tools, copilot.Tool{
			Name:        name,
			Description: def.Description,
			Parameters:  def.InputSchema,
			Handler: func(inv copilot.ToolInvocation) (copilot.ToolResult, error) {
				input, err := json.Marshal(inv.Arguments)
				if err != nil {
					return copilot.ToolResult{}, err
				}
				result, err := aillm.HandleToolCall(name, input)
				if err != nil {
					return copilot.ToolResult{}, err
				}
				return copilot.ToolResult{TextResultForLLM: result, ResultType: "success"}, nil
			},
		})
	}
	return tools
}

// Generate implements ai.Provider. The Copilot SDK has no token or
// temperature controls, so only opts.Model is honoured.
func (c *Client) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	spec := SessionSpec{
		Model:    opts.Model,
		System:   systemMessage,
		Tools:    workflowTools(),
		Provider: c.cfg.Provider,
	}
	if spec.Model == "" {
		spec.Model = c.cfg.Model
	}

	conv, err := c.opener.Open(ctx, spec)
	if err != nil {
		return "", ai.NewProviderError(ctx, c.Name(), fmt.Errorf("failed to create Copilot session: %w", err))
	}
	defer func() { _ = conv.Close() }()

	text, err := conv.Ask(ctx, prompt)
	if errors.Is(err, errEmptyResponse) {
		return "", ai.NewProviderError(ctx, c.Name(), err)
	}
	if err != nil {
		return "", ai.NewProviderError(ctx, c.Name(), fmt.Errorf("Copilot request failed: %w", err))
	}
	return text, nil
}
