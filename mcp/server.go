// Package mcp provides a Model Context Protocol (MCP) server that exposes
// workflow generation to AI assistants. Assistants can generate documents
// through the provider chain, synthesize them offline, and validate documents
// they author themselves.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/GoCodeAlone/workflowgen/ai"
	aillm "github.com/GoCodeAlone/workflowgen/ai/llm"
	"github.com/GoCodeAlone/workflowgen/document"
)

// Version is the MCP server version, set at build time.
var Version = "dev"

const docsOverviewURI = "workflowgen://docs/overview"

// ServerOption configures optional Server behaviour.
type ServerOption func(*Server)

// WithLogger sets the logger used for tool diagnostics.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server wraps an MCP server instance and the generation service behind it.
type Server struct {
	mcpServer *server.MCPServer
	service   *ai.Service
	logger    *slog.Logger
}

// NewServer creates a new MCP server with all generation tools and
// resources registered.
func NewServer(service *ai.Service, opts ...ServerOption) *Server {
	s := &Server{
		service: service,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = server.NewMCPServer(
		"workflow-mcp-server",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("This MCP server generates importable n8n workflow documents. "+
			"Use generate_workflow for a requirement in plain language, validate_workflow to check a "+
			"document you wrote, and list_node_types or get_workflow_schema while authoring."),
	)

	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server instance (useful for testing).
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the MCP server over standard input/output.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("generate_workflow",
			mcp.WithDescription("Generate an n8n workflow document for an automation requirement. Configured language model providers are tried in order; if none succeeds a template workflow is returned."),
			mcp.WithString("description",
				mcp.Required(),
				mcp.Description("The automation requirement in plain language"),
			),
			mcp.WithObject("business_context",
				mcp.Description("Optional business context: businessDescription, uniqueValue, revenueModel, idealCustomer, currentTools, disconnectedTools, painPoints, manualTaskTime, errorPoints"),
			),
		),
		s.handleGenerateWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("synthesize_workflow",
			mcp.WithDescription("Build a template n8n workflow from keywords in the requirement without calling any language model."),
			mcp.WithString("description",
				mcp.Required(),
				mcp.Description("The automation requirement in plain language"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleSynthesizeWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("validate_workflow",
			mcp.WithDescription("Check an n8n workflow document for missing names, duplicate node ids and connections to unknown nodes. Prose around the JSON object is ignored."),
			mcp.WithString("workflow_json",
				mcp.Required(),
				mcp.Description("The workflow document to check"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleValidateWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_node_types",
			mcp.WithDescription("List commonly used n8n node types with a short description of each."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleListNodeTypes,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_workflow_schema",
			mcp.WithDescription("Return the JSON Schema of the workflow document format."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		s.handleGetWorkflowSchema,
	)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.NewResource(
			docsOverviewURI,
			"Workflow Generator Overview",
			mcp.WithResourceDescription("What the generator does, the workflow document format and the available tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.handleDocsOverview,
	)
}

// --- Tool Handlers ---

func (s *Server) handleGenerateWorkflow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := mcp.ParseString(req, "description", "")
	if strings.TrimSpace(description) == "" {
		return mcp.NewToolResultError("description is required"), nil
	}

	var bc ai.BusinessContext
	if raw := mcp.ParseArgument(req, "business_context", nil); raw != nil {
		data, err := json.Marshal(raw)
		if err == nil {
			err = json.Unmarshal(data, &bc)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid business_context: %v", err)), nil
		}
	}

	res, err := s.service.Generate(ctx, bc, description)
	if err != nil {
		s.logger.Warn("mcp generation aborted", "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("generation aborted: %v", err)), nil
	}

	attempts := make([]map[string]string, 0, len(res.Attempts))
	for _, a := range res.Attempts {
		attempts = append(attempts, map[string]string{"provider": a.Provider, "error": a.Error})
	}
	return marshalToolResult(map[string]any{
		"requestId": res.RequestID,
		"source":    res.Source,
		"attempts":  attempts,
		"workflow":  res.Document,
	})
}

func (s *Server) handleSynthesizeWorkflow(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := mcp.ParseString(req, "description", "")
	if strings.TrimSpace(description) == "" {
		return mcp.NewToolResultError("description is required"), nil
	}
	return marshalToolResult(document.Normalize(ai.Synthesize(description)))
}

func (s *Server) handleValidateWorkflow(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowJSON := mcp.ParseString(req, "workflow_json", "")
	if workflowJSON == "" {
		return mcp.NewToolResultError("workflow_json is required"), nil
	}
	return s.toolCall("validate_workflow", map[string]string{"workflow_json": workflowJSON})
}

func (s *Server) handleListNodeTypes(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.toolCall("list_node_types", nil)
}

func (s *Server) handleGetWorkflowSchema(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := document.SchemaJSON()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to generate schema: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolCall runs one of the tools the Anthropic provider offers the model, so
// both surfaces answer identically.
func (s *Server) toolCall(name string, input any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %v", err)), nil
	}
	out, err := aillm.HandleToolCall(name, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

// --- Resource Handlers ---

func (s *Server) handleDocsOverview(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      docsOverviewURI,
			MIMEType: "text/markdown",
			Text:     docsOverview,
		},
	}, nil
}

// --- Helpers ---

func marshalToolResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("internal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
