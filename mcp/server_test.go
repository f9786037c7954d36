package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/GoCodeAlone/workflowgen/ai"
)

type fakeProvider struct {
	reply   string
	err     error
	prompts []string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(_ context.Context, prompt string, _ ai.GenerateOptions) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.reply, p.err
}

const fakeWorkflow = `Here you go: {"name": "Order Sync", "nodes": [{"id": "hook", "name": "Hook", "type": "n8n-nodes-base.webhook", "parameters": {}}], "connections": {}}`

func newTestServer(providers ...ai.Provider) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ai.NewService(ai.WithLogger(logger))
	for _, p := range providers {
		svc.Register(p, ai.ProviderOptions{})
	}
	return NewServer(svc, WithLogger(logger))
}

func TestNewServer(t *testing.T) {
	srv := newTestServer()
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestGenerateWorkflow(t *testing.T) {
	provider := &fakeProvider{reply: fakeWorkflow}
	srv := newTestServer(provider)

	result, err := srv.handleGenerateWorkflow(context.Background(), makeCallToolRequest(map[string]any{
		"description": "sync orders",
		"business_context": map[string]any{
			"businessDescription": "Online bakery",
			"painPoints":          []any{"manual entry", "typos"},
		},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractText(t, result))
	}

	var data struct {
		RequestID string `json:"requestId"`
		Source    string `json:"source"`
		Workflow  struct {
			Name     string           `json:"name"`
			Nodes    []map[string]any `json:"nodes"`
			Settings map[string]any   `json:"settings"`
		} `json:"workflow"`
	}
	if err := json.Unmarshal([]byte(extractText(t, result)), &data); err != nil {
		t.Fatalf("failed to parse result JSON: %v", err)
	}
	if data.Source != "fake" || data.RequestID == "" {
		t.Errorf("unexpected source/request id: %q %q", data.Source, data.RequestID)
	}
	if data.Workflow.Name != "Order Sync" || len(data.Workflow.Nodes) != 1 {
		t.Errorf("unexpected workflow: %+v", data.Workflow)
	}
	if data.Workflow.Settings["executionOrder"] != "v1" {
		t.Errorf("workflow was not normalized: %+v", data.Workflow.Settings)
	}

	if len(provider.prompts) != 1 {
		t.Fatalf("expected one provider call, got %d", len(provider.prompts))
	}
	for _, want := range []string{"Online bakery", "manual entry, typos", "sync orders"} {
		if !strings.Contains(provider.prompts[0], want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerateWorkflow_FallsBack(t *testing.T) {
	srv := newTestServer(&fakeProvider{err: errors.New("connection refused")})

	result, err := srv.handleGenerateWorkflow(context.Background(), makeCallToolRequest(map[string]any{
		"description": "send a daily email report",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := extractText(t, result)
	if !contains(text, `"source": "heuristic"`) {
		t.Errorf("expected heuristic source, got %s", text)
	}
	if !contains(text, `"provider": "fake"`) || !contains(text, "connection refused") {
		t.Errorf("expected failed attempt to be reported, got %s", text)
	}
}

func TestGenerateWorkflow_MissingDescription(t *testing.T) {
	srv := newTestServer()
	for _, args := range []map[string]any{{}, {"description": "   "}} {
		result, err := srv.handleGenerateWorkflow(context.Background(), makeCallToolRequest(args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("expected tool error for args %v", args)
		}
	}
}

func TestGenerateWorkflow_Cancelled(t *testing.T) {
	srv := newTestServer(&fakeProvider{reply: fakeWorkflow})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := srv.handleGenerateWorkflow(ctx, makeCallToolRequest(map[string]any{"description": "x"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError || !contains(extractText(t, result), "generation aborted") {
		t.Errorf("expected aborted tool error, got %s", extractText(t, result))
	}
}

func TestSynthesizeWorkflow(t *testing.T) {
	srv := newTestServer()
	result, err := srv.handleSynthesizeWorkflow(context.Background(), makeCallToolRequest(map[string]any{
		"description": "log new orders to a spreadsheet",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text := extractText(t, result)
	for _, want := range []string{"n8n-nodes-base.webhook", "n8n-nodes-base.code", "n8n-nodes-base.googleSheets", `"executionOrder": "v1"`} {
		if !contains(text, want) {
			t.Errorf("synthesized workflow missing %q", want)
		}
	}

	result, _ = srv.handleSynthesizeWorkflow(context.Background(), makeCallToolRequest(nil))
	if !result.IsError {
		t.Error("expected tool error without description")
	}
}

func TestValidateWorkflow(t *testing.T) {
	srv := newTestServer()
	tests := []struct {
		name   string
		input  string
		valid  bool
		errSub string
	}{
		{"valid", fakeWorkflow, true, ""},
		{"unknown target", `{"name": "W", "nodes": [{"id": "a", "name": "A", "type": "t"}], "connections": {"a": {"main": [[{"node": "b", "type": "main", "index": 0}]]}}}`, false, "unknown node"},
		{"not json", "no workflow here", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := srv.handleValidateWorkflow(context.Background(), makeCallToolRequest(map[string]any{
				"workflow_json": tt.input,
			}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var data struct {
				Valid  bool     `json:"valid"`
				Errors []string `json:"errors"`
			}
			if err := json.Unmarshal([]byte(extractText(t, result)), &data); err != nil {
				t.Fatalf("failed to parse result JSON: %v", err)
			}
			if data.Valid != tt.valid {
				t.Errorf("valid = %v, want %v (errors %v)", data.Valid, tt.valid, data.Errors)
			}
			if tt.errSub != "" && !contains(strings.Join(data.Errors, "\n"), tt.errSub) {
				t.Errorf("errors %v missing %q", data.Errors, tt.errSub)
			}
		})
	}

	result, _ := srv.handleValidateWorkflow(context.Background(), makeCallToolRequest(nil))
	if !result.IsError {
		t.Error("expected tool error without workflow_json")
	}
}

func TestListNodeTypes(t *testing.T) {
	srv := newTestServer()
	result, err := srv.handleListNodeTypes(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var types map[string]string
	if err := json.Unmarshal([]byte(extractText(t, result)), &types); err != nil {
		t.Fatalf("failed to parse result JSON: %v", err)
	}
	for _, expected := range []string{"n8n-nodes-base.webhook", "n8n-nodes-base.scheduleTrigger", "n8n-nodes-base.googleSheets"} {
		if _, ok := types[expected]; !ok {
			t.Errorf("expected node type %q not found", expected)
		}
	}
}

func TestGetWorkflowSchema(t *testing.T) {
	srv := newTestServer()
	result, err := srv.handleGetWorkflowSchema(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(extractText(t, result)), &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if schema["title"] != "Workflow document" {
		t.Errorf("unexpected schema title %v", schema["title"])
	}
}

func TestDocsOverview(t *testing.T) {
	srv := newTestServer()
	contents, err := srv.handleDocsOverview(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatal("expected TextResourceContents")
	}
	if tc.URI != docsOverviewURI || tc.MIMEType != "text/markdown" {
		t.Errorf("unexpected resource metadata: %s %s", tc.URI, tc.MIMEType)
	}
	if !contains(tc.Text, "executionOrder") {
		t.Error("overview should describe the document settings")
	}
}

// --- Helpers ---

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func makeCallToolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
