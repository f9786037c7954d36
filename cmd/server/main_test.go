package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GoCodeAlone/workflowgen/ai"
	"github.com/GoCodeAlone/workflowgen/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// resetFlags clears the package flags and the environment variables the
// configuration layer reads, restoring both after the test.
func resetFlags(t *testing.T) {
	t.Helper()
	origConfig, origAddr, origLevel, origWatch := *configFile, *addr, *logLevel, *watch
	t.Cleanup(func() {
		*configFile, *addr, *logLevel, *watch = origConfig, origAddr, origLevel, origWatch
	})
	*configFile, *addr, *logLevel, *watch = "", "", "", false
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "COPILOT_CLI_PATH", "WORKFLOWGEN_ADDR", "WORKFLOWGEN_LOG_LEVEL", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(key, "")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "workflowgen.yaml")
	if err := os.WriteFile(fp, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return fp
}

func newTestApp(t *testing.T, cfg *config.Config) *serverApp {
	t.Helper()
	app, err := newServerApp(context.Background(), quietLogger(), cfg)
	if err != nil {
		t.Fatalf("newServerApp failed: %v", err)
	}
	t.Cleanup(app.limiter.Stop)
	return app
}

func TestLoadConfig_NoFile(t *testing.T) {
	resetFlags(t)

	cfg, err := loadConfig(quietLogger())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	resetFlags(t)
	*configFile = "/nonexistent/config.yaml"

	if _, err := loadConfig(quietLogger()); err == nil {
		t.Fatal("expected error for nonexistent config file")
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	resetFlags(t)
	*configFile = writeTempConfig(t, `server:
  addr: ":9999"
providers:
  order: [openai]
`)

	cfg, err := loadConfig(quietLogger())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected addr from file, got %q", cfg.Server.Addr)
	}
	if len(cfg.Providers.Order) != 1 || cfg.Providers.Order[0] != ai.ProviderOpenAI {
		t.Errorf("unexpected provider order %v", cfg.Providers.Order)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	resetFlags(t)
	*configFile = writeTempConfig(t, "server:\n  addr: \":9999\"\n")
	t.Setenv("WORKFLOWGEN_ADDR", ":7000")

	cfg, err := loadConfig(quietLogger())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("environment should override the file, got %q", cfg.Server.Addr)
	}

	*addr = ":6000"
	*logLevel = "debug"
	cfg, err = loadConfig(quietLogger())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":6000" || cfg.Log.Level != "debug" {
		t.Errorf("flags should override everything, got %q %q", cfg.Server.Addr, cfg.Log.Level)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	resetFlags(t)
	*configFile = writeTempConfig(t, "providers:\n  order: [gemini]\n")

	_, err := loadConfig(quietLogger())
	if err == nil || !strings.Contains(err.Error(), "gemini") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("newLogger failed: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record should be filtered at warn level")
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", out, err)
	}
	if rec["msg"] != "shown" || rec["k"] != "v" {
		t.Errorf("unexpected record %v", rec)
	}

	if _, err := newLogger(&buf, config.LogConfig{Level: "chatty"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestServerApp_Routes(t *testing.T) {
	resetFlags(t)
	app := newTestApp(t, config.Default())

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"generate", http.MethodPost, "/api/generate-workflow", ai.GenerateRequest{WorkflowDescription: "send a daily email report"}, http.StatusOK},
		{"schema", http.MethodGet, "/api/workflow-schema", nil, http.StatusOK},
		{"health", http.MethodGet, "/", nil, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", nil, http.StatusOK},
		{"unknown", http.MethodGet, "/api/nope", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != nil {
				data, _ := json.Marshal(tt.body)
				body = bytes.NewReader(data)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			w := httptest.NewRecorder()
			app.handler.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d: %s", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestServerApp_EndToEnd(t *testing.T) {
	resetFlags(t)
	app := newTestApp(t, config.Default())

	body, _ := json.Marshal(ai.GenerateRequest{WorkflowDescription: "log new orders to a spreadsheet"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate-workflow", bytes.NewReader(body))
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS header on the response")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
	var doc struct {
		Nodes []struct {
			Type string `json:"type"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(doc.Nodes) != 3 || doc.Nodes[2].Type != "n8n-nodes-base.googleSheets" {
		t.Errorf("unexpected synthesized document: %s", w.Body.String())
	}

	mreq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	app.handler.ServeHTTP(mw, mreq)
	out := mw.Body.String()
	for _, want := range []string{
		`workflowgen_generations_total{source="heuristic"} 1`,
		`workflowgen_http_requests_total{method="POST",path="POST /api/generate-workflow",status_code="200"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestServerApp_RateLimit(t *testing.T) {
	resetFlags(t)
	cfg := config.Default()
	cfg.Server.RateLimitPerMinute = 2
	app := newTestApp(t, cfg)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/generate-workflow", strings.NewReader(`{"workflowDescription": "x"}`))
		req.RemoteAddr = "203.0.113.7:4000"
		w := httptest.NewRecorder()
		app.handler.ServeHTTP(w, req)
		return w.Code
	}
	for i := 0; i < 2; i++ {
		if code := post(); code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, code)
		}
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the burst is spent, got %d", code)
	}

	// Only the generation route is limited.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	w := httptest.NewRecorder()
	app.handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("health check should not be rate limited, got %d", w.Code)
	}
}

func TestServerApp_Reload(t *testing.T) {
	resetFlags(t)
	app := newTestApp(t, config.Default())
	if got := app.service.Providers(); len(got) != 0 {
		t.Fatalf("expected no providers, got %v", got)
	}

	next := config.Default()
	next.Providers.OpenAI.APIKey = "sk-test"
	app.reload(config.ChangeEvent{Source: "test", Config: next})

	if got := app.service.Providers(); len(got) != 1 || got[0] != ai.ProviderOpenAI {
		t.Errorf("expected openai after reload, got %v", got)
	}
}

func TestRun_ImmediateCancel(t *testing.T) {
	resetFlags(t)
	app := newTestApp(t, config.Default())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run(ctx, app, "127.0.0.1:0"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
}

func TestRun_ServerStartsAndStops(t *testing.T) {
	resetFlags(t)
	fp := writeTempConfig(t, "server:\n  shutdownTimeout: 2s\n")
	*configFile = fp
	*watch = true

	cfg, err := loadConfig(quietLogger())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, app, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
