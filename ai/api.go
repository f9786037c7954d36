package ai

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/GoCodeAlone/workflowgen/document"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "workflowgen"

const maxRequestBody = 1 << 20

// Handler provides HTTP handlers for the generation service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler creates a new generation API handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the API routes on a ServeMux. middleware wraps
// the generation route only, outermost first.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, middleware ...func(http.Handler) http.Handler) {
	var generate http.Handler = http.HandlerFunc(h.HandleGenerate)
	for i := len(middleware) - 1; i >= 0; i-- {
		generate = middleware[i](generate)
	}
	mux.Handle("POST /api/generate-workflow", generate)
	mux.HandleFunc("GET /api/workflow-schema", h.HandleSchema)
	mux.HandleFunc("GET /{$}", h.HandleHealth)
}

// HandleGenerate handles POST /api/generate-workflow. The response body is
// the workflow document itself.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		h.logger.Error("invalid generation request", "error", err)
		writeError(w, http.StatusInternalServerError, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.WorkflowDescription) == "" {
		writeError(w, http.StatusInternalServerError, "workflowDescription is required")
		return
	}

	res, err := h.service.Generate(r.Context(), req.BusinessContext, req.WorkflowDescription)
	if err != nil {
		h.logger.Warn("generation aborted", "error", err)
		writeError(w, http.StatusInternalServerError, "generation aborted: "+err.Error())
		return
	}

	w.Header().Set("X-Request-ID", res.RequestID)
	writeJSON(w, http.StatusOK, res.Document)
}

// HandleHealth handles GET / and reports which providers are configured.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   ServiceName,
		"providers": h.service.Availability(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleSchema handles GET /api/workflow-schema.
func (h *Handler) HandleSchema(w http.ResponseWriter, _ *http.Request) {
	data, err := document.SchemaJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
