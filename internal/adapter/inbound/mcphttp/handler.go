// Package mcphttp serves the plain-HTTP sidecar endpoints that run next to
// the SSE transport: liveness and a readiness probe that exercises the
// authenticated path to the backend.
package mcphttp

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
	"github.com/oledmansfeld/unopim-mcp/internal/usecase"
)

// Handlers struct holds dependencies for the HTTP handlers.
type Handlers struct {
	exec   usecase.Executor
	logger *slog.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(exec usecase.Executor, logger *slog.Logger) *Handlers {
	return &Handlers{
		exec:   exec,
		logger: logger.With("component", "mcphttp_handler"),
	}
}

// RegisterRoutes sets up the sidecar HTTP routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)
}

// handleHealthz implements GET /healthz: process liveness only.
func (h *Handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReadyz implements GET /readyz: a cheap authenticated call proves the
// token path and the backend are reachable.
func (h *Handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if _, err := h.exec.Execute(r.Context(), http.MethodGet, "/api/v1/rest/currencies?limit=1", nil); err != nil {
		h.logger.Warn("Readiness check failed.", slog.Any("error", err))
		status := http.StatusServiceUnavailable
		body := map[string]any{"status": "unavailable"}
		if apiErr, ok := domain.AsAPIError(err); ok {
			body["error"] = string(apiErr.Kind)
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}
