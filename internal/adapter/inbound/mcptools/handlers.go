// Package mcptools registers the fixed tool catalog the MCP server exposes.
// Every handler is a thin pass-through to the authenticated REST executor;
// the one exception is product writes, which run through the schema-scope
// resolver first.
package mcptools

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
	"github.com/oledmansfeld/unopim-mcp/internal/usecase"
)

const restPrefix = "/api/v1/rest"

// Handlers holds the dependencies every tool handler shares.
type Handlers struct {
	exec     usecase.Executor
	resolver *usecase.ResolveScopesUseCase
	logger   *slog.Logger
}

// New creates the tool handler set.
func New(exec usecase.Executor, resolver *usecase.ResolveScopesUseCase, logger *slog.Logger) *Handlers {
	return &Handlers{
		exec:     exec,
		resolver: resolver,
		logger:   logger.With("component", "mcptools"),
	}
}

// toolError is the error half of the result envelope the facade commits to:
// a stable code, a human-readable message, and the retry-eligibility bit.
type toolError struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	RetryPossible bool   `json:"retry_possible"`
}

type toolEnvelope struct {
	Success    bool                     `json:"success"`
	Data       any                      `json:"data,omitempty"`
	Error      *toolError               `json:"error,omitempty"`
	Validation *domain.ValidationResult `json:"validation,omitempty"`
}

// success wraps data in the success envelope.
func (h *Handlers) success(data any) *mcp.CallToolResult {
	return renderEnvelope(toolEnvelope{Success: true, Data: data})
}

// failure renders a classified error as the failure envelope. Errors that
// escaped classification (marshalling bugs and the like) surface as
// SERVER_ERROR rather than leaking a raw message shape.
func (h *Handlers) failure(err error) *mcp.CallToolResult {
	apiErr, ok := domain.AsAPIError(err)
	if !ok {
		h.logger.Error("Unclassified error reached the tool boundary.", slog.Any("error", err))
		apiErr = domain.NewAPIError(domain.ErrServer, 0, err.Error())
	}
	return renderEnvelope(toolEnvelope{
		Success: false,
		Error: &toolError{
			Code:          string(apiErr.Kind),
			Message:       apiErr.Message,
			RetryPossible: apiErr.Retryable(),
		},
	})
}

// invalid renders a failed pre-flight validation: the backend was never
// called, and the full result rides along for the agent to act on.
func (h *Handlers) invalid(result domain.ValidationResult) *mcp.CallToolResult {
	return renderEnvelope(toolEnvelope{
		Success: false,
		Error: &toolError{
			Code:          string(domain.ErrValidation),
			Message:       fmt.Sprintf("values failed validation with %d error(s)", len(result.Errors)),
			RetryPossible: false,
		},
		Validation: &result,
	})
}

func renderEnvelope(env toolEnvelope) *mcp.CallToolResult {
	payload, err := json.Marshal(env)
	if err != nil {
		// Last-resort envelope; env always marshals unless Data is hostile.
		return mcp.NewToolResultText(`{"success":false,"error":{"code":"SERVER_ERROR","message":"failed to encode tool result","retry_possible":false}}`)
	}
	return mcp.NewToolResultText(string(payload))
}

// listPath builds a paginated collection path.
func listPath(resource string, page, limit int, extra url.Values) string {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	for key, vals := range extra {
		for _, v := range vals {
			query.Add(key, v)
		}
	}
	path := restPrefix + "/" + resource
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}
	return path
}

// itemPath builds a single-resource path with the code escaped.
func itemPath(resource, code string) string {
	return restPrefix + "/" + resource + "/" + url.PathEscape(code)
}
