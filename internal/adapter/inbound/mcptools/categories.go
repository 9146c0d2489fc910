package mcptools

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

func (h *Handlers) handleCategoryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 10)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("categories", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleCategoryGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	raw, err := h.exec.Execute(ctx, http.MethodGet, itemPath("categories", code), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleCategoryCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	body := map[string]any{"code": code}
	if parent := req.GetString("parent", ""); parent != "" {
		body["parent"] = parent
	}
	if labels, ok := req.GetArguments()["labels"].(map[string]any); ok {
		body["additional_data"] = map[string]any{"locale_specific": labels}
	}

	raw, err := h.exec.Execute(ctx, http.MethodPost, restPrefix+"/categories", body)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleCategoryUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	body := map[string]any{}
	if parent := req.GetString("parent", ""); parent != "" {
		body["parent"] = parent
	}
	if labels, ok := req.GetArguments()["labels"].(map[string]any); ok {
		body["additional_data"] = map[string]any{"locale_specific": labels}
	}

	raw, err := h.exec.Execute(ctx, http.MethodPut, itemPath("categories", code), body)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleCategoryDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	if _, err := h.exec.Execute(ctx, http.MethodDelete, itemPath("categories", code), nil); err != nil {
		return h.failure(err), nil
	}
	return h.success(map[string]any{"deleted": code}), nil
}
