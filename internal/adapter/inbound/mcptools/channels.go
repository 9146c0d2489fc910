package mcptools

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *Handlers) handleLocaleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 25)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("locales", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleChannelList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 25)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("channels", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleCurrencyList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 25)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("currencies", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}
