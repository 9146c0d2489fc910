package mcptools

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

func (h *Handlers) handleFamilyList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 10)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("families", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleFamilyGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	raw, err := h.exec.Execute(ctx, http.MethodGet, itemPath("families", code), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

// handleFamilyAttributeInfo exposes the resolver's scope partition so an
// agent can inspect where each value belongs before writing a product.
func (h *Handlers) handleFamilyAttributeInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	info, err := h.resolver.FamilyAttributeInfo(ctx, code)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(map[string]any{
		"family":                  info.FamilyCode,
		"attributes":              info.Attributes,
		"common":                  info.Common,
		"locale_specific":         info.LocaleSpecific,
		"channel_specific":        info.ChannelSpecific,
		"channel_locale_specific": info.ChannelLocaleSpecific,
		"required":                info.Required,
		"unresolved":              info.Unresolved,
	}), nil
}
