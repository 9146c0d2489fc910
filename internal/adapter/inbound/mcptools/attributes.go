package mcptools

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

func (h *Handlers) handleAttributeList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 10)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("attributes", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleAttributeGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	raw, err := h.exec.Execute(ctx, http.MethodGet, itemPath("attributes", code), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleAttributeCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	attrType, err := req.RequireString("type")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	body := map[string]any{
		"code":              code,
		"type":              attrType,
		"is_required":       req.GetBool("is_required", false),
		"value_per_locale":  req.GetBool("value_per_locale", false),
		"value_per_channel": req.GetBool("value_per_channel", false),
	}
	if validation := req.GetString("validation", ""); validation != "" {
		body["validation"] = validation
	}

	raw, err := h.exec.Execute(ctx, http.MethodPost, restPrefix+"/attributes", body)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleAttributeOptionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("attribute")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 10)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("attributes/"+code+"/options", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleAttributeOptionCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	attr, err := req.RequireString("attribute")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	code, err := req.RequireString("code")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	body := map[string]any{"code": code}
	if labels, ok := req.GetArguments()["labels"].(map[string]any); ok {
		body["labels"] = labels
	}

	raw, err := h.exec.Execute(ctx, http.MethodPost, itemPath("attributes", attr)+"/options", body)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}
