package mcptools

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

const (
	defaultLocale  = "en_US"
	defaultChannel = "default"
)

func (h *Handlers) handleProductList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 1)
	limit := req.GetInt("limit", 10)

	raw, err := h.exec.Execute(ctx, http.MethodGet, listPath("products", page, limit, nil), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

func (h *Handlers) handleProductGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sku, err := req.RequireString("sku")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	raw, err := h.exec.Execute(ctx, http.MethodGet, itemPath("products", sku), nil)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}

// handleProductCreate runs the full resolver pipeline before touching the
// backend: fetch family schema, structure the flat values, validate. A failed
// validation returns the full result and never issues the POST.
func (h *Handlers) handleProductCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sku, err := req.RequireString("sku")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	family, err := req.RequireString("family")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	locale := req.GetString("locale", defaultLocale)
	channel := req.GetString("channel", defaultChannel)
	flat := flatValues(req)
	flat[domain.KeySKU] = sku

	tree, result, info, err := h.resolver.PrepareValues(ctx, family, flat, locale, channel)
	if err != nil {
		return h.failure(err), nil
	}
	if !result.Valid {
		return h.invalid(result), nil
	}
	if len(info.Unresolved) > 0 {
		h.logger.Warn("Creating product against a partially resolved family schema.",
			slog.String("family", family), slog.Int("unresolved", len(info.Unresolved)))
	}

	body := map[string]any{
		"sku":    sku,
		"family": family,
		"values": tree,
	}
	raw, err := h.exec.Execute(ctx, http.MethodPost, restPrefix+"/products", body)
	if err != nil {
		return h.failure(err), nil
	}
	return h.successWithWarnings(raw, result), nil
}

func (h *Handlers) handleProductUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sku, err := req.RequireString("sku")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	family, err := req.RequireString("family")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	locale := req.GetString("locale", defaultLocale)
	channel := req.GetString("channel", defaultChannel)
	flat := flatValues(req)
	flat[domain.KeySKU] = sku

	tree, result, _, err := h.resolver.PrepareValues(ctx, family, flat, locale, channel)
	if err != nil {
		return h.failure(err), nil
	}
	if !result.Valid {
		return h.invalid(result), nil
	}

	body := map[string]any{"values": tree}
	raw, err := h.exec.Execute(ctx, http.MethodPatch, itemPath("products", sku), body)
	if err != nil {
		return h.failure(err), nil
	}
	return h.successWithWarnings(raw, result), nil
}

func (h *Handlers) handleProductDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sku, err := req.RequireString("sku")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	if _, err := h.exec.Execute(ctx, http.MethodDelete, itemPath("products", sku), nil); err != nil {
		return h.failure(err), nil
	}
	return h.success(map[string]any{"deleted": sku}), nil
}

// handleProductValuesValidate is the dry run: structure and validate without
// any write. The agent gets the tree and the full validation result back.
func (h *Handlers) handleProductValuesValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	family, err := req.RequireString("family")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	locale := req.GetString("locale", defaultLocale)
	channel := req.GetString("channel", defaultChannel)
	flat := flatValues(req)

	tree, result, info, err := h.resolver.PrepareValues(ctx, family, flat, locale, channel)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(map[string]any{
		"values":     tree,
		"validation": result,
		"unresolved": info.Unresolved,
	}), nil
}

// successWithWarnings keeps advisory validation findings visible on the
// success path.
func (h *Handlers) successWithWarnings(data any, result domain.ValidationResult) *mcp.CallToolResult {
	env := toolEnvelope{Success: true, Data: data}
	if len(result.Warnings) > 0 {
		env.Validation = &result
	}
	return renderEnvelope(env)
}

// flatValues pulls the flat attribute-value object out of the tool arguments.
func flatValues(req mcp.CallToolRequest) map[string]any {
	args := req.GetArguments()
	flat := make(map[string]any)
	if raw, ok := args["values"].(map[string]any); ok {
		for k, v := range raw {
			flat[k] = v
		}
	}
	return flat
}
