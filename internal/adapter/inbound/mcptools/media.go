package mcptools

import (
	"context"
	"encoding/base64"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
	"github.com/oledmansfeld/unopim-mcp/internal/usecase"
)

// handleProductMediaUpload attaches a file to a product's media attribute.
// Content arrives base64-encoded; the upload itself is single-attempt
// multipart (see the executor's multipart contract).
func (h *Handlers) handleProductMediaUpload(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sku, err := req.RequireString("sku")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	attribute, err := req.RequireString("attribute")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	filename, err := req.RequireString("filename")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}
	encoded, err := req.RequireString("content")
	if err != nil {
		return h.failure(domain.NewAPIError(domain.ErrValidation, 0, err.Error())), nil
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return h.failure(domain.WrapAPIError(domain.ErrValidation, "content is not valid base64", err)), nil
	}

	fields := map[string]string{
		"sku":       sku,
		"attribute": attribute,
	}
	file := usecase.UploadFile{Field: "file", Name: filename, Content: content}

	raw, err := h.exec.ExecuteMultipart(ctx, restPrefix+"/media-files", fields, file)
	if err != nil {
		return h.failure(err), nil
	}
	return h.success(raw), nil
}
