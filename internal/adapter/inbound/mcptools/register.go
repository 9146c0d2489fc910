package mcptools

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Register adds the full tool catalog to the MCP server. The catalog is
// fixed at startup; there is no dynamic tool discovery.
func (h *Handlers) Register(srv *server.MCPServer) {
	type entry struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}

	pagination := []mcp.ToolOption{
		mcp.WithNumber("page", mcp.Description("1-based page number.")),
		mcp.WithNumber("limit", mcp.Description("Page size.")),
	}

	catalog := []entry{
		{
			tool: newTool("product-list",
				"List products in the catalog, paginated.",
				pagination...),
			handler: h.handleProductList,
		},
		{
			tool: newTool("product-get",
				"Fetch one product by SKU, including all scoped values.",
				mcp.WithString("sku", mcp.Required(), mcp.Description("Product SKU."))),
			handler: h.handleProductGet,
		},
		{
			tool: newTool("product-create",
				"Create a product. Flat attribute values are resolved against the family schema, "+
					"routed into their storage scopes and validated before the backend is called.",
				mcp.WithString("sku", mcp.Required(), mcp.Description("Product SKU.")),
				mcp.WithString("family", mcp.Required(), mcp.Description("Family code the product belongs to.")),
				mcp.WithObject("values", mcp.Description("Flat attribute-code to value map. 'categories' and 'associations' pass through unscoped.")),
				mcp.WithString("locale", mcp.Description("Locale for locale-scoped values (default en_US).")),
				mcp.WithString("channel", mcp.Description("Channel for channel-scoped values (default 'default')."))),
			handler: h.handleProductCreate,
		},
		{
			tool: newTool("product-update",
				"Update a product's values. Same scope resolution and validation as product-create.",
				mcp.WithString("sku", mcp.Required(), mcp.Description("Product SKU.")),
				mcp.WithString("family", mcp.Required(), mcp.Description("Family code, used to fetch the attribute schema.")),
				mcp.WithObject("values", mcp.Description("Flat attribute-code to value map.")),
				mcp.WithString("locale", mcp.Description("Locale for locale-scoped values (default en_US).")),
				mcp.WithString("channel", mcp.Description("Channel for channel-scoped values (default 'default')."))),
			handler: h.handleProductUpdate,
		},
		{
			tool: newTool("product-delete",
				"Delete a product by SKU.",
				mcp.WithString("sku", mcp.Required(), mcp.Description("Product SKU."))),
			handler: h.handleProductDelete,
		},
		{
			tool: newTool("product-values-validate",
				"Dry run: structure flat values against a family's schema and report validation "+
					"errors and warnings without writing anything.",
				mcp.WithString("family", mcp.Required(), mcp.Description("Family code.")),
				mcp.WithObject("values", mcp.Description("Flat attribute-code to value map.")),
				mcp.WithString("locale", mcp.Description("Locale (default en_US).")),
				mcp.WithString("channel", mcp.Description("Channel (default 'default')."))),
			handler: h.handleProductValuesValidate,
		},
		{
			tool: newTool("product-media-upload",
				"Upload a media file and attach it to a product attribute.",
				mcp.WithString("sku", mcp.Required(), mcp.Description("Product SKU.")),
				mcp.WithString("attribute", mcp.Required(), mcp.Description("Image or file attribute code.")),
				mcp.WithString("filename", mcp.Required(), mcp.Description("Original filename.")),
				mcp.WithString("content", mcp.Required(), mcp.Description("File content, base64-encoded."))),
			handler: h.handleProductMediaUpload,
		},
		{
			tool:    newTool("category-list", "List categories, paginated.", pagination...),
			handler: h.handleCategoryList,
		},
		{
			tool: newTool("category-get",
				"Fetch one category by code.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Category code."))),
			handler: h.handleCategoryGet,
		},
		{
			tool: newTool("category-create",
				"Create a category.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Category code.")),
				mcp.WithString("parent", mcp.Description("Parent category code.")),
				mcp.WithObject("labels", mcp.Description("Locale-keyed display names."))),
			handler: h.handleCategoryCreate,
		},
		{
			tool: newTool("category-update",
				"Update a category's parent or labels.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Category code.")),
				mcp.WithString("parent", mcp.Description("Parent category code.")),
				mcp.WithObject("labels", mcp.Description("Locale-keyed display names."))),
			handler: h.handleCategoryUpdate,
		},
		{
			tool: newTool("category-delete",
				"Delete a category by code.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Category code."))),
			handler: h.handleCategoryDelete,
		},
		{
			tool:    newTool("family-list", "List product families, paginated.", pagination...),
			handler: h.handleFamilyList,
		},
		{
			tool: newTool("family-get",
				"Fetch one family by code, including its attribute groups.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Family code."))),
			handler: h.handleFamilyGet,
		},
		{
			tool: newTool("family-attribute-info",
				"Resolve a family's attribute schema: per-attribute metadata, the four storage-scope "+
					"partitions, required attributes, and any codes that failed to resolve.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Family code."))),
			handler: h.handleFamilyAttributeInfo,
		},
		{
			tool:    newTool("attribute-list", "List attributes, paginated.", pagination...),
			handler: h.handleAttributeList,
		},
		{
			tool: newTool("attribute-get",
				"Fetch one attribute by code.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Attribute code."))),
			handler: h.handleAttributeGet,
		},
		{
			tool: newTool("attribute-create",
				"Create an attribute.",
				mcp.WithString("code", mcp.Required(), mcp.Description("Attribute code.")),
				mcp.WithString("type", mcp.Required(), mcp.Description("Attribute type, e.g. text, boolean, select, price, image.")),
				mcp.WithBoolean("is_required", mcp.Description("Whether products must carry a value.")),
				mcp.WithBoolean("value_per_locale", mcp.Description("Store one value per locale.")),
				mcp.WithBoolean("value_per_channel", mcp.Description("Store one value per channel.")),
				mcp.WithString("validation", mcp.Description("Backend validation rule, e.g. email, url, decimal."))),
			handler: h.handleAttributeCreate,
		},
		{
			tool: newTool("attribute-option-list",
				"List the options of a select or multiselect attribute.",
				append([]mcp.ToolOption{
					mcp.WithString("attribute", mcp.Required(), mcp.Description("Attribute code.")),
				}, pagination...)...),
			handler: h.handleAttributeOptionList,
		},
		{
			tool: newTool("attribute-option-create",
				"Add an option to a select or multiselect attribute.",
				mcp.WithString("attribute", mcp.Required(), mcp.Description("Attribute code.")),
				mcp.WithString("code", mcp.Required(), mcp.Description("Option code.")),
				mcp.WithObject("labels", mcp.Description("Locale-keyed display names."))),
			handler: h.handleAttributeOptionCreate,
		},
		{
			tool:    newTool("locale-list", "List the locales enabled in the catalog.", pagination...),
			handler: h.handleLocaleList,
		},
		{
			tool:    newTool("channel-list", "List the catalog's channels.", pagination...),
			handler: h.handleChannelList,
		},
		{
			tool:    newTool("currency-list", "List the catalog's currencies.", pagination...),
			handler: h.handleCurrencyList,
		},
	}

	for _, e := range catalog {
		srv.AddTool(e.tool, e.handler)
	}
	h.logger.Info("Tool catalog registered.", slog.Int("tool_count", len(catalog)))
}

func newTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)...)
}
