package mcptools

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
	"github.com/oledmansfeld/unopim-mcp/internal/usecase"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	args := m.Called(ctx, method, path, body)
	if raw := args.Get(0); raw != nil {
		return raw.(json.RawMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExecutor) ExecuteMultipart(ctx context.Context, path string, fields map[string]string, file usecase.UploadFile) (json.RawMessage, error) {
	args := m.Called(ctx, path, fields, file)
	if raw := args.Get(0); raw != nil {
		return raw.(json.RawMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestHandlers(exec *mockExecutor) *Handlers {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(exec, usecase.NewResolveScopesUseCase(exec, logger), logger)
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// envelope mirrors the JSON shape every tool result is rendered as.
type envelope struct {
	Success    bool                     `json:"success"`
	Data       json.RawMessage          `json:"data"`
	Error      *toolError               `json:"error"`
	Validation *domain.ValidationResult `json:"validation"`
}

func decodeEnvelope(t *testing.T, result *mcp.CallToolResult) envelope {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "tool results are always rendered as text content")

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(text.Text), &env))
	return env
}

func TestProductGet_Success(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/products/SKU-1", nil).
		Return(json.RawMessage(`{"sku":"SKU-1"}`), nil).Once()

	result, err := h.handleProductGet(context.Background(), toolRequest(map[string]any{"sku": "SKU-1"}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"sku":"SKU-1"}`, string(env.Data))
	assert.Nil(t, env.Error)
	exec.AssertExpectations(t)
}

func TestProductGet_MissingArgumentNeverCallsBackend(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	result, err := h.handleProductGet(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(domain.ErrValidation), env.Error.Code)
	assert.False(t, env.Error.RetryPossible)
	exec.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProductGet_NotFoundEnvelope(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/products/ghost", nil).
		Return(nil, domain.NewAPIError(domain.ErrNotFound, 404, "Product not found")).Once()

	result, err := h.handleProductGet(context.Background(), toolRequest(map[string]any{"sku": "ghost"}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, "Product not found", env.Error.Message)
	assert.False(t, env.Error.RetryPossible)
	exec.AssertExpectations(t)
}

func TestProductList_RetryableErrorKeepsRetryBit(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/products?limit=10&page=1", nil).
		Return(nil, domain.NewAPIError(domain.ErrRateLimited, 429, "Too Many Requests")).Once()

	result, err := h.handleProductList(context.Background(), toolRequest(map[string]any{}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
	assert.True(t, env.Error.RetryPossible)
	exec.AssertExpectations(t)
}

func TestFailure_UnclassifiedErrorBecomesServerError(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/products/SKU-1", nil).
		Return(nil, io.ErrUnexpectedEOF).Once()

	result, err := h.handleProductGet(context.Background(), toolRequest(map[string]any{"sku": "SKU-1"}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SERVER_ERROR", env.Error.Code)
}

func TestProductCreate_ValidationFailureShortCircuitsWrite(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/families/electronics", nil).
		Return(json.RawMessage(`{"code":"electronics","attribute_groups":[{"code":"g","custom_attributes":["name"]}]}`), nil).Once()
	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/attributes/name", nil).
		Return(json.RawMessage(`{"code":"name","type":"text","is_required":true,"value_per_locale":true,"value_per_channel":true}`), nil).Once()

	result, err := h.handleProductCreate(context.Background(), toolRequest(map[string]any{
		"sku":    "SKU-1",
		"family": "electronics",
		"values": map[string]any{},
	}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(domain.ErrValidation), env.Error.Code)
	require.NotNil(t, env.Validation)
	require.Len(t, env.Validation.Errors, 1)
	assert.Equal(t, "channel_locale_specific.default.en_US.name", env.Validation.Errors[0].Field)

	// Only the two schema lookups ran; the POST never happened.
	exec.AssertNumberOfCalls(t, "Execute", 2)
	exec.AssertExpectations(t)
}

func TestProductCreate_StructuresValuesBeforePosting(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/families/electronics", nil).
		Return(json.RawMessage(`{"code":"electronics","attribute_groups":[{"code":"g","custom_attributes":["name"]}]}`), nil).Once()
	exec.On("Execute", mock.Anything, http.MethodGet, "/api/v1/rest/attributes/name", nil).
		Return(json.RawMessage(`{"code":"name","type":"text","is_required":true,"value_per_locale":true,"value_per_channel":true}`), nil).Once()

	exec.On("Execute", mock.Anything, http.MethodPost, "/api/v1/rest/products", mock.MatchedBy(func(body any) bool {
		payload, ok := body.(map[string]any)
		if !ok || payload["sku"] != "SKU-1" || payload["family"] != "electronics" {
			return false
		}
		tree, ok := payload["values"].(domain.ScopedValueTree)
		if !ok {
			return false
		}
		return tree.Common["sku"] == "SKU-1" &&
			tree.ChannelLocaleSpecific["default"]["en_US"]["name"] == "Gadget"
	})).Return(json.RawMessage(`{"sku":"SKU-1"}`), nil).Once()

	result, err := h.handleProductCreate(context.Background(), toolRequest(map[string]any{
		"sku":    "SKU-1",
		"family": "electronics",
		"values": map[string]any{"name": "Gadget"},
	}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	exec.AssertExpectations(t)
}

func TestProductDelete_Success(t *testing.T) {
	exec := new(mockExecutor)
	h := newTestHandlers(exec)

	exec.On("Execute", mock.Anything, http.MethodDelete, "/api/v1/rest/products/SKU-9", nil).
		Return(nil, nil).Once()

	result, err := h.handleProductDelete(context.Background(), toolRequest(map[string]any{"sku": "SKU-9"}))
	require.NoError(t, err)

	env := decodeEnvelope(t, result)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"deleted":"SKU-9"}`, string(env.Data))
	exec.AssertExpectations(t)
}

func TestListPath(t *testing.T) {
	cases := []struct {
		name     string
		resource string
		page     int
		limit    int
		want     string
	}{
		{"paged", "products", 2, 25, "/api/v1/rest/products?limit=25&page=2"},
		{"defaults omitted", "locales", 0, 0, "/api/v1/rest/locales"},
		{"limit only", "channels", 0, 5, "/api/v1/rest/channels?limit=5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, listPath(tc.resource, tc.page, tc.limit, nil))
		})
	}
}
