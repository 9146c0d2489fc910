package unopim

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"

	"github.com/oledmansfeld/unopim-mcp/internal/usecase"
)

// ExecuteMultipart posts a multipart/form-data body, e.g. a media upload.
// Unlike Execute this makes a single attempt: the encoded body is single-use,
// so there is no mid-stream token swap or replay. A 401 still invalidates the
// cached token so the next call recovers.
func (c *Client) ExecuteMultipart(ctx context.Context, path string, fields map[string]string, file usecase.UploadFile) (json.RawMessage, error) {
	log := c.logger.With(slog.String("method", http.MethodPost), slog.String("path", path))

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, domain.WrapAPIError(domain.ErrValidation, "failed to encode form field "+key, err)
		}
	}
	part, err := writer.CreateFormFile(file.Field, file.Name)
	if err != nil {
		return nil, domain.WrapAPIError(domain.ErrValidation, "failed to create form file part", err)
	}
	if _, err := part.Write(file.Content); err != nil {
		return nil, domain.WrapAPIError(domain.ErrValidation, "failed to write form file content", err)
	}
	if err := writer.Close(); err != nil {
		return nil, domain.WrapAPIError(domain.ErrValidation, "failed to finalize multipart body", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, domain.WrapAPIError(domain.ErrValidation, "failed to build multipart request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error("Multipart request failed.", slog.Any("error", err))
		return nil, domain.WrapAPIError(domain.ErrNetwork, "multipart upload failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapAPIError(domain.ErrNetwork, "failed to read upload response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return nil, nil
		}
		return json.RawMessage(respBody), nil
	}

	apiErr := classifyStatus(resp.StatusCode, respBody)
	if apiErr.Kind == domain.ErrTokenExpired {
		c.tokens.Invalidate()
	}
	log.Warn("Multipart upload rejected.", slog.Int("status", resp.StatusCode), slog.Any("error", apiErr))
	return nil, apiErr
}
