package unopim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

// defaultRequestTimeout bounds one HTTP attempt unless the caller's context
// carries an earlier deadline.
const defaultRequestTimeout = 30 * time.Second

// TokenSource is the slice of the token manager the executor depends on.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Client is the resilient request executor: it injects the current bearer
// token, enforces a per-attempt timeout, retries transient failures on the
// fixed schedule, and recovers once from a stale-token 401 by invalidating
// the cache and re-asking the token source.
//
// Callers observe either a parsed JSON result or a single classified
// *domain.APIError, never a stack of raw transport errors.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer

	timeout time.Duration
	delays  []time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRequestTimeout overrides the per-attempt timeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates an executor for the REST API rooted at baseURL.
func NewClient(baseURL string, tokens TokenSource, client *http.Client, logger *slog.Logger, opts ...ClientOption) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		client:  client,
		logger:  logger.With("component", "rest_client"),
		tracer:  otel.Tracer("unopim-mcp/rest_client"),
		timeout: defaultRequestTimeout,
		delays:  defaultRetryDelays,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute issues one logical JSON REST call with at most three attempts.
// A 401 invalidates the cached token and retries immediately; other
// retry-eligible failures wait out the schedule first. 204 and empty bodies
// yield a nil result.
func (c *Client) Execute(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	requestID := uuid.NewString()
	log := c.logger.With(
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
	)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			log.Error("Failed to marshal request body.", slog.Any("error", err))
			return nil, domain.WrapAPIError(domain.ErrValidation, "request body is not JSON-encodable", err)
		}
	}

	var lastErr *domain.APIError
	delay := time.Duration(0)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := sleepFor(ctx, delay); err != nil {
			return nil, domain.WrapAPIError(domain.ErrNetwork, "request cancelled while waiting to retry", err)
		}

		result, attemptErr := c.attempt(ctx, method, path, payload, attempt, requestID)
		if attemptErr == nil {
			return result, nil
		}
		lastErr, _ = domain.AsAPIError(attemptErr)

		if lastErr.Kind == domain.ErrTokenExpired {
			// Stale token: drop the cache and go again right away. The
			// schedule still applies to any later generic failure.
			c.tokens.Invalidate()
			if attempt < maxAttempts {
				log.Info("Token rejected, re-acquiring and retrying.", slog.Int("attempt", attempt))
				delay = 0
				continue
			}
			break
		}

		if !lastErr.Retryable() {
			log.Warn("Request failed with non-retryable error.",
				slog.Int("attempt", attempt), slog.Any("error", lastErr))
			return nil, lastErr
		}

		if attempt < maxAttempts {
			delay = c.delays[attempt]
			log.Warn("Request attempt failed, will retry.",
				slog.Int("attempt", attempt),
				slog.Duration("retry_in", delay),
				slog.Any("error", lastErr))
		}
	}

	log.Error("Request failed after exhausting attempts.", slog.Any("error", lastErr))
	return nil, lastErr
}

// attempt performs a single authenticated round trip.
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, attempt int, requestID string) (json.RawMessage, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		// Already classified by the token manager.
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attemptCtx, span := c.tracer.Start(attemptCtx, "unopim.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("url.path", path),
			attribute.Int("unopim.attempt", attempt),
			attribute.String("unopim.request_id", requestID),
		))
	defer span.End()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, reqBody)
	if err != nil {
		span.SetStatus(codes.Error, "request build failed")
		return nil, domain.WrapAPIError(domain.ErrValidation, fmt.Sprintf("failed to build request for %s %s", method, path), err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		span.SetStatus(codes.Error, "transport failure")
		// Timeouts and connection failures classify alike.
		return nil, domain.WrapAPIError(domain.ErrNetwork, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.SetStatus(codes.Error, "body read failure")
		return nil, domain.WrapAPIError(domain.ErrNetwork, "failed to read response body", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
			return nil, nil
		}
		return json.RawMessage(respBody), nil
	}

	apiErr := classifyStatus(resp.StatusCode, respBody)
	span.SetStatus(codes.Error, string(apiErr.Kind))
	return nil, apiErr
}
