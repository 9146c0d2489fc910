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
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

// refreshBuffer is how long before expiry a cached token is considered
// near-expiry and proactively refreshed.
const refreshBuffer = 5 * time.Minute

// TokenManager owns the single cached bearer token of the process. It
// acquires tokens with the OAuth2 password grant, proactively renews them
// with the refresh grant inside the expiry buffer, and recovers from
// staleness when the request executor invalidates the cache after a 401.
//
// Concurrent callers hitting an empty or stale cache share one in-flight
// exchange instead of issuing duplicate acquisition requests.
type TokenManager struct {
	endpoint string
	creds    domain.Credentials
	client   *http.Client
	logger   *slog.Logger

	now    func() time.Time
	delays []time.Duration

	mu     sync.Mutex
	cached *cachedToken

	flight singleflight.Group
}

// cachedToken is replaced wholesale on every acquisition or refresh, never
// partially updated.
type cachedToken struct {
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// tokenResponse is the token endpoint's 200 body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewTokenManager creates a token manager for one tenant's credentials
// against the backend at baseURL.
func NewTokenManager(baseURL string, creds domain.Credentials, client *http.Client, logger *slog.Logger) *TokenManager {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenManager{
		endpoint: strings.TrimSuffix(baseURL, "/") + "/oauth/token",
		creds:    creds,
		client:   client,
		logger:   logger.With("component", "token_manager"),
		now:      time.Now,
		delays:   defaultRetryDelays,
	}
}

// Token returns a usable bearer token, acquiring or refreshing one as needed.
// A token outside the expiry buffer is returned without any network call.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok := m.current(); tok != nil && m.fresh(tok) {
		return tok.accessToken, nil
	}

	v, err, _ := m.flight.Do("exchange", func() (any, error) {
		// A concurrent caller may have completed the exchange while this one
		// waited for flight leadership.
		if tok := m.current(); tok != nil && m.fresh(tok) {
			return tok.accessToken, nil
		}

		if tok := m.current(); tok != nil && tok.refreshToken != "" && m.now().Before(tok.expiresAt) {
			// Near expiry but still valid: try the refresh grant first.
			fresh, refreshErr := m.exchange(ctx, map[string]string{
				"refresh_token": tok.refreshToken,
				"grant_type":    "refresh_token",
			})
			if refreshErr == nil {
				m.store(fresh)
				return fresh.accessToken, nil
			}
			m.logger.Warn("Token refresh failed, falling back to full acquisition.", slog.Any("error", refreshErr))
		}

		fresh, acquireErr := m.exchange(ctx, map[string]string{
			"username":   m.creds.Username,
			"password":   m.creds.Password,
			"grant_type": "password",
		})
		if acquireErr != nil {
			return "", acquireErr
		}
		m.store(fresh)
		return fresh.accessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token. Called exclusively by the request
// executor after a 401 on a request that presented the cached token.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
	m.logger.Debug("Cached token invalidated.")
}

func (m *TokenManager) current() *cachedToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached
}

func (m *TokenManager) store(tok *cachedToken) {
	m.mu.Lock()
	m.cached = tok
	m.mu.Unlock()
}

func (m *TokenManager) fresh(tok *cachedToken) bool {
	return m.now().Before(tok.expiresAt.Add(-refreshBuffer))
}

// exchange performs the grant exchange under the fixed retry schedule.
// Definitive rejections by the token endpoint (any non-429 4xx) abort the
// schedule early; transient failures exhaust it and surface as AuthFailed.
func (m *TokenManager) exchange(ctx context.Context, grant map[string]string) (*cachedToken, error) {
	grantType := grant["grant_type"]
	log := m.logger.With(slog.String("grant_type", grantType))

	var lastErr *domain.APIError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := sleepFor(ctx, m.delays[attempt-1]); err != nil {
			return nil, domain.WrapAPIError(domain.ErrNetwork, "token exchange cancelled", err)
		}

		tok, err := m.requestToken(ctx, grant)
		if err == nil {
			log.Debug("Token exchange succeeded.", slog.Int("attempt", attempt))
			return tok, nil
		}

		lastErr, _ = domain.AsAPIError(err)
		log.Warn("Token exchange attempt failed.",
			slog.Int("attempt", attempt), slog.Any("error", err))

		if lastErr.Status >= 400 && lastErr.Status < 500 && lastErr.Status != http.StatusTooManyRequests {
			// The endpoint rejected the grant outright; more attempts with the
			// same credentials cannot succeed.
			break
		}
	}

	return nil, domain.WrapAPIError(domain.ErrAuthFailed,
		fmt.Sprintf("%s grant exchange failed: %s", grantType, lastErr.Message), lastErr)
}

// requestToken issues one POST to the token endpoint. Failures always come
// back classified.
func (m *TokenManager) requestToken(ctx context.Context, grant map[string]string) (*cachedToken, error) {
	payload, err := json.Marshal(grant)
	if err != nil {
		return nil, domain.WrapAPIError(domain.ErrAuthFailed, "failed to encode grant request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.WrapAPIError(domain.ErrAuthFailed, "failed to build token request", err)
	}
	req.SetBasicAuth(m.creds.ClientID, m.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, domain.WrapAPIError(domain.ErrNetwork, "token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.WrapAPIError(domain.ErrNetwork, "failed to read token response", err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := domain.ErrAuthFailed
		if resp.StatusCode >= 500 {
			kind = domain.ErrServer
		} else if resp.StatusCode == http.StatusTooManyRequests {
			kind = domain.ErrRateLimited
		}
		return nil, domain.NewAPIError(kind, resp.StatusCode, responseMessage(body, "token endpoint rejected the grant"))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, domain.WrapAPIError(domain.ErrAuthFailed, "malformed token response", err)
	}
	if tr.AccessToken == "" {
		return nil, domain.NewAPIError(domain.ErrAuthFailed, resp.StatusCode, "token response carried no access token")
	}

	return &cachedToken{
		accessToken:  tr.AccessToken,
		refreshToken: tr.RefreshToken,
		expiresAt:    m.now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
