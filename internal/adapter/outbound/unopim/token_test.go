package unopim

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oledmansfeld/unopim-mcp/internal/domain"
)

var testCreds = domain.Credentials{
	ClientID:     "client-1",
	ClientSecret: "secret-1",
	Username:     "admin@example.com",
	Password:     "hunter2",
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestTokenManager(t *testing.T, handler http.HandlerFunc) (*TokenManager, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	tm := NewTokenManager(server.URL, testCreds, server.Client(), testLogger())
	tm.delays = []time.Duration{0, 0, 0} // keep retry tests fast
	return tm, server
}

func tokenHandler(calls *atomic.Int32, expiresIn int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "token-new",
			"refresh_token": "refresh-new",
			"token_type":    "Bearer",
			"expires_in":    expiresIn,
		})
	}
}

func TestTokenManager_FreshTokenMakesNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, tokenHandler(&calls, 3600))

	tm.store(&cachedToken{
		accessToken: "token-cached",
		expiresAt:   time.Now().Add(10 * time.Minute),
	})

	got, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-cached", got)
	assert.Equal(t, int32(0), calls.Load())
}

func TestTokenManager_ExpiredTokenTriggersExactlyOneAcquisition(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		var grant map[string]string
		require.NoError(t, json.Unmarshal(body, &grant))
		// Past expiry the refresh grant is pointless; a full acquisition runs.
		assert.Equal(t, "password", grant["grant_type"])
		tokenHandler(&atomic.Int32{}, 3600)(w, r)
	})

	tm.store(&cachedToken{
		accessToken:  "token-stale",
		refreshToken: "refresh-stale",
		expiresAt:    time.Now().Add(-time.Minute),
	})

	got, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-new", got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenManager_AcquisitionSendsPasswordGrantWithBasicAuth(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/oauth/token", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, testCreds.ClientID, user)
		assert.Equal(t, testCreds.ClientSecret, pass)

		var grant map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))
		assert.Equal(t, map[string]string{
			"username":   testCreds.Username,
			"password":   testCreds.Password,
			"grant_type": "password",
		}, grant)

		tokenHandler(&atomic.Int32{}, 3600)(w, r)
	})

	got, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-new", got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenManager_NearExpiryRefreshesWithRefreshGrant(t *testing.T) {
	var grants []string
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		var grant map[string]string
		_ = json.NewDecoder(r.Body).Decode(&grant)
		grants = append(grants, grant["grant_type"])
		assert.Equal(t, "refresh-old", grant["refresh_token"])
		tokenHandler(&atomic.Int32{}, 3600)(w, r)
	})

	tm.store(&cachedToken{
		accessToken:  "token-old",
		refreshToken: "refresh-old",
		expiresAt:    time.Now().Add(2 * time.Minute), // inside the 5m buffer
	})

	got, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-new", got)
	assert.Equal(t, []string{"refresh_token"}, grants)
}

func TestTokenManager_RefreshFailureFallsBackToAcquisition(t *testing.T) {
	var grants []string
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		var grant map[string]string
		_ = json.NewDecoder(r.Body).Decode(&grant)
		grants = append(grants, grant["grant_type"])
		if grant["grant_type"] == "refresh_token" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		tokenHandler(&atomic.Int32{}, 3600)(w, r)
	})

	tm.store(&cachedToken{
		accessToken:  "token-old",
		refreshToken: "refresh-old",
		expiresAt:    time.Now().Add(2 * time.Minute),
	})

	got, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-new", got)
	assert.Equal(t, []string{"refresh_token", "password"}, grants)
}

func TestTokenManager_RetriesTransientFailuresOnSchedule(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		tokenHandler(&atomic.Int32{}, 3600)(w, r)
	})

	got, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-new", got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestTokenManager_ExhaustedScheduleYieldsAuthFailed(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := tm.Token(context.Background())
	require.Error(t, err)
	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrAuthFailed, apiErr.Kind)
	assert.Equal(t, int32(3), calls.Load(), "fixed schedule allows exactly 3 attempts")
}

func TestTokenManager_DefinitiveRejectionAbortsScheduleEarly(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_client"})
	})

	_, err := tm.Token(context.Background())
	require.Error(t, err)
	apiErr, ok := domain.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrAuthFailed, apiErr.Kind)
	assert.Equal(t, int32(1), calls.Load(), "bad credentials cannot improve with retries")
}

func TestTokenManager_InvalidateForcesReacquisition(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, tokenHandler(&calls, 3600))

	first, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// Valid cache: no further calls.
	_, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	tm.Invalidate()
	second, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, first, second, "same token value, freshly acquired")
}

func TestTokenManager_ConcurrentCallersShareOneAcquisition(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond) // widen the race window
		tokenHandler(&atomic.Int32{}, 3600)(w, r)
	})

	const workers = 8
	var wg sync.WaitGroup
	results := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := tm.Token(context.Background())
			assert.NoError(t, err)
			results[i] = tok
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent empty-state callers must share one exchange")
	for _, tok := range results {
		assert.Equal(t, "token-new", tok)
	}
}
