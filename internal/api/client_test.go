package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resuldeger/vpnapp/internal/domain"
)

type staticCredential string

func (s staticCredential) Credential() string {
	return string(s)
}

func TestLoginParsesAuthResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["email"])
		assert.Equal(t, "secret123", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token":      "tok-1",
			"token_type":        "bearer",
			"user_id":           "u-1",
			"subscription_tier": "free",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	result, err := client.Login(context.Background(), "user@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", result.AccessToken)
	assert.Equal(t, "u-1", result.UserID)
	assert.Equal(t, domain.TierFree, result.SubscriptionTier)
}

func TestErrorResponseCarriesBackendDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Email already registered"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	_, err := client.Register(context.Background(), "user@example.com", "secret123")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Email already registered", apiErr.Detail)
	assert.Equal(t, "Email already registered", apiErr.APIDetail())
}

func TestErrorResponseWithoutDetailPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	_, err := client.Login(context.Background(), "user@example.com", "secret123")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Detail)
}

func TestAuthenticatedRequestSendsBearerFromSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-42", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(domain.User{ID: "u-1", Email: "user@example.com", SubscriptionTier: domain.TierPremium})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, staticCredential("tok-42"))
	user, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, domain.TierPremium, user.SubscriptionTier)
}

func TestAuthenticatedRequestOmitsHeaderWhenCredentialEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]domain.Server{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, staticCredential(""))
	_, err := client.Servers(context.Background())
	require.NoError(t, err)
}

func TestSetCredentialSourceTakesEffectOnNextRequest(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(domain.User{ID: "u-1"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	client.SetCredentialSource(staticCredential("tok-later"))

	_, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-later", seen.Load())
}

func TestServersParsesCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/proxies", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]domain.Server{
			{ID: "s-1", Name: "Istanbul", ProxyType: domain.ProxyHTTPS, IsOnline: true},
			{ID: "s-2", Name: "Berlin", ProxyType: domain.ProxyWireGuard, IsPremium: true},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, staticCredential("tok"))
	servers, err := client.Servers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "Istanbul", servers[0].Name)
	assert.True(t, servers[1].IsPremium)
}

func TestServerByIDMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Proxy server not found"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, staticCredential("tok"))
	_, err := client.ServerByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrServerNotFound)
}

func TestCatalogBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, staticCredential("tok"))

	for n := 0; n < catalogBreakerFailures; n++ {
		_, err := client.Servers(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, int32(catalogBreakerFailures), calls.Load())

	_, err := client.Servers(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(catalogBreakerFailures), calls.Load(), "open breaker must not hit the backend")
}

func TestHealthProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second, nil)
	assert.NoError(t, client.Health(context.Background()))
}
