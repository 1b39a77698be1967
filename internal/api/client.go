// Package api implements the HTTP client for the vpnapp backend.
//
// The client owns no session state: authenticated requests pull their bearer
// credential from a CredentialSource at send time, so a logout is visible to
// every in-flight caller and nothing leaks through a global default header.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/resuldeger/vpnapp/internal/domain"
	"github.com/resuldeger/vpnapp/internal/metrics"
)

const (
	catalogBreakerTimeout  = 30 * time.Second
	catalogBreakerFailures = 5
)

// APIError is a non-2xx backend response. Detail carries the backend's
// human-readable message when the payload had one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// APIDetail returns the backend-provided message, if any. Callers reach it
// through an anonymous interface so they need no compile-time dependency on
// this package.
func (e *APIError) APIDetail() string {
	return e.Detail
}

// Client talks to the vpnapp backend API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	creds          domain.CredentialSource
	catalogBreaker *gobreaker.CircuitBreaker
}

// NewClient creates a backend client. creds supplies the bearer credential
// for authenticated endpoints and may be nil for a purely anonymous client.
func NewClient(baseURL string, timeout time.Duration, creds domain.CredentialSource) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Timeout:     catalogBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= catalogBreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
		},
	})

	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: timeout},
		creds:          creds,
		catalogBreaker: breaker,
	}
}

// SetCredentialSource installs the credential source after construction.
// Needed because the session manager both owns the credential and depends on
// this client.
func (c *Client) SetCredentialSource(creds domain.CredentialSource) {
	c.creds = creds
}

// do sends one JSON request. body and out may be nil. When authed is true the
// current credential (if any) is attached as a bearer header.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool, endpoint string) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.creds != nil {
		if token := c.creds.Credential(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.APIRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Detail: extractDetail(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// extractDetail pulls the backend's message out of an error payload.
func extractDetail(body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
