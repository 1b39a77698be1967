package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/resuldeger/vpnapp/internal/domain"
)

// Servers fetches the full server catalog. Calls go through the catalog
// circuit breaker so a failing backend is backed off instead of hammered.
func (c *Client) Servers(ctx context.Context) ([]domain.Server, error) {
	result, err := c.catalogBreaker.Execute(func() (any, error) {
		var servers []domain.Server
		if err := c.do(ctx, http.MethodGet, "/proxies", nil, &servers, true, "catalog"); err != nil {
			return nil, err
		}
		return servers, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Server), nil
}

// ServerByID fetches a single catalog entry. A 404 maps to
// domain.ErrServerNotFound.
func (c *Client) ServerByID(ctx context.Context, id string) (*domain.Server, error) {
	var server domain.Server
	if err := c.do(ctx, http.MethodGet, "/proxies/"+id, nil, &server, true, "catalog_entry"); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, domain.ErrServerNotFound
		}
		return nil, err
	}
	return &server, nil
}

// Health probes the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, false, "health")
}
