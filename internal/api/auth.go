package api

import (
	"context"
	"net/http"

	"github.com/resuldeger/vpnapp/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

// Register creates a new account and returns the issued token.
func (c *Client) Register(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	var result domain.AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/register", credentialsRequest{Email: email, Password: password}, &result, false, "register")
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Login authenticates an existing account and returns the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	var result domain.AuthResult
	err := c.do(ctx, http.MethodPost, "/auth/login", credentialsRequest{Email: email, Password: password}, &result, false, "login")
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Profile fetches the account profile for the current credential.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &user, true, "profile"); err != nil {
		return nil, err
	}
	return &user, nil
}

// ForgotPassword requests a password reset mail. The response body is unused.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", emailRequest{Email: email}, nil, false, "forgot_password")
}

// UpgradeSubscription upgrades the current account to the premium tier.
func (c *Client) UpgradeSubscription(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/subscription/upgrade", nil, nil, true, "upgrade")
}
