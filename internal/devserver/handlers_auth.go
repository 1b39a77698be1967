package devserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/resuldeger/vpnapp/internal/domain"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type authResponse struct {
	AccessToken      string                  `json:"access_token"`
	TokenType        string                  `json:"token_type"`
	UserID           string                  `json:"user_id"`
	SubscriptionTier domain.SubscriptionTier `json:"subscription_tier"`
}

func detail(c echo.Context, code int, message string) error {
	return c.JSON(code, echo.Map{"detail": message})
}

func (s *Server) rateLimitLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.loginLimiter.allow(c.RealIP()) {
			return detail(c, http.StatusTooManyRequests, "Too many login attempts")
		}
		return next(c)
	}
}

// requireAuth resolves the bearer token to an account and stores it under
// the "account" context key.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}

		userID, err := s.tokens.validate(token)
		if err != nil {
			if errors.Is(err, errExpiredToken) {
				return detail(c, http.StatusUnauthorized, "Token expired")
			}
			return detail(c, http.StatusUnauthorized, "Invalid token")
		}

		acc, err := s.users.getByID(userID)
		if err != nil {
			return detail(c, http.StatusUnauthorized, "User not found")
		}

		c.Set("account", acc)
		return next(c)
	}
}

func (s *Server) handleRegister(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return detail(c, http.StatusUnprocessableEntity, "Invalid email address")
	}
	if len(req.Password) < 6 {
		return detail(c, http.StatusUnprocessableEntity, "Password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return detail(c, http.StatusInternalServerError, "Internal error")
	}

	acc, err := s.users.create(req.Email, hash)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			return detail(c, http.StatusBadRequest, "Email already registered")
		}
		return detail(c, http.StatusInternalServerError, "Internal error")
	}

	token, err := s.tokens.issue(acc.ID, acc.SubscriptionTier)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		return detail(c, http.StatusInternalServerError, "Internal error")
	}

	return c.JSON(http.StatusOK, authResponse{
		AccessToken:      token,
		TokenType:        "bearer",
		UserID:           acc.ID,
		SubscriptionTier: acc.SubscriptionTier,
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request body")
	}

	acc, err := s.users.getByEmail(req.Email)
	if err != nil || bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)) != nil {
		return detail(c, http.StatusUnauthorized, "Invalid email or password")
	}

	token, err := s.tokens.issue(acc.ID, acc.SubscriptionTier)
	if err != nil {
		slog.Error("Failed to issue token", "error", err)
		return detail(c, http.StatusInternalServerError, "Internal error")
	}

	return c.JSON(http.StatusOK, authResponse{
		AccessToken:      token,
		TokenType:        "bearer",
		UserID:           acc.ID,
		SubscriptionTier: acc.SubscriptionTier,
	})
}

func (s *Server) handleForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return detail(c, http.StatusBadRequest, "Invalid request body")
	}

	// No mail delivery in the dev server; succeed regardless so the flow is
	// exercisable without leaking which emails exist.
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (s *Server) handleProfile(c echo.Context) error {
	acc := c.Get("account").(*account)

	return c.JSON(http.StatusOK, domain.User{
		ID:                    acc.ID,
		Email:                 acc.Email,
		SubscriptionTier:      acc.SubscriptionTier,
		SubscriptionExpiresAt: acc.SubscriptionExpiresAt,
		CreatedAt:             acc.CreatedAt,
	})
}
