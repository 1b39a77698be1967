package devserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resuldeger/vpnapp/internal/config"
	"github.com/resuldeger/vpnapp/internal/domain"
	"github.com/resuldeger/vpnapp/internal/version"
)

const upgradeDuration = 30 * 24 * time.Hour

type Server struct {
	echo         *echo.Echo
	cfg          *config.Config
	users        *userStore
	catalog      []domain.Server
	tokens       *tokenIssuer
	loginLimiter *ipLimiter
}

func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("VPNAPP_JWT_SECRET is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:         e,
		cfg:          cfg,
		users:        newUserStore(),
		catalog:      seedCatalog(),
		tokens:       newTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour),
		loginLimiter: newIPLimiter(cfg.LoginRatePerMin),
	}

	srv.registerRoutes()
	return srv, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")
	api.GET("/health", s.handleHealth)

	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin, s.rateLimitLogin)
	api.POST("/auth/forgot-password", s.handleForgotPassword)
	api.GET("/auth/profile", s.handleProfile, s.requireAuth)

	api.GET("/proxies", s.handleProxies, s.requireAuth)
	api.GET("/proxies/:id", s.handleProxyByID, s.requireAuth)

	api.POST("/subscription/upgrade", s.handleUpgrade, s.requireAuth)
}

// Start begins serving on the configured port. Blocks until shutdown.
func (s *Server) Start() error {
	addr := ":" + s.cfg.Port
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the echo engine for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "healthy",
		"version":   version.Get().Version,
		"timestamp": time.Now().UTC(),
	})
}
