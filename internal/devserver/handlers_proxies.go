package devserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/resuldeger/vpnapp/internal/domain"
)

// handleProxies returns the catalog. Free-tier accounts only see
// non-premium entries, matching the production backend.
func (s *Server) handleProxies(c echo.Context) error {
	acc := c.Get("account").(*account)

	servers := make([]domain.Server, 0, len(s.catalog))
	for _, server := range s.catalog {
		if server.IsPremium && acc.SubscriptionTier == domain.TierFree {
			continue
		}
		servers = append(servers, server)
	}

	return c.JSON(http.StatusOK, servers)
}

func (s *Server) handleProxyByID(c echo.Context) error {
	acc := c.Get("account").(*account)
	id := c.Param("id")

	for _, server := range s.catalog {
		if server.ID != id {
			continue
		}
		if server.IsPremium && acc.SubscriptionTier == domain.TierFree {
			return detail(c, http.StatusForbidden, "Premium subscription required")
		}
		return c.JSON(http.StatusOK, server)
	}

	return detail(c, http.StatusNotFound, "Proxy server not found")
}

// handleUpgrade simulates a billing integration: the account becomes premium
// for 30 days.
func (s *Server) handleUpgrade(c echo.Context) error {
	acc := c.Get("account").(*account)

	if err := s.users.upgrade(acc.ID, upgradeDuration); err != nil {
		return detail(c, http.StatusInternalServerError, "Internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Subscription upgraded successfully"})
}
