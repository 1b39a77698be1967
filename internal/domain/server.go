package domain

import "context"

// ProxyType enumerates the tunnel protocols a server speaks.
type ProxyType string

const (
	ProxyHTTP      ProxyType = "http"
	ProxyHTTPS     ProxyType = "https"
	ProxySOCKS5    ProxyType = "socks5"
	ProxyOpenVPN   ProxyType = "openvpn"
	ProxyWireGuard ProxyType = "wireguard"
)

// Server is one catalog entry. Entries are immutable once fetched; the
// catalog is replaced wholesale, never patched.
type Server struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	CountryCode    string    `json:"country_code"`
	City           string    `json:"city"`
	ProxyType      ProxyType `json:"proxy_type"`
	Host           string    `json:"host"`
	Port           int       `json:"port"`
	IsPremium      bool      `json:"is_premium"`
	IsOnline       bool      `json:"is_online"`
	LoadPercentage int       `json:"load_percentage"`
	PingMs         int       `json:"ping_ms"`
}

// CatalogAPI is the backend catalog surface consumed by the connection
// manager. Requests carry whatever credential the client's CredentialSource
// currently yields.
type CatalogAPI interface {
	Servers(ctx context.Context) ([]Server, error)
	ServerByID(ctx context.Context, id string) (*Server, error)
}
