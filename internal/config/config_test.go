package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIBaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 2*time.Second, cfg.ConnectDelay)
	assert.Equal(t, 1*time.Second, cfg.DisconnectDelay)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24, cfg.JWTExpiryHours)
	assert.Equal(t, 10, cfg.LoginRatePerMin)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("VPNAPP_API_URL", "https://api.example.com/api")
	t.Setenv("VPNAPP_LOG_LEVEL", "debug")
	t.Setenv("VPNAPP_CONNECT_DELAY", "500ms")
	t.Setenv("VPNAPP_JWT_EXPIRY_HOURS", "48")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 500*time.Millisecond, cfg.ConnectDelay)
	assert.Equal(t, 48, cfg.JWTExpiryHours)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_base_url: https://file.example.com/api
log_format: json
disconnect_delay: 3s
`), 0o600))
	t.Setenv("VPNAPP_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 3*time.Second, cfg.DisconnectDelay)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base_url: https://file.example.com/api\n"), 0o600))
	t.Setenv("VPNAPP_CONFIG", path)
	t.Setenv("VPNAPP_API_URL", "https://env.example.com/api")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api", cfg.APIBaseURL)
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	t.Setenv("VPNAPP_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad duration", "VPNAPP_CONNECT_DELAY", "not-a-duration"},
		{"bad integer", "VPNAPP_JWT_EXPIRY_HOURS", "many"},
		{"zero connect delay", "VPNAPP_CONNECT_DELAY", "0s"},
		{"negative disconnect delay", "VPNAPP_DISCONNECT_DELAY", "-1s"},
		{"zero login rate", "VPNAPP_LOGIN_RATE_PER_MIN", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
