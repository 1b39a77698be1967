package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultConnectDelay    = 2 * time.Second
	defaultDisconnectDelay = 1 * time.Second
	defaultHTTPTimeout     = 30 * time.Second
)

type Config struct {
	AppEnv          string        `yaml:"app_env"`
	APIBaseURL      string        `yaml:"api_base_url"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	TokenFile       string        `yaml:"token_file"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	ConnectDelay    time.Duration `yaml:"connect_delay"`
	DisconnectDelay time.Duration `yaml:"disconnect_delay"`

	// Dev server settings
	Port            string `yaml:"port"`
	JWTSecret       string `yaml:"jwt_secret"`
	JWTExpiryHours  int    `yaml:"jwt_expiry_hours"`
	LoginRatePerMin int    `yaml:"login_rate_per_min"`
}

// Load builds the configuration from an optional YAML file (VPNAPP_CONFIG)
// with environment variables taking precedence over file values.
func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:          "development",
		APIBaseURL:      "http://localhost:8080/api",
		LogLevel:        "info",
		LogFormat:       "text",
		HTTPTimeout:     defaultHTTPTimeout,
		ConnectDelay:    defaultConnectDelay,
		DisconnectDelay: defaultDisconnectDelay,
		Port:            "8080",
		JWTExpiryHours:  24,
		LoginRatePerMin: 10,
	}

	if path := os.Getenv("VPNAPP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.APIBaseURL = getEnv("VPNAPP_API_URL", cfg.APIBaseURL)
	cfg.LogLevel = getEnv("VPNAPP_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("VPNAPP_LOG_FORMAT", cfg.LogFormat)
	cfg.TokenFile = getEnv("VPNAPP_TOKEN_FILE", cfg.TokenFile)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.JWTSecret = getEnv("VPNAPP_JWT_SECRET", cfg.JWTSecret)

	var err error
	if cfg.HTTPTimeout, err = getDuration("VPNAPP_HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.ConnectDelay, err = getDuration("VPNAPP_CONNECT_DELAY", cfg.ConnectDelay); err != nil {
		return nil, err
	}
	if cfg.DisconnectDelay, err = getDuration("VPNAPP_DISCONNECT_DELAY", cfg.DisconnectDelay); err != nil {
		return nil, err
	}
	if cfg.JWTExpiryHours, err = getInt("VPNAPP_JWT_EXPIRY_HOURS", cfg.JWTExpiryHours); err != nil {
		return nil, err
	}
	if cfg.LoginRatePerMin, err = getInt("VPNAPP_LOGIN_RATE_PER_MIN", cfg.LoginRatePerMin); err != nil {
		return nil, err
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("VPNAPP_API_URL is required")
	}
	if cfg.ConnectDelay <= 0 {
		return nil, fmt.Errorf("VPNAPP_CONNECT_DELAY must be positive")
	}
	if cfg.DisconnectDelay <= 0 {
		return nil, fmt.Errorf("VPNAPP_DISCONNECT_DELAY must be positive")
	}
	if cfg.LoginRatePerMin <= 0 {
		return nil, fmt.Errorf("VPNAPP_LOGIN_RATE_PER_MIN must be positive")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 2s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
