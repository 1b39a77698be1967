// Package config loads application configuration.
//
// Sources, in increasing precedence: built-in defaults, an optional YAML file
// named by VPNAPP_CONFIG, environment variables. Validation is fail-fast at
// load time so a misconfigured process never starts half-working.
package config
