package config

import "time"

// SystemConfig holds process-mode and HTTP-surface settings that don't
// belong to any single component.
type SystemConfig struct {
	// Mode selects local (embedded Postgres/filesystem) vs remote (managed
	// storage) deployment, mirroring the MODE env var.
	Mode string `yaml:"mode"`

	// BearerSecretEnv names the env var holding the HMAC secret used to
	// verify inbound Authorization: Bearer JWTs on the HTTP API. Distinct
	// from SessionConfig.SessionSecretEnv, which only signs MCP reconnect
	// tokens.
	BearerSecretEnv string `yaml:"bearer_secret_env"`

	// The four settings below are loaded from YAML but nothing outside
	// this package reads them: they do not change endpoint access, CORS
	// handling, startup, or reconnect-token lifetime.

	// AllowAnonymousRead names anonymous access to read-only endpoints.
	AllowAnonymousRead bool `yaml:"allow_anonymous_read"`

	// AllowedOrigins names a CORS allow-list for the HTTP API.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// BackupOnStart names a storage backup before migrations run.
	BackupOnStart bool `yaml:"backup_on_start"`

	// ReconnectTokenExpiry is a reconnect-token lifetime; MCP reconnect
	// tokens use SessionConfig.ReconnectTokenTTL instead, and no
	// environment variable overrides this field.
	ReconnectTokenExpiry time.Duration `yaml:"reconnect_token_expiry"`
}

// DefaultSystemConfig returns the built-in system defaults.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		Mode:                 "local",
		BearerSecretEnv:      "ARCHON_JWT_SECRET",
		AllowAnonymousRead:   false,
		AllowedOrigins:       []string{"*"},
		BackupOnStart:        false,
		ReconnectTokenExpiry: 15 * time.Minute,
	}
}
