package config

import "time"

// SessionConfig controls the MCP session manager.
type SessionConfig struct {
	IdleTimeout        time.Duration `yaml:"idle_timeout"`
	ReaperInterval     time.Duration `yaml:"reaper_interval"`
	ReconnectTokenTTL  time.Duration `yaml:"reconnect_token_ttl"`
	SessionSecretEnv   string        `yaml:"session_secret_env"`
	AllowDevAutoSecret bool          `yaml:"allow_dev_auto_secret"`
}

// DefaultSessionConfig returns the built-in session manager defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		IdleTimeout:        5 * time.Minute,
		ReaperInterval:     30 * time.Second,
		ReconnectTokenTTL:  15 * time.Minute,
		SessionSecretEnv:   "MCP_SESSION_SECRET",
		AllowDevAutoSecret: false,
	}
}
