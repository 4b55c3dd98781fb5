package config

import "time"

// RetentionConfig controls data retention and cleanup behavior for MCP
// session/request history and completed ingestion pipeline records. The
// values are loaded with the rest of the configuration; no cleanup sweep
// reads them, so no rows are deleted by age.
type RetentionConfig struct {
	// MCPRequestRetentionDays is how many days of MCPRequest rows to keep.
	MCPRequestRetentionDays int `yaml:"mcp_request_retention_days"`

	// DisconnectedSessionRetentionDays is how many days a disconnected
	// MCPSession row is kept (for reconnect-failure auditing).
	DisconnectedSessionRetentionDays int `yaml:"disconnected_session_retention_days"`

	// CleanupInterval is the interval for a retention sweep.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		MCPRequestRetentionDays:          90,
		DisconnectedSessionRetentionDays: 30,
		CleanupInterval:                  12 * time.Hour,
	}
}
