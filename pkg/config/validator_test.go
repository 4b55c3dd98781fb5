package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfigForTest() *Config {
	return &Config{
		configDir: "/tmp",
		Defaults:  builtinDefaults(),
		ProviderRegistry: NewProviderRegistry(func() map[string]*ProviderConfig {
			m := map[string]*ProviderConfig{}
			for name, p := range builtinProviders() {
				cp := p
				m[name] = &cp
			}
			return m
		}()),
		Ingestion: DefaultIngestionConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Session:   DefaultSessionConfig(),
		Retention: DefaultRetentionConfig(),
		RBAC:      DefaultRBACConfig(),
		System:    DefaultSystemConfig(),
	}
}

func TestValidateAllPassesForDefaults(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Session.AllowDevAutoSecret = true

	err := NewValidator(cfg).ValidateAll()
	require.NoError(t, err)
}

func TestValidateDefaultsRejectsUnknownProvider(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Defaults.ChatProvider = "nonexistent"

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestValidateIngestionRejectsDepthAboveCeiling(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Ingestion.DefaultMaxDepth = 8
	cfg.Ingestion.MaxDepthCeiling = 5

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion validation failed")
}

func TestValidateSessionRequiresSecretUnlessDevMode(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Session.AllowDevAutoSecret = false

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCP_SESSION_SECRET")
}

func TestValidateSystemRejectsUnknownMode(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Session.AllowDevAutoSecret = true
	cfg.System.Mode = "staging"

	err := NewValidator(cfg).ValidateAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mode")
}
