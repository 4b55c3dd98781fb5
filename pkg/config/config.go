package config

// Config is the umbrella configuration object that encapsulates all
// registries, defaults, and configuration state. This is the primary
// object returned by Initialize() and threaded through the composition
// root instead of being read from package-level state.
type Config struct {
	configDir string

	Defaults *Defaults

	ProviderRegistry *ProviderRegistry
	Ingestion        *IngestionConfig
	Retrieval        *RetrievalConfig
	Session          *SessionConfig
	Retention        *RetentionConfig
	RBAC             *RBACConfig
	System           *SystemConfig
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration, useful for
// startup logging.
type ConfigStats struct {
	Providers int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		Providers: c.ProviderRegistry.Len(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetProvider retrieves a provider configuration by name. Convenience
// wrapper around ProviderRegistry.Get().
func (c *Config) GetProvider(name string) (*ProviderConfig, error) {
	return c.ProviderRegistry.Get(name)
}

// GetChatProvider resolves the Defaults.ChatProvider entry.
func (c *Config) GetChatProvider() (*ProviderConfig, error) {
	return c.ProviderRegistry.Get(c.Defaults.ChatProvider)
}

// GetEmbeddingProvider resolves the Defaults.EmbeddingProvider entry.
func (c *Config) GetEmbeddingProvider() (*ProviderConfig, error) {
	return c.ProviderRegistry.Get(c.Defaults.EmbeddingProvider)
}

// GetRerankProvider resolves the Defaults.RerankProvider entry. Returns
// ErrProviderNotFound if reranking is disabled (empty Defaults.RerankProvider).
func (c *Config) GetRerankProvider() (*ProviderConfig, error) {
	return c.ProviderRegistry.Get(c.Defaults.RerankProvider)
}
