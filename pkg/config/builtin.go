package config

// builtinProviders returns the default set of provider descriptors
// available without any user configuration. User-defined providers in
// providers.yaml are merged on top of these (see mergeProviders).
func builtinProviders() map[string]ProviderConfig {
	return map[string]ProviderConfig{
		"openai-chat": {
			Name:        "openai-chat",
			Kind:        ProviderKindChat,
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			RequiresKey: true,
			PriceInput:  0.15,
			PriceOutput: 0.60,
		},
		"openai-embedding": {
			Name:        "openai-embedding",
			Kind:        ProviderKindEmbedding,
			Model:       "text-embedding-3-small",
			Dimension:   1536,
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			RequiresKey: true,
			BatchLimit:  96,
		},
		"openai-embedding-large": {
			Name:        "openai-embedding-large",
			Kind:        ProviderKindEmbedding,
			Model:       "text-embedding-3-large",
			Dimension:   3072,
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			RequiresKey: true,
			BatchLimit:  96,
		},
		"ollama-embedding": {
			Name:        "ollama-embedding",
			Kind:        ProviderKindEmbedding,
			Model:       "nomic-embed-text",
			Dimension:   768,
			BaseURL:     "http://localhost:11434/v1",
			RequiresKey: false,
			BatchLimit:  32,
		},
		"jina-rerank": {
			Name:        "jina-rerank",
			Kind:        ProviderKindRerank,
			Model:       "jina-reranker-v2-base-multilingual",
			BaseURL:     "https://api.jina.ai/v1",
			APIKeyEnv:   "JINA_API_KEY",
			RequiresKey: true,
		},
	}
}

func builtinDefaults() *Defaults {
	return &Defaults{
		ChatProvider:      "openai-chat",
		EmbeddingProvider: "openai-embedding",
		RerankProvider:    "",
	}
}
