package config

// Defaults holds system-wide default selections used when a request
// doesn't pin a specific provider.
type Defaults struct {
	// ChatProvider names the default ProviderConfig used for summarization
	// and rerank-adjacent chat calls.
	ChatProvider string `yaml:"chat_provider,omitempty"`

	// EmbeddingProvider names the default ProviderConfig used to embed
	// chunks and queries.
	EmbeddingProvider string `yaml:"embedding_provider,omitempty"`

	// RerankProvider names the default ProviderConfig used by the
	// retrieval engine's optional rerank stage. Empty disables reranking.
	RerankProvider string `yaml:"rerank_provider,omitempty"`
}
