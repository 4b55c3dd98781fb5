// Package provider talks to chat, embedding, and reranking backends
// through one Gateway interface, keyed by the provider descriptors held
// in config.ProviderRegistry.
package provider

import "context"

// Message is one turn of a chat conversation.
type Message struct {
	Role    string
	Content string
}

// ChatOptions tunes a single Chat call.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// Completion is a chat provider's response to one request.
type Completion struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// ScoredDoc is one document ranked by a Rerank call, preserving its
// original index so the caller can map back to its source candidate.
type ScoredDoc struct {
	Index int
	Score float64
}

// Gateway is the capability surface Archon calls against a concrete
// provider (OpenAI-compatible, Ollama, Jina, ...). Implementations need
// not support every method: an embedding-only provider's Chat/Rerank are
// simply never invoked by a correctly configured registry.
type Gateway interface {
	EmbedOne(ctx context.Context, model, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, model string, texts []string) ([][]float32, error)
	Chat(ctx context.Context, model string, messages []Message, opts ChatOptions) (*Completion, error)
	Rerank(ctx context.Context, model, query string, docs []string) ([]ScoredDoc, error)
}
