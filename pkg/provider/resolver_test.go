package provider

import (
	"testing"

	"github.com/archon-core/archon/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverGateway(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	registry := config.NewProviderRegistry(map[string]*config.ProviderConfig{
		"chat": {
			Name: "chat", Kind: config.ProviderKindChat, Model: "gpt-4o-mini",
			BaseURL: "https://example.com", APIKeyEnv: "TEST_OPENAI_KEY", RequiresKey: true,
		},
		"rerank": {
			Name: "rerank", Kind: config.ProviderKindRerank, Model: "jina-reranker-v2",
			BaseURL: "https://rerank.example.com",
		},
		"locked": {
			Name: "locked", Kind: config.ProviderKindChat, Model: "x",
			APIKeyEnv: "UNSET_KEY_ENV_VAR", RequiresKey: true,
		},
	})

	resolver := NewResolver(registry)

	chatGW, pc, err := resolver.Gateway("chat")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", pc.Model)
	_, ok := chatGW.(*OpenAIClient)
	assert.True(t, ok)

	rerankGW, _, err := resolver.Gateway("rerank")
	require.NoError(t, err)
	_, ok = rerankGW.(*JinaClient)
	assert.True(t, ok)

	// Resolving the same provider twice returns the cached client.
	chatGWAgain, _, err := resolver.Gateway("chat")
	require.NoError(t, err)
	assert.Same(t, chatGW, chatGWAgain)

	_, _, err = resolver.Gateway("locked")
	assert.Error(t, err)

	_, _, err = resolver.Gateway("missing")
	assert.ErrorIs(t, err, config.ErrProviderNotFound)
}
