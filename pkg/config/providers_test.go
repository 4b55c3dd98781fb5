package config

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistry(t *testing.T) {
	providers := map[string]*ProviderConfig{
		"chat1":   {Name: "chat1", Kind: ProviderKindChat, Model: "gpt-4o-mini"},
		"embed1":  {Name: "embed1", Kind: ProviderKindEmbedding, Model: "text-embedding-3-small", Dimension: 1536},
		"embed2":  {Name: "embed2", Kind: ProviderKindEmbedding, Model: "nomic-embed-text", Dimension: 768},
		"rerank1": {Name: "rerank1", Kind: ProviderKindRerank, Model: "jina-reranker-v2"},
	}

	registry := NewProviderRegistry(providers)

	t.Run("Get existing provider", func(t *testing.T) {
		p, err := registry.Get("chat1")
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", p.Model)
	})

	t.Run("Get nonexistent provider", func(t *testing.T) {
		_, err := registry.Get("nonexistent")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderNotFound)
	})

	t.Run("Has provider", func(t *testing.T) {
		assert.True(t, registry.Has("chat1"))
		assert.False(t, registry.Has("nonexistent"))
	})

	t.Run("Len counts all providers", func(t *testing.T) {
		assert.Equal(t, 4, registry.Len())
	})

	t.Run("GetAll returns a defensive copy", func(t *testing.T) {
		all := registry.GetAll()
		assert.Len(t, all, 4)

		all["chat2"] = &ProviderConfig{Name: "chat2"}

		assert.False(t, registry.Has("chat2"))
	})

	t.Run("ByKind filters by capability", func(t *testing.T) {
		embeddings := registry.ByKind(ProviderKindEmbedding)
		assert.Len(t, embeddings, 2)
		for _, p := range embeddings {
			assert.Equal(t, ProviderKindEmbedding, p.Kind)
		}

		rerankers := registry.ByKind(ProviderKindRerank)
		assert.Len(t, rerankers, 1)
	})
}

func TestProviderRegistryThreadSafety(_ *testing.T) {
	providers := map[string]*ProviderConfig{
		"chat1":  {Name: "chat1", Kind: ProviderKindChat},
		"embed1": {Name: "embed1", Kind: ProviderKindEmbedding},
	}
	registry := NewProviderRegistry(providers)

	const goroutines = 100
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = registry.Get("chat1")
			_ = registry.Has("embed1")
			_ = registry.GetAll()
			_ = registry.ByKind(ProviderKindEmbedding)
		}()
	}
	wg.Wait()
}

func TestMergeProviders(t *testing.T) {
	builtin := map[string]ProviderConfig{
		"openai-chat": {Name: "openai-chat", Kind: ProviderKindChat, Model: "gpt-4o-mini"},
	}
	user := map[string]ProviderConfig{
		"openai-chat": {Name: "openai-chat", Kind: ProviderKindChat, Model: "gpt-4o"},
		"custom":      {Name: "custom", Kind: ProviderKindChat, Model: "custom-model"},
	}

	merged := mergeProviders(builtin, user)

	require.Len(t, merged, 2)
	assert.Equal(t, "gpt-4o", merged["openai-chat"].Model, "user config should override builtin")
	assert.Equal(t, "custom-model", merged["custom"].Model)
}
