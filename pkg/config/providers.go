package config

import (
	"fmt"
	"sync"
)

// ProviderKind is the capability a provider descriptor serves.
type ProviderKind string

const (
	ProviderKindChat      ProviderKind = "chat"
	ProviderKindEmbedding ProviderKind = "embedding"
	ProviderKindRerank    ProviderKind = "rerank"
)

// ProviderConfig describes a single capability offered by a backend: chat,
// embedding, or reranking. Unset APIKeyEnv is allowed only when
// RequiresKey is false.
type ProviderConfig struct {
	Name        string       `yaml:"name" validate:"required"`
	Kind        ProviderKind `yaml:"kind" validate:"required"`
	Model       string       `yaml:"model" validate:"required"`
	Dimension   int          `yaml:"dimension,omitempty" validate:"omitempty,oneof=384 768 1024 1536 3072 3584"`
	BaseURL     string       `yaml:"base_url,omitempty"`
	APIKeyEnv   string       `yaml:"api_key_env,omitempty"`
	RequiresKey bool         `yaml:"requires_key"`
	BatchLimit  int          `yaml:"batch_limit,omitempty"`
	PriceInput  float64      `yaml:"price_per_1k_input,omitempty"`
	PriceOutput float64      `yaml:"price_per_1k_output,omitempty"`
}

// ProviderRegistry stores provider configurations in memory with
// thread-safe access: a table of provider descriptors keyed by name,
// rather than string-keyed dispatch scattered through the call sites
// that need a provider.
type ProviderRegistry struct {
	providers map[string]*ProviderConfig
	mu        sync.RWMutex
}

// NewProviderRegistry creates a new provider registry from a defensive copy
// of providers.
func NewProviderRegistry(providers map[string]*ProviderConfig) *ProviderRegistry {
	copied := make(map[string]*ProviderConfig, len(providers))
	for k, v := range providers {
		copied[k] = v
	}
	return &ProviderRegistry{providers: copied}
}

// Get retrieves a provider configuration by name.
func (r *ProviderRegistry) Get(name string) (*ProviderConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// GetAll returns a copy of all provider configurations.
func (r *ProviderRegistry) GetAll() map[string]*ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]*ProviderConfig, len(r.providers))
	for k, v := range r.providers {
		result[k] = v
	}
	return result
}

// Has reports whether name is registered.
func (r *ProviderRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.providers[name]
	return ok
}

// Len returns the number of registered providers.
func (r *ProviderRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// ByKind returns every registered provider of the given kind.
func (r *ProviderRegistry) ByKind(kind ProviderKind) []*ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ProviderConfig
	for _, p := range r.providers {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func mergeProviders(builtin, user map[string]ProviderConfig) map[string]*ProviderConfig {
	result := make(map[string]*ProviderConfig, len(builtin)+len(user))
	for name, p := range builtin {
		cp := p
		result[name] = &cp
	}
	for name, p := range user {
		cp := p
		result[name] = &cp
	}
	return result
}
