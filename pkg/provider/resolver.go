package provider

import (
	"fmt"
	"os"

	"github.com/archon-core/archon/pkg/config"
)

// Resolver builds and caches a Gateway per provider descriptor, so
// repeated calls against the same provider reuse one HTTP client.
type Resolver struct {
	registry *config.ProviderRegistry
	clients  map[string]Gateway
}

// NewResolver creates a Resolver over a loaded provider registry.
func NewResolver(registry *config.ProviderRegistry) *Resolver {
	return &Resolver{
		registry: registry,
		clients:  make(map[string]Gateway),
	}
}

// Gateway returns the client for a named provider, constructing and
// caching it on first use.
func (r *Resolver) Gateway(name string) (Gateway, *config.ProviderConfig, error) {
	pc, err := r.registry.Get(name)
	if err != nil {
		return nil, nil, err
	}

	if client, ok := r.clients[name]; ok {
		return client, pc, nil
	}

	var apiKey string
	if pc.APIKeyEnv != "" {
		apiKey = os.Getenv(pc.APIKeyEnv)
		if apiKey == "" && pc.RequiresKey {
			return nil, nil, fmt.Errorf("provider %q requires %s to be set", name, pc.APIKeyEnv)
		}
	}

	var client Gateway
	switch pc.Kind {
	case config.ProviderKindRerank:
		client = NewJinaClient(pc.BaseURL, apiKey)
	default:
		client = NewOpenAIClient(pc.BaseURL, apiKey)
	}

	r.clients[name] = client
	return client, pc, nil
}
