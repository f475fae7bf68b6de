package gateway

import (
	"fmt"

	"llmgate/providers/ai"
)

// ErrUnsupportedProvider is returned by [Registry.Resolve] for identifiers
// no adapter was registered under.
var ErrUnsupportedProvider = fmt.Errorf("unsupported provider")

// Registry maps provider identifiers to their adapter instances. It is
// assembled once at process start and read-only afterwards, so concurrent
// turns share it without locking.
type Registry struct {
	providers map[ai.ProviderID]ai.StreamProvider
}

// NewRegistry builds a registry from the given adapters. Registering the
// same provider identifier twice is a configuration mistake and fails.
func NewRegistry(providers ...ai.StreamProvider) (*Registry, error) {
	registry := &Registry{providers: make(map[ai.ProviderID]ai.StreamProvider, len(providers))}
	for _, provider := range providers {
		id := provider.Name()
		if _, exists := registry.providers[id]; exists {
			return nil, fmt.Errorf("provider %q registered twice", id)
		}
		registry.providers[id] = provider
	}
	return registry, nil
}

// Resolve returns the adapter registered for id, or
// [ErrUnsupportedProvider] when there is none.
func (registry *Registry) Resolve(id ai.ProviderID) (ai.StreamProvider, error) {
	provider, exists := registry.providers[id]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, id)
	}
	return provider, nil
}

// Providers returns the registered identifiers, for info endpoints and
// startup logging. Order is unspecified.
func (registry *Registry) Providers() []ai.ProviderID {
	ids := make([]ai.ProviderID, 0, len(registry.providers))
	for id := range registry.providers {
		ids = append(ids, id)
	}
	return ids
}
