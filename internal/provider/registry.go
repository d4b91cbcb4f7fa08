package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/daresTheDevil/zeroshot/internal/zserrors"
)

// Spec is the static configuration for one named provider, read once from
// cluster config and handed to the registry at construction.
type Spec struct {
	Name    string
	Binary  string
	UseAPI  bool
	APIConfig APIClientConfig
}

// entry is a registry slot: a provider's probed capabilities plus whichever
// of the two backends (subprocess CLI or direct API client) it was
// configured for. Capabilities are probed once, in New; the API client is
// built lazily, at most once; CLI adapters are not stored here.
type entry struct {
	spec Spec
	caps Capabilities

	once      sync.Once
	apiClient *APIClient
	apiErr    error
}

// Registry is the explicit, Supervisor-owned provider registry spec.md §9
// calls for in place of the teacher's lazy-client pattern
// (internal/agent/claude_api_adapter.go's APIRunnerFactory): one registry is
// built at cluster start, capabilities are probed once per provider name,
// and every agent in the cluster shares the same singleton API client
// rather than each agent constructing its own.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New builds a Registry from the given provider specs, probing --help
// capabilities for every CLI-backed provider up front. Probing failures do
// not fail construction; they fall back to the all-true default (spec.md
// §6) and are not logged.
func New(ctx context.Context, specs []Spec) *Registry {
	r := &Registry{entries: make(map[string]*entry, len(specs))}
	for _, s := range specs {
		e := &entry{spec: s}
		if !s.UseAPI {
			e.caps = ProbeCapabilities(ctx, s.Binary)
		}
		r.entries[s.Name] = e
	}
	return r
}

// CLI returns a fresh subprocess adapter for the named provider. Unlike the
// API client, a CLI adapter is single-use (one subprocess per agent
// invocation), so this is not cached — only the capability probe behind it
// is a registry-level singleton.
func (r *Registry) CLI(name string) (*CLI, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: provider %q not registered", zserrors.ErrProviderUnavailable, name)
	}
	if e.spec.UseAPI {
		return nil, fmt.Errorf("%w: provider %q is configured for direct API use, not subprocess", zserrors.ErrConfigInvalid, name)
	}
	return NewCLI(e.spec.Name, e.spec.Binary, e.caps), nil
}

// API returns the shared *APIClient for the named provider, constructing it
// on first use and caching it for the remaining lifetime of the cluster.
func (r *Registry) API(name string) (*APIClient, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: provider %q not registered", zserrors.ErrProviderUnavailable, name)
	}
	if !e.spec.UseAPI {
		return nil, fmt.Errorf("%w: provider %q is configured for subprocess use, not direct API", zserrors.ErrConfigInvalid, name)
	}

	e.once.Do(func() {
		e.apiClient, e.apiErr = NewAPIClient(e.spec.APIConfig)
	})
	if e.apiErr != nil {
		return nil, e.apiErr
	}
	return e.apiClient, nil
}

// Available reports whether the named provider is registered and, for
// CLI-backed providers, whether its binary can currently be located.
func (r *Registry) Available(name string) bool {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.spec.UseAPI {
		return true
	}
	return NewCLI(e.spec.Name, e.spec.Binary, e.caps).Available()
}

// Names returns the registered provider names, for diagnostics and the
// status footer.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}
