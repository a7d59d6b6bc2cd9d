package provider

import (
	"sync"

	"github.com/sydlexius/elsewhere/internal/source"
)

// Registry holds all registered source adapters keyed by source id.
type Registry struct {
	mu       sync.RWMutex
	sources  *source.Registry
	adapters map[source.ID]Adapter
}

// NewRegistry creates an empty adapter registry ordered by sources.
func NewRegistry(sources *source.Registry) *Registry {
	return &Registry{
		sources:  sources,
		adapters: make(map[source.ID]Adapter),
	}
}

// Register adds an adapter to the registry. Adapters for ids the source
// registry does not know are ignored.
func (r *Registry) Register(a Adapter) {
	if !r.sources.Has(a.Source()) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Source()] = a
}

// Get returns an adapter by source id, or nil if not registered.
func (r *Registry) Get(id source.ID) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[id]
}

// All returns all registered adapters in catalog order.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Adapter
	for _, s := range r.sources.All() {
		if a, ok := r.adapters[s.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Sources returns the source registry adapters are keyed against.
func (r *Registry) Sources() *source.Registry { return r.sources }
