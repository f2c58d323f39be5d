package provider

import (
	"fmt"
	"sync"
)

// Factory constructs a fresh, uninitialized adapter instance.
type Factory func() Provider

// Registry maps provider types to adapter factories. It is populated once
// at process start; adding a back end is a single Register call rather
// than an orchestrator edit.
type Registry struct {
	mu        sync.RWMutex
	factories map[Type]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Type]Factory),
	}
}

// Register associates a factory with a provider type, replacing any
// previous registration.
func (r *Registry) Register(t Type, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

// New constructs an uninitialized adapter for the given type.
// Returns ErrUnknownType when no factory is registered.
func (r *Registry) New(t Type) (Provider, error) {
	r.mu.RLock()
	f, ok := r.factories[t]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}
	return f(), nil
}

// Types returns the registered provider types.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	return types
}
