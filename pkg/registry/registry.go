package registry

import (
	"sort"
	"sync"

	"github.com/aretw0/callflow/pkg/ports"
)

// Registry maps handler names to action handlers.
// Graphs resolve every declared action against it at construction time.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]ports.ActionHandler
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]ports.ActionHandler),
	}
}

// Register adds a handler to the registry.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, h ports.ActionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterFunc registers a plain function as a handler.
func (r *Registry) RegisterFunc(name string, fn ports.ActionHandlerFunc) {
	r.Register(name, fn)
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (ports.ActionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
