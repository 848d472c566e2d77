package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/flowgridgo/internal/flow"
)

// Factory builds a node of one kind, with its ports and calculation step
// already attached.
type Factory func(name string) *flow.Node

// Registry holds the known node kinds.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Builtin creates a registry pre-populated with the builtin node kinds.
func Builtin() *Registry {
	r := New()
	registerBuiltins(r)
	return r
}

// Register adds a node kind. Registering an existing kind replaces it.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// NewNode instantiates a node of the given kind.
func (r *Registry) NewNode(kind, name string) (*flow.Node, error) {
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
	return f(name), nil
}

// Kinds lists the registered kind names, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
