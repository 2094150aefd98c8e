package xdispatch

import "sync"

// Registry is an explicit process-wide map of keys to shared
// instances. It replaces ambient singleton state: callers pass a
// Registry around (constructor-injected where testability matters) and
// ask it for the shared instance by key.
type Registry struct {
	mu        sync.Mutex
	instances map[string]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]any)}
}

// GetOrCreate returns the instance stored under key, creating it with
// factory on first use. The factory runs under the registry lock, so
// at most once per key.
func (r *Registry) GetOrCreate(key string, factory func() any) any {
	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[key]; ok {
		return inst
	}
	inst := factory()
	r.instances[key] = inst
	return inst
}

// Get returns the instance stored under key, if any.
func (r *Registry) Get(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[key]
	return inst, ok
}

// Discard forgets the instance stored under key.
func (r *Registry) Discard(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.instances, key)
}

// Clear forgets every instance.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = make(map[string]any)
}

// Len returns the number of stored instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}
