package linkmap

import "sync"

// Registry records which source root owns each staging name. All
// synchronizers sharing a staging directory share one Registry.
type Registry struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{owners: make(map[string]string)}
}

// Claim assigns name to root unless another root already owns it.
// It returns the current owner and whether root holds the name afterwards.
func (r *Registry) Claim(name, root string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[name]; ok && owner != root {
		return owner, false
	}
	r.owners[name] = root
	return root, true
}

// Release drops root's claim on name. Claims held by other roots are left alone.
func (r *Registry) Release(name, root string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owners[name] == root {
		delete(r.owners, name)
	}
}

// Owner returns the root owning name, if any.
func (r *Registry) Owner(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[name]
	return owner, ok
}

// Len returns the number of claimed names.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}
