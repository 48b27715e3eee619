package ecs

// remover is the type-erased view of a Store used by Registry.Destroy.
type remover interface {
	Remove(e Entity) bool
}

// Registry owns the entity pool and every store attached to it.
// Destroying an entity removes it from all attached stores, firing their destroy observers.
type Registry struct {
	pool   *EntityPool
	stores []remover
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{pool: NewEntityPool()}
}

// Attach creates a store for T, registers it with r and returns it.
func Attach[T any](r *Registry, observers ...Observer[T]) *Store[T] {
	s := NewStore(observers...)
	r.stores = append(r.stores, s)
	return s
}

// Create allocates a new entity with no components.
func (r *Registry) Create() Entity { return r.pool.Create() }

// Valid reports whether e is alive.
func (r *Registry) Valid(e Entity) bool { return r.pool.Alive(e) }

// Len returns the number of live entities.
func (r *Registry) Len() int { return r.pool.Len() }

// Destroy removes every component of e, in reverse attach order, and then frees the handle.
//
// Returns:
//   - bool: false if e was not alive
func (r *Registry) Destroy(e Entity) bool {
	if !r.pool.Alive(e) {
		return false
	}
	for i := len(r.stores) - 1; i >= 0; i-- {
		r.stores[i].Remove(e)
	}
	return r.pool.Destroy(e)
}
