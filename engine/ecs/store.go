package ecs

// Observer receives typed lifecycle events from a Store. Observers are fixed at
// store construction and run synchronously inside Add and Remove.
// An observer must not add to or remove from the store that is notifying it.
type Observer[T any] interface {
	// OnConstruct runs after c has been attached to e.
	OnConstruct(e Entity, c *T)

	// OnDestroy runs before c is detached from e. c is still readable.
	OnDestroy(e Entity, c *T)
}

// ObserverFuncs adapts a pair of functions to the Observer interface. Nil fields are skipped.
type ObserverFuncs[T any] struct {
	Construct func(e Entity, c *T)
	Destroy   func(e Entity, c *T)
}

func (o ObserverFuncs[T]) OnConstruct(e Entity, c *T) {
	if o.Construct != nil {
		o.Construct(e, c)
	}
}

func (o ObserverFuncs[T]) OnDestroy(e Entity, c *T) {
	if o.Destroy != nil {
		o.Destroy(e, c)
	}
}

// Store is a sparse-set component store. Components live in a dense slice so
// iteration is contiguous and ordered by insertion, modulo swap-removal.
//
// Pointers returned by Add and Get stay valid until the next Add or Remove on the same store.
type Store[T any] struct {
	sparse    []int32 // entity index -> dense position + 1, 0 = absent
	dense     []Entity
	data      []T
	observers []Observer[T]
}

// NewStore creates a store that notifies the given observers.
func NewStore[T any](observers ...Observer[T]) *Store[T] {
	return &Store[T]{observers: observers}
}

func (s *Store[T]) slot(e Entity) (int, bool) {
	idx := int(e.Index())
	if idx >= len(s.sparse) {
		return 0, false
	}
	pos := int(s.sparse[idx]) - 1
	if pos < 0 || s.dense[pos] != e {
		return 0, false
	}
	return pos, true
}

// Add attaches v to e and returns a pointer to the stored copy. If e already has a
// component it is replaced: destroy observers see the old value, construct observers the new one.
func (s *Store[T]) Add(e Entity, v T) *T {
	if pos, ok := s.slot(e); ok {
		for _, o := range s.observers {
			o.OnDestroy(e, &s.data[pos])
		}
		s.data[pos] = v
		for _, o := range s.observers {
			o.OnConstruct(e, &s.data[pos])
		}
		return &s.data[pos]
	}

	idx := int(e.Index())
	if idx >= len(s.sparse) {
		grown := make([]int32, max(idx+1, 2*len(s.sparse)))
		copy(grown, s.sparse)
		s.sparse = grown
	}
	s.dense = append(s.dense, e)
	s.data = append(s.data, v)
	pos := len(s.dense) - 1
	s.sparse[idx] = int32(pos + 1)
	for _, o := range s.observers {
		o.OnConstruct(e, &s.data[pos])
	}
	return &s.data[pos]
}

// Get returns e's component, or nil when e has none.
func (s *Store[T]) Get(e Entity) *T {
	if pos, ok := s.slot(e); ok {
		return &s.data[pos]
	}
	return nil
}

// Has reports whether e has a component in this store.
func (s *Store[T]) Has(e Entity) bool {
	_, ok := s.slot(e)
	return ok
}

// Remove detaches e's component after notifying destroy observers.
//
// Returns:
//   - bool: true if a component was removed
func (s *Store[T]) Remove(e Entity) bool {
	pos, ok := s.slot(e)
	if !ok {
		return false
	}
	for _, o := range s.observers {
		o.OnDestroy(e, &s.data[pos])
	}
	// observers may not restructure this store, so pos is still valid
	last := len(s.dense) - 1
	if pos != last {
		moved := s.dense[last]
		s.dense[pos] = moved
		s.data[pos] = s.data[last]
		s.sparse[moved.Index()] = int32(pos + 1)
	}
	var zero T
	s.data[last] = zero
	s.dense = s.dense[:last]
	s.data = s.data[:last]
	s.sparse[e.Index()] = 0
	return true
}

// Len returns the number of stored components.
func (s *Store[T]) Len() int { return len(s.dense) }

// Entities returns a copy of the entity list in iteration order.
func (s *Store[T]) Entities() []Entity {
	out := make([]Entity, len(s.dense))
	copy(out, s.dense)
	return out
}

// Each calls fn for every component in dense order. fn may mutate the component
// but must not add to or remove from this store.
func (s *Store[T]) Each(fn func(e Entity, c *T)) {
	for i := range s.dense {
		fn(s.dense[i], &s.data[i])
	}
}
