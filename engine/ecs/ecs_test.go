package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct{ X, Y float32 }

type recorder struct {
	constructed []Entity
	destroyed   []Entity
}

func (r *recorder) OnConstruct(e Entity, _ *position) { r.constructed = append(r.constructed, e) }
func (r *recorder) OnDestroy(e Entity, _ *position)   { r.destroyed = append(r.destroyed, e) }

func TestEntityPoolGenerations(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.True(t, p.Alive(a))
	assert.True(t, Null.IsNull())
	assert.False(t, p.Alive(Null))

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "double destroy is a no-op")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index(), "index is recycled")
	assert.NotEqual(t, a.Generation(), b.Generation())
	assert.False(t, p.Alive(a), "stale handle stays dead after reuse")
	assert.Equal(t, 1, p.Len())
}

func TestStoreAddGetRemove(t *testing.T) {
	p := NewEntityPool()
	s := NewStore[position]()
	a, b, c := p.Create(), p.Create(), p.Create()

	s.Add(a, position{1, 1})
	s.Add(b, position{2, 2})
	s.Add(c, position{3, 3})
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []Entity{a, b, c}, s.Entities())

	require.True(t, s.Remove(a))
	assert.Nil(t, s.Get(a))
	assert.False(t, s.Remove(a))
	assert.Equal(t, position{3, 3}, *s.Get(c), "swap-removed element keeps its value")
	assert.Equal(t, position{2, 2}, *s.Get(b))
	assert.Equal(t, 2, s.Len())
}

func TestStoreRejectsStaleHandle(t *testing.T) {
	p := NewEntityPool()
	s := NewStore[position]()
	a := p.Create()
	s.Add(a, position{})
	p.Destroy(a)
	b := p.Create()
	assert.False(t, s.Has(b), "new generation does not see old component")
}

func TestStoreObservers(t *testing.T) {
	rec := &recorder{}
	p := NewEntityPool()
	s := NewStore[position](rec)
	a := p.Create()

	s.Add(a, position{1, 0})
	s.Add(a, position{2, 0})
	s.Remove(a)

	assert.Equal(t, []Entity{a, a}, rec.constructed)
	assert.Equal(t, []Entity{a, a}, rec.destroyed)
}

func TestObserverFuncsSeesValues(t *testing.T) {
	var seen []float32
	s := NewStore[position](ObserverFuncs[position]{
		Destroy: func(_ Entity, c *position) { seen = append(seen, c.X) },
	})
	e := NewEntity(0, 1)
	s.Add(e, position{X: 7})
	s.Add(e, position{X: 9})
	s.Remove(e)
	assert.Equal(t, []float32{7, 9}, seen)
}

func TestRegistryDestroyRemovesAllComponents(t *testing.T) {
	r := NewRegistry()
	rec := &recorder{}
	pos := Attach[position](r, rec)
	names := Attach[string](r)

	e := r.Create()
	pos.Add(e, position{})
	names.Add(e, "crate")

	require.True(t, r.Destroy(e))
	assert.False(t, r.Valid(e))
	assert.False(t, pos.Has(e))
	assert.False(t, names.Has(e))
	assert.Equal(t, []Entity{e}, rec.destroyed)
	assert.False(t, r.Destroy(e))
}

func TestStoreEachOrder(t *testing.T) {
	p := NewEntityPool()
	s := NewStore[int]()
	var want []Entity
	for i := range 5 {
		e := p.Create()
		s.Add(e, i)
		want = append(want, e)
	}
	var got []Entity
	s.Each(func(e Entity, v *int) {
		*v *= 2
		got = append(got, e)
	})
	assert.Equal(t, want, got)
	assert.Equal(t, 8, *s.Get(want[4]))
}
