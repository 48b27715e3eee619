// Package asset provides reference-counted GPU assets. When the last reference to
// an asset is released its device objects are handed to the deferred destruction
// queue instead of being destroyed on the spot.
package asset

import (
	"errors"
	"sync/atomic"
)

var (
	ErrDuplicateName = errors.New("asset: duplicate name")
	ErrInvalidMesh   = errors.New("asset: invalid mesh data")
	ErrInvalidImage  = errors.New("asset: invalid image data")
)

// Enqueuer schedules an action for deferred execution. deletion.Queue satisfies it.
type Enqueuer interface {
	Enqueue(action func())
}

var nextID atomic.Uint64

func newID() uint64 { return nextID.Add(1) }

// refCounted is the shared-ownership core embedded in every asset.
// The creator holds the first reference.
type refCounted struct {
	refs    atomic.Int32
	onZero  func()
	kind    string
	dropped atomic.Bool
}

func (r *refCounted) init(kind string, onZero func()) {
	r.kind = kind
	r.onZero = onZero
	r.refs.Store(1)
}

func (r *refCounted) acquire() {
	if r.refs.Add(1) <= 1 {
		panic("asset: acquire on released " + r.kind)
	}
}

func (r *refCounted) release() {
	n := r.refs.Add(-1)
	switch {
	case n == 0:
		if r.dropped.CompareAndSwap(false, true) && r.onZero != nil {
			r.onZero()
		}
	case n < 0:
		panic("asset: " + r.kind + " released more times than acquired")
	}
}

// RefCount returns the current number of references.
func (r *refCounted) RefCount() int32 { return r.refs.Load() }
