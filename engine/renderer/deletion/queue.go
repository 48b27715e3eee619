// Package deletion defers the destruction of GPU objects until every frame that
// could still reference them has retired.
package deletion

import (
	"sync"

	"go.uber.org/zap"
)

// FrameIndexer reports the frame slot that is currently being recorded and the tick
// it belongs to. The slot is tick mod N.
type FrameIndexer interface {
	CurrentFrameIndex() int
	Tick() uint64
}

type entry struct {
	tick   uint64
	action func()
}

// Queue holds one FIFO of destruction actions per frame slot. An action enqueued
// during tick t waits on slot t mod N and runs when that slot is flushed in a later
// tick, after its fence has been waited on, i.e. a full rotation later.
type Queue struct {
	mu *sync.Mutex

	frames FrameIndexer
	queues [][]entry
	closed bool
	log    *zap.Logger
}

// NewQueue creates a queue with one FIFO per frame in flight.
//
// Parameters:
//   - frames: reports the current slot at enqueue time
//   - framesInFlight: the number of slots (N)
//   - options: functional options to configure the queue
//
// Returns:
//   - *Queue: the new queue
func NewQueue(frames FrameIndexer, framesInFlight int, options ...QueueOption) *Queue {
	q := &Queue{
		mu:     &sync.Mutex{},
		frames: frames,
		queues: make([][]entry, max(framesInFlight, 1)),
		log:    zap.NewNop(),
	}
	for _, option := range options {
		option(q)
	}
	return q
}

// Enqueue schedules action against the current frame slot. After Close the
// action runs immediately, since no frame can reference anything any more.
// Safe to call from any goroutine.
func (q *Queue) Enqueue(action func()) {
	if action == nil {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		action()
		return
	}
	slot := q.frames.CurrentFrameIndex() % len(q.queues)
	q.queues[slot] = append(q.queues[slot], entry{tick: q.frames.Tick(), action: action})
	q.mu.Unlock()
}

// Flush runs, in enqueue order, every action queued on slot during an earlier tick.
// Actions enqueued in the current tick, including those enqueued while flushing,
// stay queued for the next rotation.
//
// Returns:
//   - int: the number of actions run
func (q *Queue) Flush(slot int) int {
	return q.flush(slot, false)
}

func (q *Queue) flush(slot int, all bool) int {
	q.mu.Lock()
	slot %= len(q.queues)
	pending := q.queues[slot]
	n := len(pending)
	if !all {
		now := q.frames.Tick()
		n = 0
		for n < len(pending) && pending[n].tick < now {
			n++
		}
	}
	ready := pending[:n:n]
	q.queues[slot] = append([]entry(nil), pending[n:]...)
	q.mu.Unlock()

	for _, e := range ready {
		e.action()
	}
	if n > 0 {
		q.log.Debug("flushed deferred destructions", zap.Int("slot", slot), zap.Int("count", n))
	}
	return n
}

// Close drains every slot in index order and switches the queue to immediate mode.
// The caller must have waited for the device to go idle.
//
// Returns:
//   - int: the number of actions run
func (q *Queue) Close() int {
	q.mu.Lock()
	q.closed = true
	n := len(q.queues)
	q.mu.Unlock()

	total := 0
	for i := range n {
		total += q.flush(i, true)
	}
	return total
}

// Pending returns the number of actions waiting on slot.
func (q *Queue) Pending(slot int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[slot%len(q.queues)])
}

// Len returns the number of actions waiting across all slots.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, s := range q.queues {
		total += len(s)
	}
	return total
}
