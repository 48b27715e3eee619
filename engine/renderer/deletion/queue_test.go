package deletion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeFrames struct{ tick int }

func (f *fakeFrames) CurrentFrameIndex() int { return f.tick % 2 }
func (f *fakeFrames) Tick() uint64           { return uint64(f.tick) }

func TestEnqueueRunsAfterFullRotation(t *testing.T) {
	frames := &fakeFrames{}
	q := NewQueue(frames, 2)

	var ran []string
	q.Enqueue(func() { ran = append(ran, "a") })

	// tick 0: enqueued on slot 0, a flush in the same tick runs nothing
	assert.Equal(t, 0, q.Flush(0))
	assert.Empty(t, ran)

	frames.tick = 1
	q.Flush(frames.CurrentFrameIndex())
	assert.Empty(t, ran, "slot 1 holds nothing")

	frames.tick = 2
	assert.Equal(t, 1, q.Flush(frames.CurrentFrameIndex()))
	assert.Equal(t, []string{"a"}, ran)
}

func TestEnqueueBeforeBeginWaitsForRotation(t *testing.T) {
	// an action enqueued between frames belongs to the tick about to start
	frames := &fakeFrames{tick: 3}
	q := NewQueue(frames, 2)
	ran := false
	q.Enqueue(func() { ran = true })

	assert.Equal(t, 0, q.Flush(1))
	assert.False(t, ran)

	frames.tick = 5
	assert.Equal(t, 1, q.Flush(1))
	assert.True(t, ran)
}

func TestFlushPreservesFIFOOrder(t *testing.T) {
	frames := &fakeFrames{}
	q := NewQueue(frames, 2)
	var order []int
	for i := range 5 {
		q.Enqueue(func() { order = append(order, i) })
	}
	assert.Equal(t, 5, q.Pending(0))
	frames.tick = 2
	q.Flush(0)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Equal(t, 0, q.Len())
}

func TestActionsEnqueuedDuringFlushWaitARotation(t *testing.T) {
	frames := &fakeFrames{}
	q := NewQueue(frames, 2)
	inner := false
	q.Enqueue(func() {
		q.Enqueue(func() { inner = true })
	})
	frames.tick = 2
	q.Flush(0)
	assert.False(t, inner)
	assert.Equal(t, 1, q.Pending(0))
	q.Flush(0)
	assert.False(t, inner)

	frames.tick = 4
	q.Flush(0)
	assert.True(t, inner)
}

func TestCloseDrainsAllAndRunsLateActionsImmediately(t *testing.T) {
	frames := &fakeFrames{}
	q := NewQueue(frames, 2)
	var ran []int
	q.Enqueue(func() { ran = append(ran, 0) })
	frames.tick = 1
	q.Enqueue(func() { ran = append(ran, 1) })

	assert.Equal(t, 2, q.Close())
	assert.Equal(t, []int{0, 1}, ran)

	q.Enqueue(func() { ran = append(ran, 2) })
	assert.Equal(t, []int{0, 1, 2}, ran)
}

func TestConcurrentEnqueue(t *testing.T) {
	frames := &fakeFrames{}
	q := NewQueue(frames, 2)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				q.Enqueue(func() {})
			}
		}()
	}
	wg.Wait()
	frames.tick = 2
	assert.Equal(t, 800, q.Flush(0))
}
