package batch

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// serializationPool is the worker pool every Batcher fans out on. Its workers park on the
// task queue for the life of the process and the pool only ever grows, so tuning worker
// counts or creating batchers never starts goroutines beyond the largest count requested.
var serializationPool = struct {
	mu   sync.Mutex
	pool worker.DynamicWorkerPool
}{}

// poolQueueSize bounds the tasks waiting for a worker; SubmitTask blocks beyond it.
const poolQueueSize = 256

// fanOut runs every task on the shared pool and returns once all of them finished.
// The pool is grown to at least workers goroutines first.
func fanOut(workers int, tasks []func()) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))

	p := &serializationPool
	p.mu.Lock()
	if p.pool == nil {
		p.pool = worker.NewDynamicWorkerPool(workers, poolQueueSize, time.Second)
	} else if n := workers - p.pool.GetMaxWorkers(); n > 0 {
		p.pool.IncreaseMaxWorkers(n)
	}
	for id, task := range tasks {
		p.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				task()
				return nil, nil
			},
		})
	}
	p.mu.Unlock()

	wg.Wait()
}

// poolWorkers returns the size of the shared pool, or 0 before the first fan-out.
func poolWorkers() int {
	p := &serializationPool
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pool == nil {
		return 0
	}
	return p.pool.GetMaxWorkers()
}
