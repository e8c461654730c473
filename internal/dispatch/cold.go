package dispatch

import (
	"context"
	"sync"
)

// coldQueueKey labels the in-process pending-job list the cold backend
// maintains; there is one list per process, not one per connection.
const coldQueueKey = "ultra-low-queue"

// JobProcessor is invoked by whichever backend popped a job; Dispatcher
// supplies the same processor to both backends.
type JobProcessor func(ctx context.Context, job *Job) error

// coldBackend is the low-volume tier (spec.md §4.8): an ordered
// in-process list of pending jobs. Enqueue appends; a single background
// worker pops jobs one at a time and runs the processor synchronously, so
// ordering within a process is preserved and nothing runs concurrently.
// Modeled on the teacher's TenantSemaphore (services/concurrency.go)
// mutex-guarded-map-of-channels idiom, simplified to one guarded slice
// since the cold tier has no per-tenant concurrency to arbitrate.
type coldBackend struct {
	mu     sync.Mutex
	queue  []*Job
	notify chan struct{}
	cancel context.CancelFunc
}

func newColdBackend() *coldBackend {
	return &coldBackend{notify: make(chan struct{}, 1)}
}

func (b *coldBackend) Start(ctx context.Context, processor JobProcessor) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	go b.loop(ctx, processor)
}

func (b *coldBackend) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *coldBackend) Enqueue(ctx context.Context, job *Job) error {
	b.mu.Lock()
	b.queue = append(b.queue, job)
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
	}
	return nil
}

func (b *coldBackend) loop(ctx context.Context, processor JobProcessor) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.notify:
		}
		for {
			job := b.pop()
			if job == nil {
				break
			}
			_ = processor(ctx, job)
		}
	}
}

func (b *coldBackend) pop() *Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return nil
	}
	job := b.queue[0]
	b.queue = b.queue[1:]
	return job
}
