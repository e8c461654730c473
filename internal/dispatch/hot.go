package dispatch

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/nats-io/nats.go"
)

// jobSubject is the NATS subject the hot backend publishes jobs to and
// queue-subscribes workers against, grounded on the marketplace-sync
// repo's events.Publisher/Subscriber pair (internal/events, core NATS
// Publish/Subscribe, not JetStream — go-shared/events only exposes
// domain-typed events like ReviewEvent/ApprovalEvent, none of which fit a
// generic job payload).
const jobSubject = "inventory-sync.jobs.dispatch"
const hotQueueGroup = "inventory-sync-dispatch-workers"

// retryAttempts/retryBaseDelay are the hot backend's per-job retry
// policy (attempts=3, exponential 1s base), grounded on
// the teacher's clients/retry.go RetryConfig/CalculateBackoff.
const retryAttempts = 3

var retryBaseDelay = time.Second

// hotBackend is the high-volume tier: a distributed work queue of NATS
// worker processes sharing hotQueueGroup, so at most one process handles
// any given job even when several instances run hot concurrently. Jobs
// travel over core NATS and are not persisted: a job published while no
// worker is subscribed is not delivered.
type hotBackend struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	cancel context.CancelFunc
}

func newHotBackend(natsURL string) (*hotBackend, error) {
	nc, err := nats.Connect(natsURL, nats.Name("inventory-sync-engine-dispatch"))
	if err != nil {
		return nil, err
	}
	return &hotBackend{nc: nc}, nil
}

func (b *hotBackend) Start(ctx context.Context, processor JobProcessor) error {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	sub, err := b.nc.QueueSubscribe(jobSubject, hotQueueGroup, func(msg *nats.Msg) {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			return
		}
		runWithRetry(ctx, processor, &job)
	})
	if err != nil {
		cancel()
		return err
	}
	b.sub = sub
	return nil
}

func runWithRetry(ctx context.Context, processor JobProcessor, job *Job) {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		job.Attempt = attempt + 1
		if err = processor(ctx, job); err == nil {
			return
		}
		if attempt == retryAttempts-1 {
			return
		}
		backoff := time.Duration(float64(retryBaseDelay) * math.Pow(2, float64(attempt)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (b *hotBackend) Enqueue(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return b.nc.Publish(jobSubject, data)
}

func (b *hotBackend) Stop() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.nc != nil {
		b.nc.Close()
	}
}
