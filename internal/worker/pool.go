package worker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler processes one plan id.
type Handler func(ctx context.Context, planID string) error

// errorBackoff is how long a worker waits after a queue read error.
const errorBackoff = time.Second

// Pool runs a fixed number of goroutines that drain a Queue.
//
// Stop cancels the context passed to in-flight handlers, so a handler that
// is mid-generation sees cancellation and can hand its plan back to the
// queue.
type Pool struct {
	queue   Queue
	handler Handler
	size    int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPool creates a pool of size workers.
func NewPool(queue Queue, handler Handler, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{queue: queue, handler: handler, size: size}
}

// Start launches the workers. They run until ctx is cancelled or Stop is
// called.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.size; i++ {
		id := uuid.NewString()[:8]
		p.wg.Add(1)
		go p.run(ctx, id)
	}
	log.Printf("[worker] started %d workers", p.size)
}

// Stop cancels the workers and waits for them to return.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	log.Println("[worker] all workers stopped")
}

func (p *Pool) run(ctx context.Context, workerID string) {
	defer p.wg.Done()

	for {
		planID, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrQueueClosed) {
				return
			}
			log.Printf("[worker] %s: dequeue failed: %v", workerID, err)
			select {
			case <-time.After(errorBackoff):
				continue
			case <-ctx.Done():
				return
			}
		}

		p.handle(ctx, workerID, planID)
	}
}

// handle runs the handler for one id, recovering from panics so one bad
// plan cannot take down the worker.
func (p *Pool) handle(ctx context.Context, workerID, planID string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[worker] %s: PANIC on plan %s: %v", workerID, planID, r)
		}
	}()

	if err := p.handler(ctx, planID); err != nil {
		log.Printf("[worker] %s: plan %s: %v", workerID, planID, err)
	}
}
