// Package worker runs the asynchronous phase of plan generation.
//
// Plan ids travel through a Queue. RedisQueue survives process restarts;
// MemoryQueue is used by tests and single-process tooling. A Pool of
// goroutines drains the queue into a handler.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueClosed is returned by Dequeue once a MemoryQueue has been closed
// and drained.
var ErrQueueClosed = errors.New("queue closed")

// Queue moves plan ids from the synchronous phase to the workers.
type Queue interface {
	Enqueue(ctx context.Context, planID string) error
	// Dequeue blocks until an id is available or ctx is done.
	Dequeue(ctx context.Context) (string, error)
}

// ─── Redis ──────────────────────────────────────────────────

// DefaultPollInterval bounds each BRPOP so a cancelled context is noticed.
const DefaultPollInterval = 2 * time.Second

// RedisQueue is a FIFO list: LPUSH on enqueue, BRPOP on dequeue.
type RedisQueue struct {
	redis        *redis.Client
	key          string
	pollInterval time.Duration
}

// NewRedisQueue creates a queue backed by the Redis list at key.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	return &RedisQueue{redis: client, key: key, pollInterval: DefaultPollInterval}
}

// Enqueue appends a plan id.
func (q *RedisQueue) Enqueue(ctx context.Context, planID string) error {
	if err := q.redis.LPush(ctx, q.key, planID).Err(); err != nil {
		return fmt.Errorf("queue: push: %w", err)
	}
	return nil
}

// Dequeue pops the oldest plan id, polling in pollInterval slices until
// one arrives or ctx is done.
func (q *RedisQueue) Dequeue(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		res, err := q.redis.BRPop(ctx, q.pollInterval, q.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("queue: pop: %w", err)
		}
		// BRPOP replies [key, value].
		if len(res) == 2 {
			return res[1], nil
		}
	}
}

// Len reports the number of queued ids.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, q.key).Result()
}

// ─── In-memory ──────────────────────────────────────────────

// MemoryQueue is a bounded channel queue. Ids are lost on restart.
type MemoryQueue struct {
	ch chan string
}

// NewMemoryQueue creates a queue holding up to size ids.
func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{ch: make(chan string, size)}
}

// Enqueue blocks while the queue is full.
func (q *MemoryQueue) Enqueue(ctx context.Context, planID string) error {
	select {
	case q.ch <- planID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue blocks until an id is available or ctx is done.
func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case id, ok := <-q.ch:
		if !ok {
			return "", ErrQueueClosed
		}
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops accepting ids. Queued ids can still be dequeued.
func (q *MemoryQueue) Close() {
	close(q.ch)
}
