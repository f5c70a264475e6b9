package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shiva/tripplanner/config"
)

// NewRedisClient creates a Redis client shared by the plan cache, the rate
// cache and the durable plan queue.
//
// ContextTimeoutEnabled makes blocking commands (the queue's BRPOP) return
// as soon as the caller's context is cancelled, so workers stop promptly.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:                  cfg.Addr(),
		Password:              cfg.Password,
		DB:                    cfg.DB,
		PoolSize:              cfg.PoolSize,
		MinIdleConns:          4,
		DialTimeout:           5 * time.Second,
		ReadTimeout:           3 * time.Second,
		WriteTimeout:          3 * time.Second,
		ContextTimeoutEnabled: true,
	})

	attempts := max(cfg.ConnectAttempts, 1)
	backoff := 500 * time.Millisecond
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		if i == attempts || ctx.Err() != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis: ping failed after %d attempts: %w", i, err)
		}
		log.Printf("[redis] connect attempt %d/%d failed: %v (retrying in %s)", i, attempts, err, backoff)
		time.Sleep(backoff)
		backoff *= 2
	}
}

// HealthCheck pings the Redis client and returns nil if healthy.
func HealthCheck(ctx context.Context, client *redis.Client) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(pingCtx).Err()
}
