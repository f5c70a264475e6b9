package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shiva/tripplanner/internal/model"
)

// ─── Redis key layout ───────────────────────────────────────

const (
	planCacheKeyPrefix = "plans:cache:"
	rateCacheKeyPrefix = "fx:rates:"
)

// PlanCacheRepository caches generated plans in Redis, keyed by request
// fingerprint and language.
type PlanCacheRepository struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewPlanCacheRepository creates a plan cache with the given entry TTL.
func NewPlanCacheRepository(client *redis.Client, ttl time.Duration) *PlanCacheRepository {
	return &PlanCacheRepository{redis: client, ttl: ttl}
}

// GetPlan returns the cached plan. A miss is (nil, false, nil).
func (r *PlanCacheRepository) GetPlan(ctx context.Context, key string) (*model.GeneratedPlan, bool, error) {
	raw, err := r.redis.Get(ctx, planCacheKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("plan cache: get: %w", err)
	}

	var plan model.GeneratedPlan
	if err := json.Unmarshal(raw, &plan); err != nil {
		// Treat a corrupt entry as a miss; the next write replaces it.
		return nil, false, nil
	}
	return &plan, true, nil
}

// SetPlan stores a plan for the configured TTL.
func (r *PlanCacheRepository) SetPlan(ctx context.Context, key string, plan *model.GeneratedPlan) error {
	raw, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("plan cache: marshal: %w", err)
	}
	if err := r.redis.Set(ctx, planCacheKeyPrefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("plan cache: set: %w", err)
	}
	return nil
}

// RateCacheRepository caches exchange-rate tables per base currency as a
// Redis hash.
type RateCacheRepository struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRateCacheRepository creates a rate cache with the given TTL.
func NewRateCacheRepository(client *redis.Client, ttl time.Duration) *RateCacheRepository {
	return &RateCacheRepository{redis: client, ttl: ttl}
}

// GetRates returns the cached table for base. A miss is (nil, nil).
func (r *RateCacheRepository) GetRates(ctx context.Context, base string) (map[string]float64, error) {
	fields, err := r.redis.HGetAll(ctx, rateCacheKeyPrefix+strings.ToUpper(base)).Result()
	if err != nil {
		return nil, fmt.Errorf("rate cache: get: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	rates := make(map[string]float64, len(fields))
	for code, v := range fields {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		rates[code] = rate
	}
	return rates, nil
}

// SetRates replaces the cached table for base.
//
// Uses a MULTI/EXEC pipeline so readers never see a half-written table.
func (r *RateCacheRepository) SetRates(ctx context.Context, base string, rates map[string]float64) error {
	if len(rates) == 0 {
		return nil
	}
	key := rateCacheKeyPrefix + strings.ToUpper(base)
	values := make(map[string]any, len(rates))
	for code, rate := range rates {
		values[code] = rate
	}

	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("rate cache: set: %w", err)
	}
	return nil
}
