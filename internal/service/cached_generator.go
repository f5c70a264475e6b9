package service

import (
	"context"
	"log"

	"github.com/shiva/tripplanner/internal/ai"
	"github.com/shiva/tripplanner/internal/model"
)

// PlanCache stores generated plans by key. A miss is (nil, false, nil).
type PlanCache interface {
	GetPlan(ctx context.Context, key string) (*model.GeneratedPlan, bool, error)
	SetPlan(ctx context.Context, key string, plan *model.GeneratedPlan) error
}

// CachedGenerator serves repeated requests from the plan cache, keyed by
// the request fingerprint and language. Cache errors fall through to the
// wrapped generator.
type CachedGenerator struct {
	next  PlanGenerator
	cache PlanCache
}

// NewCachedGenerator wraps next with cache.
func NewCachedGenerator(next PlanGenerator, cache PlanCache) *CachedGenerator {
	return &CachedGenerator{next: next, cache: cache}
}

// CacheKey is the plan cache key for a request.
func CacheKey(req model.PlanRequest) string {
	return Fingerprint(req) + ":" + req.Language
}

// Generate returns a cached plan when one exists, otherwise generates and
// caches. Cache hits cost no credits.
func (g *CachedGenerator) Generate(ctx context.Context, req model.PlanRequest, verdict model.DestinationVerdict) (*ai.GenerationResult, error) {
	key := CacheKey(req)

	plan, ok, err := g.cache.GetPlan(ctx, key)
	if err != nil {
		log.Printf("[cache] WARNING: plan cache read failed, generating: %v", err)
	} else if ok {
		log.Printf("[cache] Plan cache hit for %s", key[:12])
		return &ai.GenerationResult{Plan: plan, Credits: 0, Cached: true}, nil
	}

	result, err := g.next.Generate(ctx, req, verdict)
	if err != nil {
		return nil, err
	}
	if err := g.cache.SetPlan(ctx, key, result.Plan); err != nil {
		log.Printf("[cache] WARNING: plan cache write failed: %v", err)
	}
	return result, nil
}
