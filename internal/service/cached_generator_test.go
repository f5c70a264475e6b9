package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiva/tripplanner/internal/model"
)

type memPlanCache struct {
	mu    sync.Mutex
	plans map[string]*model.GeneratedPlan
	err   error
}

func (c *memPlanCache) GetPlan(_ context.Context, key string) (*model.GeneratedPlan, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	p, ok := c.plans[key]
	return p, ok, nil
}

func (c *memPlanCache) SetPlan(_ context.Context, key string, plan *model.GeneratedPlan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.plans[key] = plan
	return nil
}

func TestCachedGenerator_SecondCallHitsCache(t *testing.T) {
	gen := &stubGenerator{result: parisResult()}
	cache := &memPlanCache{plans: map[string]*model.GeneratedPlan{}}
	cg := NewCachedGenerator(gen, cache)
	ctx := context.Background()

	first, err := cg.Generate(ctx, parisRequest(), model.DestinationVerdict{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 3, first.Credits)

	second, err := cg.Generate(ctx, parisRequest(), model.DestinationVerdict{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 0, second.Credits)
	assert.Equal(t, 1, gen.callCount())
}

func TestCachedGenerator_LanguageIsPartOfKey(t *testing.T) {
	gen := &stubGenerator{result: parisResult()}
	cg := NewCachedGenerator(gen, &memPlanCache{plans: map[string]*model.GeneratedPlan{}})
	ctx := context.Background()

	_, err := cg.Generate(ctx, parisRequest(), model.DestinationVerdict{})
	require.NoError(t, err)
	ko := parisRequest()
	ko.Language = "ko"
	_, err = cg.Generate(ctx, ko, model.DestinationVerdict{})
	require.NoError(t, err)

	assert.Equal(t, 2, gen.callCount())
}

func TestCachedGenerator_CacheErrorsFallThrough(t *testing.T) {
	gen := &stubGenerator{result: parisResult()}
	cg := NewCachedGenerator(gen, &memPlanCache{err: errors.New("redis down")})

	res, err := cg.Generate(context.Background(), parisRequest(), model.DestinationVerdict{})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, gen.callCount())
}
