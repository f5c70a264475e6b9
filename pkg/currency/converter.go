package currency

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnsupportedPair is returned when neither live nor static rates know
// how to convert between two currencies.
var ErrUnsupportedPair = errors.New("currency: no rate available for pair")

// Source describes where a conversion rate came from.
type Source string

const (
	SourceIdentity Source = "identity"
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// Conversion is the result of converting an amount.
type Conversion struct {
	Amount float64 `json:"convertedAmount"`
	Rate   float64 `json:"rate"`
	Source Source  `json:"source"`
}

// RateProvider fetches a live rate table for a base currency.
type RateProvider interface {
	LatestRates(ctx context.Context, base string) (map[string]float64, error)
}

// RateCache stores rate tables keyed by base currency.
type RateCache interface {
	GetRates(ctx context.Context, base string) (map[string]float64, error)
	SetRates(ctx context.Context, base string, rates map[string]float64) error
}

// Converter converts amounts, preferring cached then live rates and
// degrading to the static table when the rate service is unreachable.
type Converter struct {
	provider RateProvider
	cache    RateCache
}

// NewConverter creates a converter. provider and cache may be nil.
func NewConverter(provider RateProvider, cache RateCache) *Converter {
	return &Converter{provider: provider, cache: cache}
}

// Convert converts amount from one currency to another, rounding to 2 dp.
//
// Lookup order:
//  1. Same currency → identity.
//  2. Redis rate cache.
//  3. Live rate service. The table is written to the cache before
//     returning; a failed cache write is logged and does not fail the
//     conversion.
//  4. Static fallback table.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return &Conversion{Amount: Round2(amount), Rate: 1, Source: SourceIdentity}, nil
	}

	if rate, src, ok := c.lookup(ctx, from, to); ok {
		return &Conversion{Amount: Round2(amount * rate), Rate: rate, Source: src}, nil
	}

	rate, ok := StaticRate(from, to)
	if !ok {
		return nil, fmt.Errorf("%w: %s→%s", ErrUnsupportedPair, from, to)
	}
	log.Printf("[currency] Using static fallback rate %s→%s = %.6f", from, to, rate)
	return &Conversion{Amount: Round2(amount * rate), Rate: rate, Source: SourceFallback}, nil
}

func (c *Converter) lookup(ctx context.Context, from, to string) (float64, Source, bool) {
	if c.cache != nil {
		rates, err := c.cache.GetRates(ctx, from)
		if err == nil {
			if rate, ok := rates[to]; ok && rate > 0 {
				return rate, SourceCache, true
			}
		}
	}

	if c.provider == nil {
		return 0, "", false
	}
	rates, err := c.provider.LatestRates(ctx, from)
	if err != nil {
		log.Printf("[currency] WARNING: live rates for %s unavailable: %v", from, err)
		return 0, "", false
	}
	if c.cache != nil {
		if err := c.cache.SetRates(ctx, from, rates); err != nil {
			log.Printf("[currency] WARNING: caching rates for %s failed: %v", from, err)
		}
	}
	rate, ok := rates[to]
	if !ok || rate <= 0 {
		return 0, "", false
	}
	return rate, SourceLive, true
}

// Round2 rounds to two decimal places using decimal arithmetic, avoiding
// binary float artifacts such as 0.1+0.2.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
