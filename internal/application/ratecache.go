package application

import (
	"context"
	"sync"
	"time"

	"toolprice-service/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRateTTL          = 10 * time.Minute
	DefaultFallbackRate     = 84.0
	DefaultRateFetchTimeout = 8 * time.Second
)

var _ RateSource = (*RateCache)(nil)

// RateCache keeps the last USD rate for ttl. A failed refresh stores the
// fallback rate for a full ttl window. Refreshes run detached from the
// caller, so a caller that goes away gets the fallback without storing it.
type RateCache struct {
	provider     RateProvider
	pair         domain.Pair
	ttl          time.Duration
	fallback     float64
	fetchTimeout time.Duration
	clock        Clock
	log          *zap.Logger
	group        *singleflight.Group

	mu      sync.RWMutex
	current domain.ExchangeRate
	loaded  bool
}

type RateCacheOption func(*RateCache)

func WithRateTTL(d time.Duration) RateCacheOption {
	return func(c *RateCache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

func WithFallbackRate(v float64) RateCacheOption {
	return func(c *RateCache) {
		if domain.UsableRate(v) {
			c.fallback = v
		}
	}
}

// WithRateFetchTimeout bounds a single refresh, independent of the caller.
func WithRateFetchTimeout(d time.Duration) RateCacheOption {
	return func(c *RateCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithCoalescing makes concurrent stale callers share a single fetch.
func WithCoalescing(on bool) RateCacheOption {
	return func(c *RateCache) {
		if on {
			c.group = &singleflight.Group{}
		} else {
			c.group = nil
		}
	}
}

func WithRateClock(clk Clock) RateCacheOption { return func(c *RateCache) { c.clock = clk } }

func WithRateLogger(l *zap.Logger) RateCacheOption { return func(c *RateCache) { c.log = l } }

func NewRateCache(provider RateProvider, opts ...RateCacheOption) *RateCache {
	c := &RateCache{
		provider:     provider,
		pair:         domain.PairUSDRUB,
		ttl:          DefaultRateTTL,
		fallback:     DefaultFallbackRate,
		fetchTimeout: DefaultRateFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Rate returns the cached rate or refreshes it when stale.
func (c *RateCache) Rate(ctx context.Context) domain.ExchangeRate {
	if r, ok := c.cached(); ok {
		return r
	}
	if c.group == nil {
		done := make(chan domain.ExchangeRate, 1)
		go func() { done <- c.refresh(ctx) }()
		select {
		case r := <-done:
			return r
		case <-ctx.Done():
			return c.abandoned(ctx)
		}
	}
	done := c.group.DoChan(string(c.pair), func() (any, error) {
		if r, ok := c.cached(); ok {
			return r, nil
		}
		return c.refresh(ctx), nil
	})
	select {
	case res := <-done:
		return res.Val.(domain.ExchangeRate)
	case <-ctx.Done():
		return c.abandoned(ctx)
	}
}

// abandoned answers a caller whose context ended before the refresh did.
// The in-flight refresh still lands in the cache.
func (c *RateCache) abandoned(ctx context.Context) domain.ExchangeRate {
	c.log.Debug("rate_cache.caller_gone", zap.String("pair", string(c.pair)), zap.Error(ctx.Err()))
	return domain.ExchangeRate{Value: c.fallback, FetchedAt: c.clock.Now()}
}

func (c *RateCache) cached() (domain.ExchangeRate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.loaded && c.current.Fresh(c.clock.Now(), c.ttl) {
		return c.current, true
	}
	return domain.ExchangeRate{}, false
}

func (c *RateCache) refresh(ctx context.Context) domain.ExchangeRate {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	q, err := c.provider.Get(fetchCtx, string(c.pair))
	value := q.Price
	switch {
	case err != nil:
		c.log.Warn("rate_cache.refresh_failed", zap.String("pair", string(c.pair)), zap.Error(err), zap.Float64("fallback", c.fallback))
		value = c.fallback
	case !domain.UsableRate(value):
		c.log.Warn("rate_cache.unusable_rate", zap.String("pair", string(c.pair)), zap.Float64("value", value), zap.Float64("fallback", c.fallback))
		value = c.fallback
	default:
		c.log.Info("rate_cache.refreshed", zap.String("pair", string(c.pair)), zap.Float64("value", value))
	}

	r := domain.ExchangeRate{Value: value, FetchedAt: c.clock.Now()}
	c.mu.Lock()
	c.current = r
	c.loaded = true
	c.mu.Unlock()
	return r
}
