package services

import (
	"context"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/logging"
	"github.com/platformbuilds/vigilante-core/internal/metrics"
	"github.com/platformbuilds/vigilante-core/pkg/cache"
)

// CachedAdvisor answers repeated prompts from the cache. Identical
// snapshots render identical prompts, so reruns over the same CSV reuse
// earlier answers.
type CachedAdvisor struct {
	underlying AdvisorService
	cache      cache.Cache
	ttl        time.Duration
	logger     logging.Logger
}

func NewCachedAdvisor(underlying AdvisorService, c cache.Cache, ttl time.Duration, logger logging.Logger) *CachedAdvisor {
	return &CachedAdvisor{
		underlying: underlying,
		cache:      c,
		ttl:        ttl,
		logger:     logging.OrNop(logger),
	}
}

func (c *CachedAdvisor) Complete(ctx context.Context, prompt string) (*AdvisorResponse, error) {
	key := cache.AdviceKey(c.underlying.GetProviderName(), c.underlying.GetModelName(), prompt)

	var cached AdvisorResponse
	if err := cache.GetJSON(ctx, c.cache, key, &cached); err == nil {
		c.logger.Debug("Advisor response cache hit", "cache_key", key)
		metrics.AdvisorRequestsTotal.WithLabelValues(c.underlying.GetProviderName(), "cached").Inc()
		cached.Cached = true
		return &cached, nil
	}

	resp, err := c.underlying.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, resp, c.ttl); err != nil {
		c.logger.Warn("Failed to store advisor response in cache", "error", err)
	}

	resp.Cached = false
	return resp, nil
}

func (c *CachedAdvisor) GetProviderName() string { return c.underlying.GetProviderName() }

func (c *CachedAdvisor) GetModelName() string { return c.underlying.GetModelName() }
