package cache

import (
	"context"
	"sync"
	"time"

	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

// autoSwapCache starts on a fallback and keeps dialing the real backend
// until it succeeds, then swaps atomically.
type autoSwapCache struct {
	mu      sync.RWMutex
	current Cache
	logger  logger.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newAutoSwapCache(fallback Cache, log logger.Logger, interval time.Duration, dialReal func() (Cache, error)) *autoSwapCache {
	a := &autoSwapCache{
		current: fallback,
		logger:  log,
		stopCh:  make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.stopCh:
				return
			case <-ticker.C:
				real, err := dialReal()
				if err != nil {
					a.logger.Debug("Valkey connection attempt failed; will retry", "error", err)
					continue
				}
				a.mu.Lock()
				a.current = real
				a.mu.Unlock()
				a.logger.Info("Valkey connection established; switched from in-memory to real cache")
				return
			}
		}
	}()

	return a
}

// Stop ends the background connector.
func (a *autoSwapCache) Stop() { a.stopOnce.Do(func() { close(a.stopCh) }) }

func (a *autoSwapCache) active() Cache {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

func (a *autoSwapCache) Get(ctx context.Context, key string) ([]byte, error) {
	return a.active().Get(ctx, key)
}

func (a *autoSwapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return a.active().Set(ctx, key, value, ttl)
}

func (a *autoSwapCache) Delete(ctx context.Context, key string) error {
	return a.active().Delete(ctx, key)
}

func (a *autoSwapCache) HealthCheck(ctx context.Context) error {
	return a.active().HealthCheck(ctx)
}
