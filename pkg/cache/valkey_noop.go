package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/platformbuilds/vigilante-core/internal/monitoring"
	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

// memoryCache is a process-local cache used when no Valkey node is
// configured or reachable. Entries honor their TTL lazily on read.
type memoryCache struct {
	mu     sync.RWMutex
	m      map[string]memoryEntry
	now    func() time.Time
	logger logger.Logger
}

type memoryEntry struct {
	value   []byte
	expires time.Time // zero = no expiry
}

func NewMemoryCache(log logger.Logger) Cache {
	return &memoryCache{m: make(map[string]memoryEntry), now: time.Now, logger: log}
}

func (n *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	n.mu.RLock()
	e, ok := n.m[key]
	n.mu.RUnlock()

	if ok && !e.expires.IsZero() && !n.now().Before(e.expires) {
		n.mu.Lock()
		delete(n.m, key)
		n.mu.Unlock()
		ok = false
	}
	if !ok {
		monitoring.RecordCacheOperation("get", "miss")
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}
	monitoring.RecordCacheOperation("get", "hit")
	return e.value, nil
}

func (n *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := encodeValue(key, value)
	if err != nil {
		monitoring.RecordCacheOperation("set", "error")
		return err
	}
	e := memoryEntry{value: b}
	if ttl > 0 {
		e.expires = n.now().Add(ttl)
	}
	n.mu.Lock()
	n.m[key] = e
	n.mu.Unlock()
	monitoring.RecordCacheOperation("set", "success")
	return nil
}

func (n *memoryCache) Delete(ctx context.Context, key string) error {
	n.mu.Lock()
	delete(n.m, key)
	n.mu.Unlock()
	return nil
}

// errMemoryCache lets /ready report that no shared cache is connected.
var errMemoryCache = errors.New("in-memory cache active (Valkey not connected)")

func (n *memoryCache) HealthCheck(ctx context.Context) error {
	return errMemoryCache
}

// IsMemory reports whether c is the process-local fallback.
func IsMemory(c Cache) bool {
	switch x := c.(type) {
	case *memoryCache:
		return true
	case *autoSwapCache:
		return IsMemory(x.active())
	default:
		return false
	}
}
