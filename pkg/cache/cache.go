package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/platformbuilds/vigilante-core/pkg/logger"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

const (
	// LatestStepKey holds the most recent step record of the running simulation.
	LatestStepKey = "vigilante:step:latest"

	advicePrefix = "vigilante:advice:"
)

// Cache is the small key/value surface the service needs: advisor answers
// keyed by prompt hash and the latest step record for the API.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	HealthCheck(ctx context.Context) error
}

// AdviceKey derives the cache key of an advisor prompt.
func AdviceKey(provider, model, prompt string) string {
	hash := sha256.Sum256([]byte(provider + "\x00" + model + "\x00" + prompt))
	return fmt.Sprintf("%s%x", advicePrefix, hash[:16])
}

// GetJSON decodes the value at key into out.
func GetJSON(ctx context.Context, c Cache, key string, out interface{}) error {
	b, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

// Options selects and tunes the backend built by New.
type Options struct {
	Nodes      []string
	Password   string
	DB         int
	DefaultTTL time.Duration
}

// New returns an in-memory cache when no nodes are configured, a single-node
// or cluster client when the nodes answer, and otherwise an in-memory cache
// that upgrades itself once the nodes become reachable.
func New(opts Options, log logger.Logger) Cache {
	if len(opts.Nodes) == 0 {
		return NewMemoryCache(log)
	}

	dial := func() (Cache, error) {
		if len(opts.Nodes) == 1 {
			return NewValkeySingle(opts.Nodes[0], opts.DB, opts.Password, opts.DefaultTTL)
		}
		return NewValkeyCluster(opts.Nodes, opts.Password, opts.DefaultTTL)
	}

	c, err := dial()
	if err == nil {
		log.Info("Valkey cache connected", "nodes", opts.Nodes)
		return c
	}

	log.Warn("Valkey cache unreachable; starting with in-memory cache", "nodes", opts.Nodes, "error", err)
	return newAutoSwapCache(NewMemoryCache(log), log, 5*time.Second, dial)
}

func encodeValue(key string, value interface{}) ([]byte, error) {
	switch x := value.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %s: %w", key, err)
		}
		return b, nil
	}
}
