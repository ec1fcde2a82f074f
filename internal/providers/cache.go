package providers

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// PayloadCache holds the last-known-good FetchResult per (symbol,
// timeframe) so the fetcher's final fallback step ("return a cached
// payload if fresh enough") has something to fall back to when every
// provider fails. Backed by Redis when REDIS_ADDR is configured (modeled on the
// teacher's src/infrastructure/data/cache.go CacheManager), otherwise
// an in-process map — the cache is a performance/resilience aid, never
// the source of truth. Freshness is bounded only by the Redis key TTL;
// the in-process map ignores ttl and returns the last stored payload
// regardless of its age.
type PayloadCache interface {
	Get(ctx context.Context, key string) (FetchResult, bool)
	Set(ctx context.Context, key string, result FetchResult, ttl time.Duration)
}

type cachedPayload struct {
	Bars     []Bar     `json:"bars"`
	Source   string    `json:"source"`
	StoredAt time.Time `json:"stored_at"`
}

// NewPayloadCache returns a Redis-backed cache if REDIS_ADDR is set,
// otherwise an in-process cache.
func NewPayloadCache() PayloadCache {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: os.Getenv("REDIS_PASSWORD")})
		return &redisCache{client: client}
	}
	return &memCache{entries: map[string]cachedPayload{}}
}

type redisCache struct {
	client *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string) (FetchResult, bool) {
	raw, err := c.client.Get(ctx, "papertick:ohlcv:"+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Debug().Err(err).Str("key", key).Msg("providers: redis cache get failed")
		}
		return FetchResult{}, false
	}
	var p cachedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return FetchResult{}, false
	}
	return FetchResult{Bars: p.Bars, Meta: Meta{Source: p.Source, Age: time.Since(p.StoredAt), Stale: true}}, true
}

func (c *redisCache) Set(ctx context.Context, key string, result FetchResult, ttl time.Duration) {
	p := cachedPayload{Bars: result.Bars, Source: result.Meta.Source, StoredAt: time.Now().UTC()}
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, "papertick:ohlcv:"+key, raw, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("providers: redis cache set failed")
	}
}

type memCache struct {
	mu      sync.RWMutex
	entries map[string]cachedPayload
}

func (c *memCache) Get(_ context.Context, key string) (FetchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.entries[key]
	if !ok {
		return FetchResult{}, false
	}
	return FetchResult{Bars: p.Bars, Meta: Meta{Source: p.Source, Age: time.Since(p.StoredAt), Stale: true}}, true
}

func (c *memCache) Set(_ context.Context, key string, result FetchResult, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedPayload{Bars: result.Bars, Source: result.Meta.Source, StoredAt: time.Now().UTC()}
}
