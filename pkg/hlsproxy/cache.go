package hlsproxy

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// validationCache remembers the outcome of variant existence checks.
type validationCache interface {
	Get(ctx context.Context, key string) (valid bool, found bool)
	Set(ctx context.Context, key string, valid bool)
	Shutdown()
}

func newValidationCache(config Config, logger zerolog.Logger) validationCache {
	if config.ValidationCacheTTL <= 0 {
		return nil
	}

	if len(config.RedisAddrs) > 0 {
		return newRedisCache(config, logger)
	}

	return newMemoryCache(config, logger)
}

type memoryEntry struct {
	valid   bool
	expires time.Time
}

type memoryCache struct {
	logger zerolog.Logger
	ttl    time.Duration
	period time.Duration

	cache   map[string]memoryEntry
	cacheMu sync.RWMutex

	cleanup   bool
	cleanupMu sync.Mutex
	shutdown  chan struct{}
}

func newMemoryCache(config Config, logger zerolog.Logger) *memoryCache {
	return &memoryCache{
		logger: logger.With().Str("submodule", "cache").Logger(),
		ttl:    config.ValidationCacheTTL,
		period: config.CacheCleanupPeriod,
		cache:  map[string]memoryEntry{},
	}
}

func (c *memoryCache) Get(ctx context.Context, key string) (bool, bool) {
	c.cacheMu.RLock()
	entry, ok := c.cache[key]
	c.cacheMu.RUnlock()

	// on cache miss
	if !ok {
		c.logger.Debug().Str("key", key).Msg("cache miss")
		return false, false
	}

	// if cache has expired
	if time.Now().After(entry.expires) {
		return false, false
	}

	// cache hit
	c.logger.Debug().Str("key", key).Msg("cache hit")
	return entry.valid, true
}

func (c *memoryCache) Set(ctx context.Context, key string, valid bool) {
	c.cacheMu.Lock()
	c.cache[key] = memoryEntry{
		valid:   valid,
		expires: time.Now().Add(c.ttl),
	}
	c.cacheMu.Unlock()

	// start periodic cleanup if not running
	c.cleanupStart()
}

func (c *memoryCache) Shutdown() {
	c.cleanupStop()
}

func (c *memoryCache) clear() {
	cacheSize := 0

	c.cacheMu.Lock()
	for key, entry := range c.cache {
		// remove expired entries
		if time.Now().After(entry.expires) {
			delete(c.cache, key)
			c.logger.Debug().Str("key", key).Msg("cache cleanup remove expired")
		} else {
			cacheSize++
		}
	}
	c.cacheMu.Unlock()

	if cacheSize == 0 {
		c.cleanupStop()
	}
}

func (c *memoryCache) cleanupStart() {
	c.cleanupMu.Lock()
	defer c.cleanupMu.Unlock()

	// if already running
	if c.cleanup {
		return
	}

	c.shutdown = make(chan struct{})
	c.cleanup = true

	go func(shutdown chan struct{}) {
		c.logger.Debug().Msg("cleanup started")

		ticker := time.NewTicker(c.period)
		defer ticker.Stop()

		for {
			select {
			case <-shutdown:
				return
			case <-ticker.C:
				c.clear()
			}
		}
	}(c.shutdown)
}

func (c *memoryCache) cleanupStop() {
	c.cleanupMu.Lock()
	defer c.cleanupMu.Unlock()

	// if not running
	if !c.cleanup {
		return
	}

	c.cleanup = false
	close(c.shutdown)

	c.logger.Debug().Msg("cleanup stopped")
}

const redisKeyPrefix = "mediapipe:variant:"

type redisCache struct {
	logger zerolog.Logger
	ttl    time.Duration
	client redis.UniversalClient
}

func newRedisCache(config Config, logger zerolog.Logger) *redisCache {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:      config.RedisAddrs,
		Password:   config.RedisPassword,
		DB:         config.RedisDB,
		MaxRetries: 1,
	})

	return &redisCache{
		logger: logger.With().Str("submodule", "redis").Logger(),
		ttl:    config.ValidationCacheTTL,
		client: client,
	}
}

// Get treats redis errors as cache misses.
func (c *redisCache) Get(ctx context.Context, key string) (bool, bool) {
	value, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("unable to read validation cache")
		}
		return false, false
	}
	return strings.TrimSpace(value) == "1", true
}

func (c *redisCache) Set(ctx context.Context, key string, valid bool) {
	value := "0"
	if valid {
		value = "1"
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, value, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("unable to write validation cache")
	}
}

func (c *redisCache) Shutdown() {
	if err := c.client.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("unable to close redis client")
	}
}
