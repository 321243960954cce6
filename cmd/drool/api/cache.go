package api

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/cqframework/cqftooling/cmd/drool/generator"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

type CacheConfig struct {
	// Enabled turns caching on. A disabled cache never stores anything.
	Enabled bool

	// TTL is how long a conversion result stays valid.
	TTL time.Duration

	// MaxSize bounds the number of entries; the oldest go first. Zero means
	// unbounded.
	MaxSize int

	// CleanupInterval is how often expired and surplus entries are removed.
	CleanupInterval time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:         true,
		TTL:             15 * time.Minute,
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// ResultCache keeps conversion results keyed by a digest of the request body.
// Cached results are shared between requests and must not be mutated.
type ResultCache struct {
	entries  sync.Map // map[string]*cacheEntry
	config   CacheConfig
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheEntry struct {
	result    *generator.Result
	createdAt time.Time
	expiresAt time.Time
}

func NewResultCache(config CacheConfig, log zerolog.Logger) *ResultCache {
	cache := &ResultCache{
		config:   config,
		log:      log.With().Str("component", "result_cache").Logger(),
		stopChan: make(chan struct{}),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		go cache.startCleanupRoutine()
		cache.log.Info().
			Dur("interval", config.CleanupInterval).
			Int("max_size", config.MaxSize).
			Dur("ttl", config.TTL).
			Msg("Started cache cleanup routine")
	}
	return cache
}

// Key digests a request body.
func (c *ResultCache) Key(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func (c *ResultCache) Get(key string) (*generator.Result, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	value, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	entry := value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Delete(key)
		return nil, false
	}
	return entry.result, true
}

func (c *ResultCache) Store(key string, result *generator.Result) {
	if !c.config.Enabled {
		return
	}

	now := time.Now()
	c.entries.Store(key, &cacheEntry{
		result:    result,
		createdAt: now,
		expiresAt: now.Add(c.config.TTL),
	})
	c.log.Debug().
		Str("key", key).
		Int("statements", result.Output.Len()).
		Msg("Stored conversion result in cache")

	// The size bound holds between cleanup ticks too.
	if c.config.MaxSize > 0 && c.size() > c.config.MaxSize {
		c.cleanup(now)
	}
}

func (c *ResultCache) size() int {
	n := 0
	c.entries.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Stop ends the cleanup routine.
func (c *ResultCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *ResultCache) startCleanupRoutine() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup(time.Now())
		case <-c.stopChan:
			c.log.Info().Msg("Stopping cache cleanup routine")
			return
		}
	}
}

func (c *ResultCache) cleanup(now time.Time) {
	type live struct {
		key       string
		createdAt time.Time
	}
	var (
		entries []live
		expired int
		evicted int
	)

	c.entries.Range(func(key, value interface{}) bool {
		entry := value.(*cacheEntry)
		if now.After(entry.expiresAt) {
			c.entries.Delete(key)
			expired++
			return true
		}
		entries = append(entries, live{key: key.(string), createdAt: entry.createdAt})
		return true
	})

	if c.config.MaxSize > 0 && len(entries) > c.config.MaxSize {
		slices.SortFunc(entries, func(a, b live) int {
			return a.createdAt.Compare(b.createdAt)
		})
		for _, e := range entries[:len(entries)-c.config.MaxSize] {
			c.entries.Delete(e.key)
			evicted++
		}
	}

	c.log.Debug().
		Int("expired_removed", expired).
		Int("size_limit_removed", evicted).
		Int("remaining_entries", len(entries)-evicted).
		Msg("Completed cache cleanup")
}
