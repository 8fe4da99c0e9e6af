// Package vcache is the tiered TTL cache for external-verification results
// and area-search markers. A bounded in-memory LRU tier fronts a persistent
// SQLite tier. Cache failures never propagate to callers — they are logged
// and treated as misses.
package vcache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/brewtrail/brewtrail/internal/model"
)

// Result TTLs per verification kind.
const (
	Tier2TTL      = 30 * 24 * time.Hour
	Tier3NameTTL  = 60 * 24 * time.Hour
	Tier3AddrTTL  = 7 * 24 * time.Hour
	AreaSearchTTL = 24 * time.Hour
)

// Options configures the cache tiers.
type Options struct {
	Path             string
	MemoryMaxEntries int
	MemoryTTL        time.Duration
}

// Stats reports cache contents and hit rates for operational use.
type Stats struct {
	MemoryEntries     int     `json:"memory_entries"`
	PersistentEntries int     `json:"persistent_entries"`
	Hits              int64   `json:"hits"`
	Misses            int64   `json:"misses"`
	HitRate           float64 `json:"hit_rate"`
}

// Cache is the tiered verification cache.
type Cache struct {
	mem   *memoryTier
	store *sqliteTier
}

// Open creates the cache, opening (and migrating) the SQLite tier at
// opts.Path.
func Open(opts Options) (*Cache, error) {
	store, err := openSQLiteTier(opts.Path)
	if err != nil {
		return nil, err
	}
	return &Cache{
		mem:   newMemoryTier(opts.MemoryMaxEntries, opts.MemoryTTL),
		store: store,
	}, nil
}

// Close releases the persistent tier.
func (c *Cache) Close() error {
	return c.store.close()
}

// Get returns the raw cached value for (kind, key), or nil on miss. Errors
// from the persistent tier are logged and reported as misses.
func (c *Cache) Get(ctx context.Context, kind Kind, key string) []byte {
	full := string(kind) + ":" + key
	if data := c.mem.get(full); data != nil {
		return data
	}

	data, err := c.store.get(ctx, kind, key)
	if err != nil {
		zap.L().Warn("verification cache read failed, treating as miss",
			zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	if data == nil {
		return nil
	}

	c.mem.put(full, data, 0)
	return data
}

// Set stores a value in both tiers. Persistent-tier failures are logged
// and swallowed.
func (c *Cache) Set(ctx context.Context, kind Kind, key string, value []byte, ttl time.Duration) {
	c.mem.put(string(kind)+":"+key, value, ttl)

	if err := c.store.set(ctx, kind, key, value, ttl); err != nil {
		zap.L().Warn("verification cache write failed",
			zap.String("kind", string(kind)), zap.Error(err))
	}
}

// GetVerification returns a cached verification result, or nil on miss.
func (c *Cache) GetVerification(ctx context.Context, kind Kind, key string) *model.VerificationResult {
	data := c.Get(ctx, kind, key)
	if data == nil {
		return nil
	}

	var res model.VerificationResult
	if err := json.Unmarshal(data, &res); err != nil {
		zap.L().Warn("verification cache entry corrupt, treating as miss",
			zap.String("kind", string(kind)), zap.Error(err))
		return nil
	}
	return &res
}

// SetVerification caches a verification result with the given TTL.
func (c *Cache) SetVerification(ctx context.Context, kind Kind, key string, res *model.VerificationResult, ttl time.Duration) {
	res.CachedAt = time.Now().UTC()
	data, err := json.Marshal(res)
	if err != nil {
		zap.L().Warn("verification cache marshal failed", zap.Error(err))
		return
	}
	c.Set(ctx, kind, key, data, ttl)
}

// SetMarker records an "already done" marker, used for area searches.
func (c *Cache) SetMarker(ctx context.Context, kind Kind, key string, ttl time.Duration) {
	c.Set(ctx, kind, key, []byte("1"), ttl)
}

// HasMarker reports whether an unexpired marker exists.
func (c *Cache) HasMarker(ctx context.Context, kind Kind, key string) bool {
	return c.Get(ctx, kind, key) != nil
}

// Clear drops every entry from both tiers.
func (c *Cache) Clear(ctx context.Context) error {
	c.mem.clear()
	return c.store.clear(ctx)
}

// PurgeExpired removes expired rows from the persistent tier and returns
// the count removed.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	return c.store.purgeExpired(ctx)
}

// Stats reports cache statistics. Persistent-tier errors degrade to a
// partial snapshot.
func (c *Cache) Stats(ctx context.Context) Stats {
	hits := c.mem.hits.Load()
	misses := c.mem.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	persistent, err := c.store.count(ctx)
	if err != nil {
		zap.L().Warn("verification cache stats failed", zap.Error(err))
	}

	return Stats{
		MemoryEntries:     c.mem.len(),
		PersistentEntries: persistent,
		Hits:              hits,
		Misses:            misses,
		HitRate:           hitRate,
	}
}
