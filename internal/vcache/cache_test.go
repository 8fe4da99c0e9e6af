package vcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brewtrail/brewtrail/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(Options{Path: t.TempDir() + "/cache.db", MemoryMaxEntries: 8})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheRoundtrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.Set(ctx, KindTier2, "k1", []byte("v1"), time.Hour)
	assert.Equal(t, []byte("v1"), c.Get(ctx, KindTier2, "k1"))
	assert.Nil(t, c.Get(ctx, KindTier2, "missing"))

	// Kinds are separate namespaces.
	assert.Nil(t, c.Get(ctx, KindTier3Name, "k1"))
}

func TestCacheSurvivesMemoryEviction(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.Set(ctx, KindTier2, "first", []byte("v"), time.Hour)
	// Push well past the memory tier's capacity of 8.
	for i := 0; i < 20; i++ {
		c.Set(ctx, KindTier2, string(rune('a'+i)), []byte("x"), time.Hour)
	}

	// Evicted from memory, still served from the persistent tier.
	assert.Equal(t, []byte("v"), c.Get(ctx, KindTier2, "first"))
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/cache.db"
	ctx := context.Background()

	c1, err := Open(Options{Path: path})
	require.NoError(t, err)
	c1.Set(ctx, KindTier3Name, "fremont brewing", []byte("cached"), time.Hour)
	require.NoError(t, c1.Close())

	c2, err := Open(Options{Path: path})
	require.NoError(t, err)
	defer c2.Close()
	assert.Equal(t, []byte("cached"), c2.Get(ctx, KindTier3Name, "fremont brewing"))
}

func TestCacheVerificationRoundtrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	res := &model.VerificationResult{
		Tier:       2,
		VenueType:  model.VenueTypeBrewery,
		Verified:   true,
		Confidence: 0.85,
		Source:     model.VenueSourceDirectory,
	}
	c.SetVerification(ctx, KindTier2, "k", res, Tier2TTL)

	got := c.GetVerification(ctx, KindTier2, "k")
	require.NotNil(t, got)
	assert.Equal(t, res.Tier, got.Tier)
	assert.Equal(t, res.VenueType, got.VenueType)
	assert.InDelta(t, res.Confidence, got.Confidence, 1e-9)
	assert.False(t, got.CachedAt.IsZero())
}

func TestCacheExpiredEntriesMiss(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.Set(ctx, KindAreaSearch, "k", []byte("1"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Nil(t, c.Get(ctx, KindAreaSearch, "k"))
}

func TestCacheMarkers(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	assert.False(t, c.HasMarker(ctx, KindAreaSearch, "area"))
	c.SetMarker(ctx, KindAreaSearch, "area", time.Hour)
	assert.True(t, c.HasMarker(ctx, KindAreaSearch, "area"))
}

func TestCacheClear(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.Set(ctx, KindTier2, "k", []byte("v"), time.Hour)
	require.NoError(t, c.Clear(ctx))
	assert.Nil(t, c.Get(ctx, KindTier2, "k"))
}

func TestCacheStats(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	c.Set(ctx, KindTier2, "k", []byte("v"), time.Hour)
	c.Get(ctx, KindTier2, "k")       // hit
	c.Get(ctx, KindTier2, "absent")  // miss
	c.Get(ctx, KindTier2, "absent2") // miss

	stats := c.Stats(ctx)
	assert.Equal(t, 1, stats.PersistentEntries)
	assert.GreaterOrEqual(t, stats.Hits, int64(1))
	assert.GreaterOrEqual(t, stats.Misses, int64(2))
	assert.Greater(t, stats.HitRate, 0.0)
}

func TestMemoryTierLRUEviction(t *testing.T) {
	m := newMemoryTier(2, time.Minute)

	m.put("a", []byte("1"), 0)
	m.put("b", []byte("2"), 0)
	m.get("a") // refresh a; b becomes oldest
	m.put("c", []byte("3"), 0)

	assert.NotNil(t, m.get("a"))
	assert.Nil(t, m.get("b"))
	assert.NotNil(t, m.get("c"))
	assert.Equal(t, 2, m.len())
}

func TestMemoryTierTTL(t *testing.T) {
	m := newMemoryTier(8, time.Minute)

	m.put("k", []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Nil(t, m.get("k"))
	assert.Equal(t, 0, m.len())
}
