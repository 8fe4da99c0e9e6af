package vcache

import (
	"sync"
	"sync/atomic"
	"time"
)

// memoryTier is a concurrent-safe LRU front for the persistent cache tier.
// Entries carry their own expiry, bounded above by the tier's max TTL.
type memoryTier struct {
	mu         sync.Mutex
	entries    map[string]*memoryEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	maxTTL     time.Duration
	hits       atomic.Int64
	misses     atomic.Int64
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func newMemoryTier(maxEntries int, maxTTL time.Duration) *memoryTier {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	if maxTTL <= 0 {
		maxTTL = 30 * time.Minute
	}
	return &memoryTier{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		maxTTL:     maxTTL,
	}
}

// get retrieves a cached value. Returns nil on miss or expiration.
func (m *memoryTier) get(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		m.misses.Add(1)
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		m.removeFromOrder(key)
		m.misses.Add(1)
		return nil
	}

	// Move to back (most recently used).
	m.removeFromOrder(key)
	m.order = append(m.order, key)
	m.hits.Add(1)
	return entry.data
}

// put stores a value, evicting the oldest entry if at capacity. The entry
// TTL is capped at the tier max so the persistent tier stays authoritative.
func (m *memoryTier) put(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 || ttl > m.maxTTL {
		ttl = m.maxTTL
	}
	expiresAt := time.Now().Add(ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[key]; ok {
		m.entries[key] = &memoryEntry{data: data, expiresAt: expiresAt}
		m.removeFromOrder(key)
		m.order = append(m.order, key)
		return
	}

	for len(m.entries) >= m.maxEntries && len(m.order) > 0 {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}

	m.entries[key] = &memoryEntry{data: data, expiresAt: expiresAt}
	m.order = append(m.order, key)
}

func (m *memoryTier) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	m.order = nil
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memoryTier) removeFromOrder(key string) {
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
