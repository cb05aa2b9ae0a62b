package snapshot

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lendlens/lendlens/internal/chains"
)

// DefaultTTL is how long a fetched snapshot stays fresh.
const DefaultTTL = 6 * time.Hour

// Source fetches a snapshot for a (chain, address) pair.
type Source interface {
	Fetch(ctx context.Context, chainID chains.ID, address string) (*Snapshot, error)
}

type cacheKey struct {
	chain   chains.ID
	address string
}

type cacheEntry struct {
	snap      *Snapshot
	fetchedAt time.Time
}

// Cache memoizes snapshots per (chain, address) with a fixed TTL. Entries
// are replaced atomically; distinct keys never contend beyond the map lock.
type Cache struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

// NewCache creates a Cache over the given source. A zero ttl falls back to
// DefaultTTL; a nil clock falls back to time.Now. The clock is injectable so
// expiry is testable without waiting in real time.
func NewCache(source Source, ttl time.Duration, clock func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		now:     clock,
		entries: make(map[cacheKey]cacheEntry),
	}
}

// GetOrFetch returns the cached snapshot if it is still within the TTL
// window, otherwise fetches a fresh one and replaces the entry. Errors are
// never cached.
func (c *Cache) GetOrFetch(ctx context.Context, chainID chains.ID, address string) (*Snapshot, error) {
	key := cacheKey{chain: chainID, address: strings.ToLower(strings.TrimSpace(address))}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	now := c.now()
	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		return entry.snap, nil
	}

	snap, err := c.source.Fetch(ctx, chainID, address)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{snap: snap, fetchedAt: now}
	c.mu.Unlock()

	return snap, nil
}

// Invalidate drops the cached entry for a (chain, address) pair.
func (c *Cache) Invalidate(chainID chains.ID, address string) {
	key := cacheKey{chain: chainID, address: strings.ToLower(strings.TrimSpace(address))}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
