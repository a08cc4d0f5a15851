package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/metrics"
)

const (
	// TTLSearch is how long a computed result stays servable.
	TTLSearch = 5 * time.Minute
	// TTLSweep is the coarse backstop age used by the periodic sweep.
	TTLSweep = time.Hour
	// SweepInterval is how often the sweep runs.
	SweepInterval = time.Hour
)

type cacheEntry struct {
	payload   []domain.SourceRecord
	createdAt time.Time
}

// CacheBackend is the shared tier consulted before the local map. It
// stores each payload together with its creation time so every tier
// judges age against the same instant.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]domain.SourceRecord, time.Time, bool, error)
	Set(ctx context.Context, key string, payload []domain.SourceRecord, createdAt time.Time, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// Cache maps query fingerprints to aggregation results. Lookups go to
// the shared backend first when one is attached, with the in-memory map
// as both the fallback and a local mirror. Expiry is lazy on Get plus
// the periodic Sweep backstop.
type Cache struct {
	ttl      time.Duration
	sweepTTL time.Duration
	now      func() time.Time
	backend  CacheBackend
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithSweepTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.sweepTTL = ttl
		}
	}
}

func WithCacheNowFunc(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithBackend(backend CacheBackend) CacheOption {
	return func(c *Cache) {
		c.backend = backend
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		ttl:      TTLSearch,
		sweepTTL: TTLSweep,
		now:      time.Now,
		logger:   slog.Default(),
		entries:  make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sweepTTL < c.ttl {
		c.sweepTTL = c.ttl
	}
	return c
}

// Get returns the cached payload for a fingerprint. A stale entry is
// removed on access and reported as a miss. Backend hits are mirrored
// locally with their original creation time, so a payload never
// outlives the TTL by bouncing between tiers.
func (c *Cache) Get(ctx context.Context, fingerprint string) ([]domain.SourceRecord, bool) {
	if c.backend != nil {
		payload, createdAt, found, err := c.backend.Get(ctx, fingerprint)
		switch {
		case err != nil:
			c.logger.Warn("cache backend read failed", slog.String("error", err.Error()))
		case found && c.now().Sub(createdAt) <= c.ttl:
			metrics.CacheHitsTotal.Inc()
			c.storeMemory(fingerprint, payload, createdAt)
			return payload, true
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	if c.now().Sub(entry.createdAt) > c.ttl {
		delete(c.entries, fingerprint)
		metrics.CacheMissesTotal.Inc()
		metrics.CacheEvictionsTotal.Inc()
		return nil, false
	}

	metrics.CacheHitsTotal.Inc()
	return cloneRecords(entry.payload), true
}

// Put overwrites any existing entry for the fingerprint. The entry is
// replaced atomically, readers never observe a half-written payload.
func (c *Cache) Put(ctx context.Context, fingerprint string, payload []domain.SourceRecord) {
	createdAt := c.now()
	if c.backend != nil {
		if err := c.backend.Set(ctx, fingerprint, payload, createdAt, c.ttl); err != nil {
			c.logger.Warn("cache backend write failed", slog.String("error", err.Error()))
		}
	}
	c.storeMemory(fingerprint, payload, createdAt)
}

func (c *Cache) storeMemory(fingerprint string, payload []domain.SourceRecord, createdAt time.Time) {
	entry := &cacheEntry{payload: cloneRecords(payload), createdAt: createdAt}

	c.mu.Lock()
	c.entries[fingerprint] = entry
	c.mu.Unlock()
}

// Sweep drops every entry older than the coarse TTL and returns how
// many were removed. It runs independent of lookups, bounding growth
// for fingerprints that are never queried again.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fingerprint, entry := range c.entries {
		if now.Sub(entry.createdAt) > c.sweepTTL {
			delete(c.entries, fingerprint)
			removed++
		}
	}
	if removed > 0 {
		metrics.CacheEvictionsTotal.Add(float64(removed))
	}
	return removed
}

// RunSweeper blocks, sweeping on every tick until the context ends.
func (c *Cache) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

// Clear drops everything immediately, both tiers.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()

	if c.backend != nil {
		return c.backend.Clear(ctx)
	}
	return nil
}

// Len reports the number of live in-memory entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneRecords(records []domain.SourceRecord) []domain.SourceRecord {
	if records == nil {
		return nil
	}
	cloned := make([]domain.SourceRecord, len(records))
	for i, record := range records {
		copied := record
		if record.CreatedAt != nil {
			value := *record.CreatedAt
			copied.CreatedAt = &value
		}
		cloned[i] = copied
	}
	return cloned
}
