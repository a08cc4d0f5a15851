package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"videofinder/searchservice/internal/domain"
)

type fakeBackendEntry struct {
	payload   []domain.SourceRecord
	createdAt time.Time
	expiresAt time.Time
}

// fakeBackend behaves like the Redis tier: entries vanish once their
// TTL passes, judged against the injected clock.
type fakeBackend struct {
	now     func() time.Time
	entries map[string]fakeBackendEntry
	getErr  error
	setErr  error
}

func newFakeBackend(now func() time.Time) *fakeBackend {
	return &fakeBackend{now: now, entries: make(map[string]fakeBackendEntry)}
}

func (b *fakeBackend) Get(_ context.Context, key string) ([]domain.SourceRecord, time.Time, bool, error) {
	if b.getErr != nil {
		return nil, time.Time{}, false, b.getErr
	}
	entry, ok := b.entries[key]
	if !ok || b.now().After(entry.expiresAt) {
		delete(b.entries, key)
		return nil, time.Time{}, false, nil
	}
	return entry.payload, entry.createdAt, true, nil
}

func (b *fakeBackend) Set(_ context.Context, key string, payload []domain.SourceRecord, createdAt time.Time, ttl time.Duration) error {
	if b.setErr != nil {
		return b.setErr
	}
	b.entries[key] = fakeBackendEntry{
		payload:   payload,
		createdAt: createdAt,
		expiresAt: createdAt.Add(ttl),
	}
	return nil
}

func (b *fakeBackend) Clear(context.Context) error {
	b.entries = make(map[string]fakeBackendEntry)
	return nil
}

func testRecords(urls ...string) []domain.SourceRecord {
	records := make([]domain.SourceRecord, 0, len(urls))
	for _, u := range urls {
		records = append(records, domain.SourceRecord{
			WebsiteName: "Filmix",
			URL:         u,
			Quality:     "1080",
			IsActive:    true,
		})
	}
	return records
}

func TestCacheFreshness(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	cache := NewCache(WithCacheNowFunc(func() time.Time { return current }))
	ctx := context.Background()

	payload := testRecords("https://filmix.ac/film/1")
	cache.Put(ctx, "fp1", payload)

	got, ok := cache.Get(ctx, "fp1")
	if !ok || len(got) != 1 {
		t.Fatalf("Get() = %v, %v; want fresh hit", got, ok)
	}

	current = current.Add(TTLSearch - time.Second)
	if _, ok := cache.Get(ctx, "fp1"); !ok {
		t.Error("entry expired before TTL")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get(ctx, "fp1"); ok {
		t.Error("stale entry was returned past TTL")
	}
	if cache.Len() != 0 {
		t.Errorf("stale entry was not lazily removed, Len() = %d", cache.Len())
	}
}

func TestCachePutOverwrites(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	cache.Put(ctx, "fp", testRecords("https://a"))
	cache.Put(ctx, "fp", testRecords("https://b", "https://c"))

	got, ok := cache.Get(ctx, "fp")
	if !ok || len(got) != 2 {
		t.Fatalf("Get() after overwrite = %d records, want 2", len(got))
	}
	if got[0].URL != "https://b" {
		t.Errorf("payload not replaced: %+v", got)
	}
}

func TestCacheGetReturnsCopy(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	cache.Put(ctx, "fp", testRecords("https://a"))
	got, _ := cache.Get(ctx, "fp")
	got[0].URL = "mutated"

	again, _ := cache.Get(ctx, "fp")
	if again[0].URL != "https://a" {
		t.Error("cache payload was mutated through a returned slice")
	}
}

func TestCacheSweepUsesCoarseTTL(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	cache := NewCache(WithCacheNowFunc(func() time.Time { return current }))
	ctx := context.Background()

	cache.Put(ctx, "old", testRecords("https://a"))
	current = current.Add(30 * time.Minute)
	cache.Put(ctx, "young", testRecords("https://b"))

	// "old" is stale for Get (past 5 minutes) but younger than the
	// sweep TTL, so the sweep leaves it alone.
	if removed := cache.Sweep(); removed != 0 {
		t.Fatalf("Sweep() removed %d entries, want 0", removed)
	}

	current = current.Add(31 * time.Minute)
	if removed := cache.Sweep(); removed != 1 {
		t.Fatalf("Sweep() removed %d entries, want just the hour-old one", removed)
	}
	if cache.Len() != 1 {
		t.Errorf("Len() = %d after sweep, want 1", cache.Len())
	}
}

func TestCacheClear(t *testing.T) {
	cache := NewCache()
	ctx := context.Background()

	cache.Put(ctx, "a", testRecords("https://a"))
	cache.Put(ctx, "b", testRecords("https://b"))

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d after clear, want 0", cache.Len())
	}
}

func TestCacheBackendHitKeepsOriginalAge(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return current }
	backend := newFakeBackend(now)
	cache := NewCache(WithCacheNowFunc(now), WithBackend(backend))
	ctx := context.Background()

	cache.Put(ctx, "fp", testRecords("https://filmix.ac/film/1"))

	// A backend hit just before expiry must not restart the clock on
	// the local mirror.
	current = current.Add(TTLSearch - time.Second)
	if _, ok := cache.Get(ctx, "fp"); !ok {
		t.Fatal("entry expired before TTL")
	}

	current = current.Add(2 * time.Second)
	if _, ok := cache.Get(ctx, "fp"); ok {
		t.Fatal("entry served past TTL after a backend hit refreshed the mirror")
	}
}

func TestCacheStaleBackendEntryIsAMiss(t *testing.T) {
	current := time.Unix(1_700_000_000, 0)
	now := func() time.Time { return current }
	backend := newFakeBackend(now)
	cache := NewCache(WithCacheNowFunc(now), WithBackend(backend))
	ctx := context.Background()

	payload := testRecords("https://filmix.ac/film/1")
	if err := backend.Set(ctx, "fp", payload, current.Add(-TTLSearch-time.Minute), time.Hour); err != nil {
		t.Fatal(err)
	}

	// The backend still holds the entry but its recorded age is past
	// the TTL, so the cache must not serve it.
	if _, ok := cache.Get(ctx, "fp"); ok {
		t.Error("over-age backend entry was served")
	}
}

func TestCacheSurvivesBackendErrors(t *testing.T) {
	backend := newFakeBackend(time.Now)
	backend.getErr = errors.New("connection refused")
	backend.setErr = errors.New("connection refused")
	cache := NewCache(WithBackend(backend))
	ctx := context.Background()

	cache.Put(ctx, "fp", testRecords("https://filmix.ac/film/1"))

	got, ok := cache.Get(ctx, "fp")
	if !ok || len(got) != 1 {
		t.Fatalf("Get() = %v, %v; want the in-memory entry despite backend errors", got, ok)
	}
}

func TestFingerprintCanonicalization(t *testing.T) {
	a := Fingerprint(domain.Query{
		Title: "  The Matrix ",
		Year:  1999,
		Filters: domain.FilterSet{
			Quality: "FullHD",
			Sources: []string{"HDRezka", "filmix", "hdrezka", ""},
		},
	})
	b := Fingerprint(domain.Query{
		Title: "the matrix",
		Year:  1999,
		Filters: domain.FilterSet{
			Quality: "1080",
			Sources: []string{"Filmix", "HDREZKA"},
		},
	})
	if a != b {
		t.Errorf("equivalent queries produced different fingerprints:\n%s\n%s", a, b)
	}

	c := Fingerprint(domain.Query{Title: "the matrix", Year: 2003})
	if a == c {
		t.Error("different queries share a fingerprint")
	}
}
