package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/resolve"
)

type fakeResolver struct {
	id    domain.ExternalID
	err   error
	calls atomic.Int64
}

func (f *fakeResolver) Resolve(_ context.Context, _ string, _ int) (domain.ExternalID, error) {
	f.calls.Add(1)
	if f.err != nil {
		return domain.ExternalID{}, f.err
	}
	return f.id, nil
}

func (f *fakeResolver) Providers(_ context.Context) []domain.ProviderInfo { return nil }

type fakeCollector struct {
	records []domain.SourceRecord
	err     error
	panics  bool
	calls   atomic.Int64
}

func (f *fakeCollector) Collect(_ context.Context, _ domain.ExternalID, _ domain.FilterSet) ([]domain.SourceRecord, error) {
	f.calls.Add(1)
	if f.panics {
		panic("collector exploded")
	}
	return f.records, f.err
}

func TestSearchCachesSuccessfulResults(t *testing.T) {
	resolver := &fakeResolver{id: domain.ExternalID{ID: "tt1", Provider: "omdb"}}
	collector := &fakeCollector{records: testRecords("https://filmix.ac/film/tt1")}
	svc := NewService(resolver, collector)
	query := domain.Query{Title: "Inception", Year: 2010}

	first, err := svc.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	second, err := svc.Search(context.Background(), query)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected payloads: %d, %d", len(first), len(second))
	}
	if resolver.calls.Load() != 1 {
		t.Errorf("resolver called %d times, want 1 (second hit from cache)", resolver.calls.Load())
	}
	if collector.calls.Load() != 1 {
		t.Errorf("collector called %d times, want 1", collector.calls.Load())
	}
}

func TestSearchNotFoundIsNotCached(t *testing.T) {
	resolver := &fakeResolver{err: resolve.ErrNotFound}
	collector := &fakeCollector{}
	svc := NewService(resolver, collector)
	query := domain.Query{Title: "Nonexistent"}

	for i := 0; i < 2; i++ {
		if _, err := svc.Search(context.Background(), query); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Search() error = %v, want ErrNotFound", err)
		}
	}
	if resolver.calls.Load() != 2 {
		t.Errorf("resolver called %d times, want 2 (not-found must not cache)", resolver.calls.Load())
	}
	if collector.calls.Load() != 0 {
		t.Errorf("collector called %d times, want 0", collector.calls.Load())
	}
}

func TestSearchEmptyTitle(t *testing.T) {
	resolver := &fakeResolver{err: resolve.ErrEmptyTitle}
	svc := NewService(resolver, &fakeCollector{})

	if _, err := svc.Search(context.Background(), domain.Query{Title: "  "}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("Search() error = %v, want ErrInvalidQuery", err)
	}
}

func TestSearchResolverSystemErrorBecomesProviderFailure(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("credential lookup: store unavailable")}
	svc := NewService(resolver, &fakeCollector{})

	_, err := svc.Search(context.Background(), domain.Query{Title: "Inception"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("Search() error = %v, want ErrProviderFailure", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("a resolver system error must not read as not-found")
	}
}

func TestSearchCollectorErrorBecomesProviderFailure(t *testing.T) {
	resolver := &fakeResolver{id: domain.ExternalID{ID: "tt1"}}
	collector := &fakeCollector{err: errors.New("backend down")}
	svc := NewService(resolver, collector)

	_, err := svc.Search(context.Background(), domain.Query{Title: "Inception"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("Search() error = %v, want ErrProviderFailure", err)
	}

	// Failures are not cached either.
	if _, err := svc.Search(context.Background(), domain.Query{Title: "Inception"}); !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("second Search() error = %v", err)
	}
	if collector.calls.Load() != 2 {
		t.Errorf("collector called %d times, want 2", collector.calls.Load())
	}
}

func TestSearchCollectorPanicIsCaught(t *testing.T) {
	resolver := &fakeResolver{id: domain.ExternalID{ID: "tt1"}}
	svc := NewService(resolver, &fakeCollector{panics: true})

	_, err := svc.Search(context.Background(), domain.Query{Title: "Inception"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("Search() error = %v, want ErrProviderFailure from recovered panic", err)
	}
}

func TestClearCacheForcesRecomputation(t *testing.T) {
	resolver := &fakeResolver{id: domain.ExternalID{ID: "tt1"}}
	collector := &fakeCollector{records: testRecords("https://a")}
	svc := NewService(resolver, collector)
	query := domain.Query{Title: "Inception"}

	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatal(err)
	}
	if err := svc.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatal(err)
	}
	if resolver.calls.Load() != 2 {
		t.Errorf("resolver called %d times, want 2 after cache clear", resolver.calls.Load())
	}
}
