package apihttp

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/resolve"
	"videofinder/searchservice/internal/search"
	"videofinder/searchservice/internal/sources"
	"videofinder/searchservice/internal/store"
)

type chainProvider struct {
	name  string
	id    *domain.ExternalID
	calls atomic.Int64
}

func (p *chainProvider) Name() string          { return p.name }
func (p *chainProvider) Label() string         { return p.name }
func (p *chainProvider) CredentialKey() string { return p.name }

func (p *chainProvider) Lookup(_ context.Context, _, _ string, _ int) (*domain.ExternalID, error) {
	p.calls.Add(1)
	return p.id, nil
}

// Full pipeline through the HTTP surface: resolve, collect from the
// demo catalog, filter, cache.
func TestSearchFlowEndToEnd(t *testing.T) {
	ctx := context.Background()

	kv := store.NewMemory()
	if err := kv.Set(ctx, map[string]string{store.APIKeyName("alpha"): "secret"}); err != nil {
		t.Fatal(err)
	}

	provider := &chainProvider{
		name: "alpha",
		id:   &domain.ExternalID{ID: "tt1375666", Provider: "alpha", ContentType: domain.ContentTypeMovie},
	}
	resolver := resolve.New([]resolve.Provider{provider}, kv)
	aggregator := sources.NewAggregator(sources.NewDemo(nil), nil)
	svc := search.NewService(resolver, aggregator)
	handler := NewServer(svc, WithSettings(kv)).Handler()

	body := `{"title":"Inception","filters":{"quality":"1080","language":"ru"}}`

	rec, env := doRequest(t, handler, http.MethodPost, "/search", body)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("first search: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var records []domain.SourceRecord
	if err := json.Unmarshal(env.Data, &records); err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		if r.Quality != "1080" || r.AudioLanguage != domain.LanguageRU || !r.IsActive {
			t.Errorf("record violates filters: %+v", r)
		}
	}
	if len(records) == 0 {
		t.Fatal("no records for a 1080/ru query against the demo catalog")
	}

	// Second identical query must come from the cache.
	rec, _ = doRequest(t, handler, http.MethodPost, "/search", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("second search: status = %d", rec.Code)
	}
	if provider.calls.Load() != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls.Load())
	}

	rec, _ = doRequest(t, handler, http.MethodPost, "/cache/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("cache clear: status = %d", rec.Code)
	}

	rec, _ = doRequest(t, handler, http.MethodPost, "/search", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("third search: status = %d", rec.Code)
	}
	if provider.calls.Load() != 2 {
		t.Errorf("provider called %d times after clear, want 2", provider.calls.Load())
	}
}
