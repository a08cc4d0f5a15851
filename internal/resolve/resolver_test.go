package resolve

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/store"
)

type fakeProvider struct {
	name      string
	id        *domain.ExternalID
	err       error
	calls     atomic.Int64
	lastTitle string
	lastYear  int
	lastKey   string
}

func (f *fakeProvider) Name() string          { return f.name }
func (f *fakeProvider) Label() string         { return f.name }
func (f *fakeProvider) CredentialKey() string { return f.name }

func (f *fakeProvider) Lookup(_ context.Context, apiKey, title string, year int) (*domain.ExternalID, error) {
	f.calls.Add(1)
	f.lastKey = apiKey
	f.lastTitle = title
	f.lastYear = year
	if f.err != nil {
		return nil, f.err
	}
	return f.id, nil
}

func credentialsFor(t *testing.T, providers ...string) store.KeyValue {
	t.Helper()
	kv := store.NewMemory()
	entries := make(map[string]string, len(providers))
	for _, name := range providers {
		entries[store.APIKeyName(name)] = "key-" + name
	}
	if err := kv.Set(context.Background(), entries); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}
	return kv
}

func TestResolveFirstSuccessStopsChain(t *testing.T) {
	first := &fakeProvider{name: "alpha", id: &domain.ExternalID{ID: "tt100", Provider: "alpha", ContentType: domain.ContentTypeMovie}}
	second := &fakeProvider{name: "beta", id: &domain.ExternalID{ID: "tt200"}}
	third := &fakeProvider{name: "gamma", id: &domain.ExternalID{ID: "tt300"}}

	r := New([]Provider{first, second, third}, credentialsFor(t, "alpha", "beta", "gamma"))

	id, err := r.Resolve(context.Background(), "Inception", 2010)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.ID != "tt100" {
		t.Errorf("ID = %q, want tt100", id.ID)
	}
	if got := second.calls.Load() + third.calls.Load(); got != 0 {
		t.Errorf("later providers called %d times, want 0", got)
	}
}

func TestResolveContinuesPastFailureWithSameArguments(t *testing.T) {
	first := &fakeProvider{name: "alpha", err: errors.New("upstream broke")}
	second := &fakeProvider{name: "beta", id: &domain.ExternalID{ID: "42", Provider: "beta"}}

	r := New([]Provider{first, second}, credentialsFor(t, "alpha", "beta"))

	id, err := r.Resolve(context.Background(), "  Dark City ", 1998)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.ID != "42" || id.Provider != "beta" {
		t.Errorf("resolved %+v, want id 42 from beta", id)
	}
	if first.calls.Load() == 0 {
		t.Error("first provider was never attempted")
	}
	if second.lastTitle != "Dark City" || second.lastYear != 1998 {
		t.Errorf("fallback got (%q, %d), want trimmed original arguments", second.lastTitle, second.lastYear)
	}
}

func TestResolveSkipsProviderWithoutCredential(t *testing.T) {
	first := &fakeProvider{name: "alpha", id: &domain.ExternalID{ID: "should-not-win"}}
	second := &fakeProvider{name: "beta", id: &domain.ExternalID{ID: "7"}}

	// Only beta has a key.
	r := New([]Provider{first, second}, credentialsFor(t, "beta"))

	id, err := r.Resolve(context.Background(), "Akira", 1988)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.ID != "7" {
		t.Errorf("ID = %q, want 7", id.ID)
	}
	if first.calls.Load() != 0 {
		t.Errorf("unconfigured provider called %d times, want 0", first.calls.Load())
	}
	if second.lastKey != "key-beta" {
		t.Errorf("lastKey = %q, want key-beta", second.lastKey)
	}
}

func TestResolveNotFoundWhenChainExhausted(t *testing.T) {
	first := &fakeProvider{name: "alpha", err: errors.New("boom")}
	second := &fakeProvider{name: "beta"} // no match
	third := &fakeProvider{name: "gamma"}

	// gamma has no credential; the outcome is still plain not-found.
	r := New([]Provider{first, second, third}, credentialsFor(t, "alpha", "beta"))

	_, err := r.Resolve(context.Background(), "Nonexistent", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, []string) (map[string]string, error) {
	return nil, errors.New("store unavailable")
}

func (failingStore) Set(context.Context, map[string]string) error { return nil }

func TestResolveCredentialStoreFailureIsNotNotFound(t *testing.T) {
	provider := &fakeProvider{name: "alpha", id: &domain.ExternalID{ID: "tt100"}}
	r := New([]Provider{provider}, failingStore{})

	_, err := r.Resolve(context.Background(), "Inception", 2010)
	if err == nil {
		t.Fatal("Resolve() = nil error despite the credential store being down")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve() error = %v; a store outage must not read as not-found", err)
	}
	if provider.calls.Load() != 0 {
		t.Errorf("provider invoked %d times without credentials", provider.calls.Load())
	}
}

func TestResolveEmptyTitle(t *testing.T) {
	r := New([]Provider{&fakeProvider{name: "alpha"}}, credentialsFor(t, "alpha"))

	_, err := r.Resolve(context.Background(), "   ", 2020)
	if !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("Resolve() error = %v, want ErrEmptyTitle", err)
	}
}

func TestResolveFillsProviderAndContentType(t *testing.T) {
	p := &fakeProvider{name: "Alpha", id: &domain.ExternalID{ID: "9"}}
	r := New([]Provider{p}, credentialsFor(t, "alpha"))

	id, err := r.Resolve(context.Background(), "Solaris", 1972)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.Provider != "alpha" {
		t.Errorf("Provider = %q, want alpha", id.Provider)
	}
	if id.ContentType != domain.ContentTypeUnknown {
		t.Errorf("ContentType = %q, want unknown", id.ContentType)
	}
}

func TestProvidersReportsPriorityAndCredentialStatus(t *testing.T) {
	chain := []Provider{
		&fakeProvider{name: "alpha"},
		&fakeProvider{name: "beta"},
	}
	r := New(chain, credentialsFor(t, "beta"))

	infos := r.Providers(context.Background())
	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}
	if infos[0].Name != "alpha" || infos[0].Priority != 1 || infos[0].Configured {
		t.Errorf("infos[0] = %+v, want alpha priority 1 unconfigured", infos[0])
	}
	if infos[1].Name != "beta" || infos[1].Priority != 2 || !infos[1].Configured {
		t.Errorf("infos[1] = %+v, want beta priority 2 configured", infos[1])
	}
}

func TestRetryWithBackoffStopsOnNonTransient(t *testing.T) {
	var calls atomic.Int64
	err := RetryWithBackoff(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: 1}, func() error {
		calls.Add(1)
		return errors.New("status 404")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 for a non-transient error", calls.Load())
	}
}

func TestRetryWithBackoffRetriesTransient(t *testing.T) {
	var calls atomic.Int64
	err := RetryWithBackoff(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: 1, MaxDelay: 2, Multiplier: 2}, func() error {
		if calls.Add(1) < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}
