package kinopoisk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"videofinder/searchservice/internal/domain"
)

func TestLookupResolvesFirstDoc(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		if r.URL.Query().Get("limit") != "1" {
			t.Errorf("expected limit=1, got %q", r.URL.Query().Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"docs":[{"id":301,"type":"movie","year":1999}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL, Client: server.Client()})
	id, err := client.Lookup(context.Background(), "secret", "The Matrix", 1999)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id == nil {
		t.Fatal("expected a resolved id")
	}
	if id.ID != "301" || id.Provider != "kinopoisk" || id.ContentType != domain.ContentTypeMovie {
		t.Fatalf("unexpected id: %+v", id)
	}
	if gotKey != "secret" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
}

func TestLookupEmptyDocsMeansNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"docs":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL, Client: server.Client()})
	id, err := client.Lookup(context.Background(), "secret", "No Such Film", 0)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id != nil {
		t.Fatalf("expected nil id, got %+v", id)
	}
}

func TestLookupHTTPErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(Config{Endpoint: server.URL, Client: server.Client()})
	if _, err := client.Lookup(context.Background(), "bad", "The Matrix", 0); err == nil {
		t.Fatal("expected error on HTTP 403")
	}
}

func TestContentTypeFromDoc(t *testing.T) {
	cases := map[string]domain.ContentType{
		"movie":       domain.ContentTypeMovie,
		"tv-series":   domain.ContentTypeSeries,
		"anime":       domain.ContentTypeAnime,
		"animated":    domain.ContentTypeUnknown,
		"cartoon":     domain.ContentTypeMovie,
		"":            domain.ContentTypeUnknown,
		"short-thing": domain.ContentTypeUnknown,
	}
	for raw, want := range cases {
		if got := contentTypeFromDoc(raw); got != want {
			t.Errorf("contentTypeFromDoc(%q) = %q, want %q", raw, got, want)
		}
	}
}
