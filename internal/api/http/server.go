// Package apihttp exposes the search pipeline over HTTP. Responses to
// the action endpoints use a {success, data, error} envelope so callers
// can distinguish "nothing found" from "something broke" without
// parsing status codes.
package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/search"
	"videofinder/searchservice/internal/sources"
	"videofinder/searchservice/internal/store"
)

const maxTitleLength = 300

type SearchService interface {
	Search(ctx context.Context, query domain.Query) ([]domain.SourceRecord, error)
	Providers(ctx context.Context) []domain.ProviderInfo
	ClearCache(ctx context.Context) error
}

type Extractor interface {
	Extract(pageURL, pageHTML string) domain.TitleRecord
	ExtractURL(ctx context.Context, pageURL string) (domain.TitleRecord, error)
	Supports(pageURL string) bool
}

type Server struct {
	search    SearchService
	extractor Extractor
	settings  store.KeyValue
	logger    *slog.Logger
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithExtractor(extractor Extractor) ServerOption {
	return func(s *Server) {
		s.extractor = extractor
	}
}

func WithSettings(settings store.KeyValue) ServerOption {
	return func(s *Server) {
		s.settings = settings
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/providers", s.handleProviders)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("/cache/clear", s.handleCacheClear)
	mux.HandleFunc("/filters", s.handleFilterDefaults)
	mux.HandleFunc("/thumbnail", s.handleThumbnailProxy)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "video-finder-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

type searchRequest struct {
	Title   string `json:"title"`
	Year    int    `json:"year,omitempty"`
	Filters struct {
		Quality  string   `json:"quality,omitempty"`
		Dubbing  string   `json:"dubbing,omitempty"`
		Language string   `json:"language,omitempty"`
		Sources  []string `json:"sources,omitempty"`
	} `json:"filters"`
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
	Group     bool   `json:"group,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var payload searchRequest
	if err := decodeJSONBody(r, &payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	title := strings.TrimSpace(payload.Title)
	if title == "" {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}
	if len(title) > maxTitleLength {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "title too long (max 300 characters)")
		return
	}

	filters, err := parseFilters(payload.Filters.Quality, payload.Filters.Dubbing, payload.Filters.Language, payload.Filters.Sources)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	query := domain.Query{
		Title:   title,
		Year:    payload.Year,
		Filters: filters,
	}

	records, err := s.search.Search(r.Context(), query)
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("title", truncate(title, 80)),
			slog.String("error", err.Error()),
		)
		switch {
		case errors.Is(err, search.ErrInvalidQuery):
			writeFailure(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, search.ErrNotFound):
			writeFailure(w, http.StatusNotFound, "not_found", "title not found in any catalog")
		case errors.Is(err, search.ErrProviderFailure):
			writeFailure(w, http.StatusBadGateway, "provider_failure", err.Error())
		default:
			writeFailure(w, http.StatusInternalServerError, "internal_error", "search failed")
		}
		return
	}

	if payload.SortBy != "" {
		records = sources.SortSources(records,
			domain.SortKey(strings.ToLower(strings.TrimSpace(payload.SortBy))),
			domain.NormalizeSortOrder(payload.SortOrder),
		)
	}

	if payload.Group {
		writeSuccess(w, sources.GroupByQuality(records))
		return
	}
	writeSuccess(w, records)
}

type extractRequest struct {
	URL string `json:"url"`
	// HTML carries the already-loaded page body when the caller has it,
	// skipping the fetch.
	HTML string `json:"html,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/extract" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.extractor == nil {
		writeFailure(w, http.StatusNotImplemented, "not_configured", "extractor is not configured")
		return
	}

	var payload extractRequest
	if err := decodeJSONBody(r, &payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	pageURL := strings.TrimSpace(payload.URL)
	if pageURL == "" {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "url is required")
		return
	}
	if !s.extractor.Supports(pageURL) {
		writeFailure(w, http.StatusBadRequest, "unsupported_site", "page url is not from a supported site")
		return
	}

	if payload.HTML != "" {
		writeSuccess(w, s.extractor.Extract(pageURL, payload.HTML))
		return
	}

	record, err := s.extractor.ExtractURL(r.Context(), pageURL)
	if err != nil {
		s.logger.Warn("page extraction failed",
			slog.String("url", truncate(pageURL, 120)),
			slog.String("error", err.Error()),
		)
		writeFailure(w, http.StatusBadGateway, "extraction_failed", "could not fetch the page")
		return
	}
	writeSuccess(w, record)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/cache/clear" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if err := s.search.ClearCache(r.Context()); err != nil {
		s.logger.Error("cache clear failed", slog.String("error", err.Error()))
		writeFailure(w, http.StatusInternalServerError, "internal_error", "cache clear failed")
		return
	}
	s.logger.Info("search cache cleared")
	writeSuccess(w, nil)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/providers" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Providers(r.Context()),
	})
}

// handleFilterDefaults reads and writes the user filter defaults kept
// in the key-value store, for the UI to prefill its form.
func (s *Server) handleFilterDefaults(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/filters" {
		http.NotFound(w, r)
		return
	}
	if s.settings == nil {
		writeFailure(w, http.StatusNotImplemented, "not_configured", "settings store is not configured")
		return
	}

	switch r.Method {
	case http.MethodGet:
		values, err := s.settings.Get(r.Context(), []string{store.FilterDefaultsKey})
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, "internal_error", "settings read failed")
			return
		}
		filters := domain.FilterSet{}
		if raw, ok := values[store.FilterDefaultsKey]; ok && raw != "" {
			if err := json.Unmarshal([]byte(raw), &filters); err != nil {
				s.logger.Warn("stored filter defaults are malformed", slog.String("error", err.Error()))
				filters = domain.FilterSet{}
			}
		}
		writeSuccess(w, filters)
	case http.MethodPut:
		var payload domain.FilterSet
		if err := decodeJSONBody(r, &payload); err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		filters, err := parseFilters(payload.Quality, string(payload.Dubbing), string(payload.Language), payload.Sources)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		raw, err := json.Marshal(filters)
		if err != nil {
			writeFailure(w, http.StatusInternalServerError, "internal_error", "settings encode failed")
			return
		}
		if err := s.settings.Set(r.Context(), map[string]string{store.FilterDefaultsKey: string(raw)}); err != nil {
			writeFailure(w, http.StatusInternalServerError, "internal_error", "settings write failed")
			return
		}
		writeSuccess(w, filters)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// parseFilters validates filter values against the documented enums.
// An unrecognized value is an error rather than an unconstrained
// filter, so a typo becomes a 400 instead of silently widening the
// results.
func parseFilters(quality, dubbing, language string, sites []string) (domain.FilterSet, error) {
	filters := domain.FilterSet{Sources: sites}

	if value := strings.TrimSpace(quality); value != "" {
		normalized := domain.NormalizeQuality(value)
		if normalized == domain.QualityUnknown && !strings.EqualFold(value, domain.QualityUnknown) {
			return domain.FilterSet{}, fmt.Errorf("unknown quality %q", value)
		}
		filters.Quality = normalized
	}
	if value := strings.TrimSpace(dubbing); value != "" {
		audio := domain.NormalizeAudioType(value)
		if audio == domain.AudioUnknown {
			return domain.FilterSet{}, fmt.Errorf("unknown dubbing %q", value)
		}
		filters.Dubbing = audio
	}
	if value := strings.TrimSpace(language); value != "" {
		lang := domain.NormalizeLanguage(value)
		if lang == domain.LanguageUnknown {
			return domain.FilterSet{}, fmt.Errorf("unknown language %q", value)
		}
		filters.Language = lang
	}
	return filters, nil
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeFailure(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"code":    code,
		"error":   message,
	})
}

// writeError keeps middleware responses in the same shape.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeFailure(w, status, code, message)
}
