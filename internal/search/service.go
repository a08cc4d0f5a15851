// Package search ties resolution, aggregation, and the result cache
// into the single entry point the transport layer calls.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/resolve"
)

var (
	// ErrInvalidQuery means the request itself is unusable.
	ErrInvalidQuery = errors.New("query title is required")
	// ErrNotFound means no catalog resolved the title. Not-found results
	// are never cached: a later identical query may succeed once
	// upstream catalogs pick the title up.
	ErrNotFound = errors.New("title not found")
	// ErrProviderFailure wraps an unexpected aggregation error.
	ErrProviderFailure = errors.New("source collection failed")
)

// Resolver yields an identifier for a title, or resolve.ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context, title string, year int) (domain.ExternalID, error)
	Providers(ctx context.Context) []domain.ProviderInfo
}

// Collector turns a resolved identifier into filtered source records.
type Collector interface {
	Collect(ctx context.Context, id domain.ExternalID, filters domain.FilterSet) ([]domain.SourceRecord, error)
}

// Service is the search coordinator.
type Service struct {
	resolver  Resolver
	collector Collector
	cache     *Cache
	logger    *slog.Logger
}

type ServiceOption func(*Service)

func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCache(cache *Cache) ServiceOption {
	return func(s *Service) {
		if cache != nil {
			s.cache = cache
		}
	}
}

func NewService(resolver Resolver, collector Collector, opts ...ServiceOption) *Service {
	s := &Service{
		resolver:  resolver,
		collector: collector,
		cache:     NewCache(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the pipeline: cache check, identifier resolution, source
// collection, cache fill. Errors are one of the three sentinels above.
func (s *Service) Search(ctx context.Context, query domain.Query) ([]domain.SourceRecord, error) {
	fingerprint := Fingerprint(query)

	if payload, ok := s.cache.Get(ctx, fingerprint); ok {
		s.logger.Debug("search cache hit", slog.String("fingerprint", fingerprint))
		return payload, nil
	}

	id, err := s.resolver.Resolve(ctx, query.Title, query.Year)
	if err != nil {
		switch {
		case errors.Is(err, resolve.ErrEmptyTitle):
			return nil, ErrInvalidQuery
		case errors.Is(err, resolve.ErrNotFound):
			return nil, ErrNotFound
		default:
			return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
		}
	}

	records, err := s.collectSafely(ctx, id, query.Filters)
	if err != nil {
		return nil, err
	}

	s.cache.Put(ctx, fingerprint, records)
	s.logger.Info("search completed",
		slog.String("title", query.Title),
		slog.String("provider", id.Provider),
		slog.Int("sources", len(records)),
	)
	return records, nil
}

// collectSafely converts any aggregation error or panic into
// ErrProviderFailure so nothing escapes the coordinator unhandled.
func (s *Service) collectSafely(ctx context.Context, id domain.ExternalID, filters domain.FilterSet) (records []domain.SourceRecord, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("source collection panicked", slog.Any("panic", recovered))
			records = nil
			err = fmt.Errorf("%w: %v", ErrProviderFailure, recovered)
		}
	}()

	records, err = s.collector.Collect(ctx, id, filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	return records, nil
}

// Providers exposes the resolution chain in priority order.
func (s *Service) Providers(ctx context.Context) []domain.ProviderInfo {
	return s.resolver.Providers(ctx)
}

// ClearCache drops all cached results immediately.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
