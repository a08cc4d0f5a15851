// Package resolve walks an ordered chain of external catalog providers and
// returns the first identifier any of them can produce for a title.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/metrics"
	"videofinder/searchservice/internal/store"
)

var (
	ErrEmptyTitle = errors.New("title is required")
	// ErrNotFound means every provider was skipped, failed, or had no
	// match. It is an outcome, not a system error.
	ErrNotFound = errors.New("title not found in any catalog")
)

// Provider is one entry of the resolution chain. Lookup returns nil when
// the catalog has no match for the title; any non-nil error is treated as
// transient by the resolver.
type Provider interface {
	Name() string
	Label() string
	CredentialKey() string
	Lookup(ctx context.Context, apiKey, title string, year int) (*domain.ExternalID, error)
}

// Resolver tries providers strictly in the order given to New. The order
// encodes a data-quality ranking and is not configurable at runtime.
type Resolver struct {
	chain       []Provider
	credentials store.KeyValue
	logger      *slog.Logger
	retry       RetryConfig
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRetryConfig(cfg RetryConfig) Option {
	return func(r *Resolver) {
		r.retry = cfg
	}
}

func New(chain []Provider, credentials store.KeyValue, opts ...Option) *Resolver {
	providers := make([]Provider, 0, len(chain))
	for _, provider := range chain {
		if provider != nil {
			providers = append(providers, provider)
		}
	}
	resolver := &Resolver{
		chain:       providers,
		credentials: credentials,
		logger:      slog.Default(),
		retry:       DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(resolver)
	}
	return resolver
}

// Resolve returns the first identifier produced by the chain. A provider
// without a configured credential is skipped silently; a provider that
// fails is logged and the chain continues. Only ErrEmptyTitle and
// ErrNotFound are ever returned.
func (r *Resolver) Resolve(ctx context.Context, title string, year int) (domain.ExternalID, error) {
	normalizedTitle := strings.TrimSpace(title)
	if normalizedTitle == "" {
		return domain.ExternalID{}, ErrEmptyTitle
	}

	// A store outage is a system failure, not "no such title": bailing
	// out here keeps it out of the ErrNotFound bucket.
	keys, err := r.credentialKeys(ctx)
	if err != nil {
		return domain.ExternalID{}, fmt.Errorf("credential lookup: %w", err)
	}

	for _, provider := range r.chain {
		name := strings.ToLower(strings.TrimSpace(provider.Name()))

		apiKey := keys[store.APIKeyName(provider.CredentialKey())]
		if apiKey == "" {
			metrics.ResolveRequestsTotal.WithLabelValues(name, "skipped").Inc()
			continue
		}

		startedAt := time.Now()
		var id *domain.ExternalID
		err := RetryWithBackoff(ctx, r.retry, func() error {
			var lookupErr error
			id, lookupErr = provider.Lookup(ctx, apiKey, normalizedTitle, year)
			return lookupErr
		})
		metrics.ResolveDuration.WithLabelValues(name).Observe(time.Since(startedAt).Seconds())

		if err != nil {
			// Failure isolation: one broken catalog never fails the search.
			metrics.ResolveRequestsTotal.WithLabelValues(name, "error").Inc()
			r.logger.Warn("catalog lookup failed",
				slog.String("provider", name),
				slog.String("title", normalizedTitle),
				slog.String("error", err.Error()),
			)
			continue
		}
		if id == nil {
			metrics.ResolveRequestsTotal.WithLabelValues(name, "miss").Inc()
			continue
		}

		metrics.ResolveRequestsTotal.WithLabelValues(name, "ok").Inc()
		resolved := *id
		if resolved.Provider == "" {
			resolved.Provider = name
		}
		if resolved.ContentType == "" {
			resolved.ContentType = domain.ContentTypeUnknown
		}
		return resolved, nil
	}

	return domain.ExternalID{}, ErrNotFound
}

// Providers lists the chain in priority order with credential status,
// for the providers endpoint.
func (r *Resolver) Providers(ctx context.Context) []domain.ProviderInfo {
	if len(r.chain) == 0 {
		return nil
	}
	keys, err := r.credentialKeys(ctx)
	if err != nil {
		// The listing still renders; credentials just show unconfigured.
		r.logger.Warn("credential lookup failed", slog.String("error", err.Error()))
	}

	items := make([]domain.ProviderInfo, 0, len(r.chain))
	for i, provider := range r.chain {
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		label := strings.TrimSpace(provider.Label())
		if label == "" {
			label = name
		}
		items = append(items, domain.ProviderInfo{
			Name:       name,
			Label:      label,
			Priority:   i + 1,
			Configured: keys[store.APIKeyName(provider.CredentialKey())] != "",
		})
	}
	return items
}

func (r *Resolver) credentialKeys(ctx context.Context) (map[string]string, error) {
	if r.credentials == nil {
		return nil, nil
	}
	wanted := make([]string, 0, len(r.chain))
	for _, provider := range r.chain {
		wanted = append(wanted, store.APIKeyName(provider.CredentialKey()))
	}
	return r.credentials.Get(ctx, wanted)
}
