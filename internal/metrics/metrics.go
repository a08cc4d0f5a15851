package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfinder",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vfinder",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	ResolveRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfinder",
		Name:      "resolve_requests_total",
		Help:      "Catalog identifier lookups by provider and outcome (ok, miss, error, skipped).",
	}, []string{"provider", "status"})

	ResolveDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vfinder",
		Name:      "resolve_request_duration_seconds",
		Help:      "Catalog identifier lookup duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	ExtractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfinder",
		Name:      "extractions_total",
		Help:      "Page extractions by site and phase that produced the title (jsonld, fallback, empty).",
	}, []string{"site", "phase"})

	ExtractionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vfinder",
		Name:      "extraction_duration_seconds",
		Help:      "Page fetch and extraction duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"site"})

	SourceRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vfinder",
		Name:      "source_requests_total",
		Help:      "Viewing source collections by provider and status.",
	}, []string{"provider", "status"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vfinder",
		Name:      "cache_hits_total",
		Help:      "Total number of search cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vfinder",
		Name:      "cache_misses_total",
		Help:      "Total number of search cache misses.",
	})

	CacheEvictionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vfinder",
		Name:      "cache_evictions_total",
		Help:      "Total number of expired search cache entries removed.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ResolveRequestsTotal,
		ResolveDuration,
		ExtractionsTotal,
		ExtractionDuration,
		SourceRequestsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
	)
}
