package sources

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"videofinder/searchservice/internal/domain"
	"videofinder/searchservice/internal/metrics"
)

// Aggregator fetches candidate records from a source provider and
// applies the filter pipeline.
type Aggregator struct {
	provider Provider
	logger   *slog.Logger
}

func NewAggregator(provider Provider, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{provider: provider, logger: logger}
}

// Collect fetches and filters. Fetch failures propagate; filtering
// itself is pure and cannot fail.
func (a *Aggregator) Collect(ctx context.Context, id domain.ExternalID, filters domain.FilterSet) ([]domain.SourceRecord, error) {
	name := strings.ToLower(strings.TrimSpace(a.provider.Name()))

	records, err := a.provider.Fetch(ctx, id)
	if err != nil {
		metrics.SourceRequestsTotal.WithLabelValues(name, "error").Inc()
		return nil, fmt.Errorf("fetch sources from %s: %w", name, err)
	}
	metrics.SourceRequestsTotal.WithLabelValues(name, "ok").Inc()

	filtered := Filter(records, filters)
	a.logger.Debug("sources collected",
		slog.String("provider", name),
		slog.String("external_id", id.ID),
		slog.Int("fetched", len(records)),
		slog.Int("after_filters", len(filtered)),
	)
	return filtered, nil
}

// Filter applies the filter stages conjunctively: inactive drop, then
// quality, audio type, language, and site membership. Pure function.
func Filter(records []domain.SourceRecord, filters domain.FilterSet) []domain.SourceRecord {
	siteFilter := make(map[string]bool, len(filters.Sources))
	for _, site := range filters.Sources {
		name := strings.ToLower(strings.TrimSpace(site))
		if name != "" {
			siteFilter[name] = true
		}
	}
	wantQuality := ""
	if filters.Quality != "" {
		wantQuality = domain.NormalizeQuality(filters.Quality)
	}

	out := make([]domain.SourceRecord, 0, len(records))
	for _, record := range records {
		if !record.IsActive {
			continue
		}
		if wantQuality != "" && record.Quality != wantQuality {
			continue
		}
		if filters.Dubbing != "" && record.AudioType != filters.Dubbing {
			continue
		}
		if filters.Language != "" && record.AudioLanguage != filters.Language {
			continue
		}
		if len(siteFilter) > 0 && !siteFilter[strings.ToLower(strings.TrimSpace(record.WebsiteName))] {
			continue
		}
		out = append(out, record)
	}
	return out
}

// QualityGroup is one bucket of GroupByQuality output.
type QualityGroup struct {
	Quality string                `json:"quality"`
	Records []domain.SourceRecord `json:"records"`
}

// GroupByQuality buckets records by quality in the fixed rank order,
// best first. Empty buckets are omitted.
func GroupByQuality(records []domain.SourceRecord) []QualityGroup {
	buckets := make(map[string][]domain.SourceRecord)
	for _, record := range records {
		quality := record.Quality
		if quality == "" {
			quality = domain.QualityUnknown
		}
		buckets[quality] = append(buckets[quality], record)
	}

	groups := make([]QualityGroup, 0, len(buckets))
	for _, quality := range domain.QualityOrder() {
		if bucket, ok := buckets[quality]; ok {
			groups = append(groups, QualityGroup{Quality: quality, Records: bucket})
		}
	}
	return groups
}

// SortSources orders a copy of records by the given key. Missing
// ratings count as zero, missing dates as the epoch. An unknown key
// returns the records unchanged.
func SortSources(records []domain.SourceRecord, key domain.SortKey, order domain.SortOrder) []domain.SourceRecord {
	sorted := make([]domain.SourceRecord, len(records))
	copy(sorted, records)

	var value func(domain.SourceRecord) float64
	switch key {
	case domain.SortByQuality:
		// Lower rank index means better quality.
		value = func(r domain.SourceRecord) float64 {
			return -float64(domain.QualityRank(r.Quality))
		}
	case domain.SortByRating:
		value = func(r domain.SourceRecord) float64 { return r.Rating }
	case domain.SortByDate:
		value = func(r domain.SourceRecord) float64 {
			if r.CreatedAt == nil {
				return 0
			}
			return float64(r.CreatedAt.UnixMilli())
		}
	default:
		return sorted
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if order == domain.SortOrderAsc {
			return value(sorted[i]) < value(sorted[j])
		}
		return value(sorted[i]) > value(sorted[j])
	})
	return sorted
}
