package search

import (
	"sort"
	"strconv"
	"strings"

	"videofinder/searchservice/internal/domain"
)

// Fingerprint builds the canonical cache key for a query. Field order
// is fixed and absent fields serialize to their zero form, so two
// queries that mean the same thing always collide.
func Fingerprint(query domain.Query) string {
	return strings.Join([]string{
		"t=" + strings.ToLower(strings.TrimSpace(query.Title)),
		"y=" + strconv.Itoa(query.Year),
		"q=" + normalizedQuality(query.Filters.Quality),
		"d=" + string(query.Filters.Dubbing),
		"lang=" + string(query.Filters.Language),
		"s=" + strings.Join(normalizeSiteNames(query.Filters.Sources), ","),
	}, "|")
}

func normalizedQuality(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return domain.NormalizeQuality(raw)
}

func normalizeSiteNames(sites []string) []string {
	if len(sites) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(sites))
	names := make([]string, 0, len(sites))
	for _, raw := range sites {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		names = append(names, value)
	}
	sort.Strings(names)
	return names
}
