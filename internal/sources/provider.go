package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"videofinder/searchservice/internal/domain"
)

// maxConcurrentSites caps parallel per-site catalog reads inside a
// provider. Source collection fans out across sites, unlike identifier
// resolution which is strictly ordered.
const maxConcurrentSites = 4

// Provider supplies candidate records for a resolved identifier. The
// records it returns are already normalized.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, id domain.ExternalID) ([]domain.SourceRecord, error)
}

// siteCatalog builds the raw records one source site would return for
// an identifier.
type siteCatalog func(id domain.ExternalID, now time.Time) []rawSource

// Demo serves a built-in catalog shaped like real source-site output.
// It stands in for a scraping backend, which is deliberately out of
// scope here.
type Demo struct {
	now   func() time.Time
	sites map[string]siteCatalog
}

func NewDemo(now func() time.Time) *Demo {
	if now == nil {
		now = time.Now
	}
	return &Demo{
		now: now,
		sites: map[string]siteCatalog{
			"filmix":  filmixCatalog,
			"hdrezka": hdrezkaCatalog,
			"kinopub": kinopubCatalog,
		},
	}
}

func (d *Demo) Name() string { return "demo" }

// Fetch reads every site catalog with bounded concurrency and merges
// the normalized results. A site that returns nothing is not an error.
func (d *Demo) Fetch(ctx context.Context, id domain.ExternalID) ([]domain.SourceRecord, error) {
	if strings.TrimSpace(id.ID) == "" {
		return nil, fmt.Errorf("empty external id")
	}

	now := d.now()
	sem := semaphore.NewWeighted(maxConcurrentSites)
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		merged []domain.SourceRecord
		ctxErr error
	)

	for name, catalog := range d.sites {
		wg.Add(1)
		go func(site string, build siteCatalog) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				ctxErr = err
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			records := make([]domain.SourceRecord, 0, 4)
			for _, raw := range build(id, now) {
				records = append(records, normalizeSource(raw))
			}

			mu.Lock()
			merged = append(merged, records...)
			mu.Unlock()
		}(name, catalog)
	}
	wg.Wait()

	if ctxErr != nil {
		return nil, fmt.Errorf("collect sources: %w", ctxErr)
	}
	return merged, nil
}

func filmixCatalog(id domain.ExternalID, now time.Time) []rawSource {
	created := now.Add(-36 * time.Hour)
	return []rawSource{
		{
			WebsiteName: "Filmix",
			URL:         fmt.Sprintf("https://filmix.ac/film/%s", id.ID),
			Quality:     "720",
			Dubbing:     "Оригинал",
			Language:    "Мультиязычный",
			Title:       "Найденный фильм",
			Year:        "2023",
			Thumbnail:   "https://via.placeholder.com/300x200/4a6fa5/ffffff?text=Filmix",
			Duration:    "2ч 15м",
			Rating:      "8.5",
			Active:      true,
			CreatedAt:   &created,
		},
		{
			WebsiteName: "Filmix",
			URL:         fmt.Sprintf("https://filmix.ac/film/%s?hd", id.ID),
			Quality:     "1080",
			Dubbing:     "Любительская",
			Language:    "Русский",
			Title:       "Найденный фильм",
			Year:        "2023",
			Thumbnail:   "https://via.placeholder.com/300x200/4a6fa5/ffffff?text=Filmix",
			Duration:    "2ч 15м",
			Rating:      "7.9",
			Active:      true,
			CreatedAt:   &created,
		},
	}
}

func hdrezkaCatalog(id domain.ExternalID, now time.Time) []rawSource {
	created := now.Add(-12 * time.Hour)
	return []rawSource{
		{
			WebsiteName: "HDRezka",
			URL:         fmt.Sprintf("https://rezka.ag/films/%s.html", id.ID),
			Quality:     "1080",
			Dubbing:     "Профессиональная",
			Language:    "Русский",
			Title:       "Найденный фильм",
			Year:        "2023",
			Thumbnail:   "https://via.placeholder.com/300x200/ff6b6b/ffffff?text=HDRezka",
			Duration:    "2ч 15м",
			Subtitles:   true,
			Active:      true,
			CreatedAt:   &created,
		},
		{
			// Broken mirror kept for bookkeeping, never served.
			WebsiteName: "HDRezka",
			URL:         fmt.Sprintf("https://rezka.ag/films/%s-mirror.html", id.ID),
			Quality:     "720",
			Dubbing:     "Профессиональная",
			Language:    "Русский",
			Title:       "Найденный фильм",
			Year:        "2023",
			Active:      false,
			CreatedAt:   &created,
		},
	}
}

func kinopubCatalog(id domain.ExternalID, now time.Time) []rawSource {
	created := now.Add(-72 * time.Hour)
	return []rawSource{
		{
			WebsiteName: "Kinopub",
			URL:         fmt.Sprintf("https://kino.pub/item/%s", id.ID),
			Quality:     "2160",
			Dubbing:     "Профессиональная",
			Language:    "Мультиязычный",
			Title:       "Найденный фильм",
			Year:        "2023",
			Duration:    "2ч 15м",
			Rating:      "8.1",
			HDR:         true,
			Active:      true,
			CreatedAt:   &created,
		},
	}
}
